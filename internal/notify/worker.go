package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// Events emitted after a lifecycle transition commits.
const (
	EventJobClaimed      = "job_claimed"
	EventJobCheckedOut   = "job_checked_out"
	EventPaymentReceived = "payment_received"
)

// EventArgs is a fire-and-forget notification enqueued in the same database
// transaction as the state change it announces, so an event is only ever
// delivered for a transition that committed.
type EventArgs struct {
	Event       string    `json:"event"`
	JobID       uuid.UUID `json:"job_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
}

func (EventArgs) Kind() string { return "notification" }

// Worker delivers notification events. Delivery is best-effort: a webhook
// is posted when one is configured, and every event is logged either way.
type Worker struct {
	river.WorkerDefaults[EventArgs]
	webhookURL string
	log        *slog.Logger
	httpClient *http.Client
}

func NewWorker(webhookURL string, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		webhookURL: webhookURL,
		log:        log,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *Worker) Work(ctx context.Context, job *river.Job[EventArgs]) error {
	args := job.Args
	w.log.Info("notification", "event", args.Event, "job_id", args.JobID, "recipient_id", args.RecipientID)

	if w.webhookURL == "" {
		return nil
	}
	body, err := json.Marshal(args)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notification webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification webhook returned status %d", resp.StatusCode)
	}
	return nil
}
