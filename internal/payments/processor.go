package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Hold statuses reported by the processor.
const (
	HoldStatusRequiresCapture = "requires_capture"
	HoldStatusSucceeded       = "succeeded"
	HoldStatusProcessing      = "processing"
	HoldStatusFailed          = "failed"
)

// ErrProcessorUnavailable is returned for transient transport failures.
// Callers retry with backoff; no local state may have changed.
var ErrProcessorUnavailable = errors.New("payment processor unavailable")

// Hold is a processor-side reservation of funds that can later be captured
// or voided.
type Hold struct {
	Reference string
	Status    string
}

// Processor is the external payment capability. Implementations must accept
// an idempotency key per hold so a retried CreateHold for the same job
// returns the already-opened hold instead of opening a duplicate.
type Processor interface {
	CreateHold(ctx context.Context, amount decimal.Decimal, payerRef string, idempotencyKey uuid.UUID) (*Hold, error)
	RetrieveHold(ctx context.Context, reference string) (*Hold, error)
	Capture(ctx context.Context, reference string) error
	VoidOrRefund(ctx context.Context, reference string) error
}

// Capturable reports whether a hold status allows capture to proceed
// (or is already settled).
func Capturable(status string) bool {
	switch status {
	case HoldStatusRequiresCapture, HoldStatusSucceeded, HoldStatusProcessing:
		return true
	}
	return false
}
