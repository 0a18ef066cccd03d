package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const requestTimeout = 10 * time.Second

// Client talks to a Stripe-style hold/capture API over HTTP. Amounts are
// sent in minor units (cents).
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

var _ Processor = (*Client)(nil)

type holdPayload struct {
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	Customer      string `json:"customer"`
	CaptureMethod string `json:"capture_method"`
}

type holdResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (c *Client) CreateHold(ctx context.Context, amount decimal.Decimal, payerRef string, idempotencyKey uuid.UUID) (*Hold, error) {
	body := holdPayload{
		AmountCents:   amount.Mul(decimal.NewFromInt(100)).IntPart(),
		Currency:      "usd",
		Customer:      payerRef,
		CaptureMethod: "manual",
	}
	var resp holdResponse
	if err := c.post(ctx, "/v1/payment_intents", idempotencyKey.String(), body, &resp); err != nil {
		return nil, err
	}
	return &Hold{Reference: resp.ID, Status: resp.Status}, nil
}

func (c *Client) RetrieveHold(ctx context.Context, reference string) (*Hold, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/payment_intents/"+reference, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	var resp holdResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &Hold{Reference: resp.ID, Status: resp.Status}, nil
}

func (c *Client) Capture(ctx context.Context, reference string) error {
	return c.post(ctx, "/v1/payment_intents/"+reference+"/capture", "", nil, nil)
}

func (c *Client) VoidOrRefund(ctx context.Context, reference string) error {
	return c.post(ctx, "/v1/payment_intents/"+reference+"/cancel", "", nil, nil)
}

func (c *Client) post(ctx context.Context, path, idempotencyKey string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProcessorUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrProcessorUnavailable, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("processor returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
