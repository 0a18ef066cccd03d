package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestClient_CreateHold(t *testing.T) {
	key := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payment_intents" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Idempotency-Key"); got != key.String() {
			t.Errorf("idempotency key: got %q, want %q", got, key)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_abc" {
			t.Errorf("authorization: got %q", got)
		}
		var body struct {
			AmountCents   int64  `json:"amount_cents"`
			CaptureMethod string `json:"capture_method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.AmountCents != 10050 {
			t.Errorf("amount_cents: got %d, want 10050", body.AmountCents)
		}
		if body.CaptureMethod != "manual" {
			t.Errorf("capture_method: got %q, want manual", body.CaptureMethod)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "pi_123", "status": HoldStatusRequiresCapture})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_abc")
	hold, err := c.CreateHold(context.Background(), decimal.RequireFromString("100.50"), "cus_x", key)
	if err != nil {
		t.Fatalf("CreateHold: %v", err)
	}
	if hold.Reference != "pi_123" || hold.Status != HoldStatusRequiresCapture {
		t.Errorf("hold: got %+v", hold)
	}
}

func TestClient_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_abc")
	_, err := c.CreateHold(context.Background(), decimal.NewFromInt(10), "cus_x", uuid.New())
	if !errors.Is(err, ErrProcessorUnavailable) {
		t.Fatalf("5xx should map to ErrProcessorUnavailable, got: %v", err)
	}
}

func TestClient_ClientErrorIsNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_abc")
	_, err := c.CreateHold(context.Background(), decimal.NewFromInt(10), "cus_x", uuid.New())
	if err == nil {
		t.Fatal("4xx should be an error")
	}
	if errors.Is(err, ErrProcessorUnavailable) {
		t.Fatal("4xx must not look retryable")
	}
}

func TestClient_Capture(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_abc")
	if err := c.Capture(context.Background(), "pi_123"); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if path != "/v1/payment_intents/pi_123/capture" {
		t.Errorf("capture path: got %q", path)
	}
}

func TestCapturable(t *testing.T) {
	for _, status := range []string{HoldStatusRequiresCapture, HoldStatusSucceeded, HoldStatusProcessing} {
		if !Capturable(status) {
			t.Errorf("%s should be capturable", status)
		}
	}
	for _, status := range []string{HoldStatusFailed, "canceled", ""} {
		if Capturable(status) {
			t.Errorf("%s should not be capturable", status)
		}
	}
}
