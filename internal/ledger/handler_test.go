package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chorehop/backend/internal/middleware"
)

type stubReader struct {
	balance decimal.Decimal
	byUser  []*Transaction
	byJob   []*Transaction
}

func (s *stubReader) AvailableBalance(context.Context, uuid.UUID) (decimal.Decimal, error) {
	return s.balance, nil
}

func (s *stubReader) ListByUser(context.Context, uuid.UUID, int, int) ([]*Transaction, error) {
	return s.byUser, nil
}

func (s *stubReader) ListByJob(context.Context, uuid.UUID) ([]*Transaction, error) {
	return s.byJob, nil
}

func authedRequest(userID uuid.UUID, method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(middleware.WithUser(req.Context(), &middleware.AuthUser{ID: userID, Role: "claimer"}))
}

func TestGetBalance(t *testing.T) {
	h := NewHandler(&stubReader{balance: decimal.RequireFromString("80")}, nil)

	rec := httptest.NewRecorder()
	h.GetBalance(rec, authedRequest(uuid.New(), http.MethodGet, "/balance"))
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, body %s", rec.Code, rec.Body)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["available_balance"] != "80.00" {
		t.Errorf("balance: got %q, want 80.00", body["available_balance"])
	}
}

func TestGetBalance_Unauthenticated(t *testing.T) {
	h := NewHandler(&stubReader{}, nil)

	rec := httptest.NewRecorder()
	h.GetBalance(rec, httptest.NewRequest(http.MethodGet, "/balance", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("got %d, want 401", rec.Code)
	}
}

func TestListJobTransactions_FiltersToParticipant(t *testing.T) {
	me := uuid.New()
	other := uuid.New()
	jobID := uuid.New()
	h := NewHandler(&stubReader{byJob: []*Transaction{
		{ID: uuid.New(), JobID: &jobID, PayerID: &other, PayeeID: &me, Type: TypeEscrowRelease},
		{ID: uuid.New(), JobID: &jobID, PayerID: &other, Type: TypePlatformFee},
	}}, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /jobs/{id}/transactions", h.ListJobTransactions)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, authedRequest(me, http.MethodGet, "/jobs/"+jobID.String()+"/transactions"))
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, body %s", rec.Code, rec.Body)
	}
	var list []*Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].Type != TypeEscrowRelease {
		t.Errorf("expected only the entry naming the caller, got %d entries", len(list))
	}
}

func TestListTransactions_EmptyIsArray(t *testing.T) {
	h := NewHandler(&stubReader{}, nil)

	rec := httptest.NewRecorder()
	h.ListTransactions(rec, authedRequest(uuid.New(), http.MethodGet, "/transactions"))
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("empty list should serialize as [], got %q", got)
	}
}
