package ledger

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chorehop/backend/internal/middleware"
)

// Reader is what the HTTP surface needs from the ledger store.
type Reader interface {
	AvailableBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Transaction, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]*Transaction, error)
}

type Handler struct {
	repo Reader
	log  *slog.Logger
}

func NewHandler(repo Reader, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{repo: repo, log: log}
}

// GetBalance handles GET /balance. The balance is derived from the ledger on
// every call.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	balance, err := h.repo.AvailableBalance(r.Context(), user.ID)
	if err != nil {
		h.log.Error("balance query failed", "error", err, "user_id", user.ID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"available_balance": balance.StringFixed(2)})
}

// ListTransactions handles GET /transactions?limit=&offset=.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	limit := queryInt(r, "limit", 50)
	if limit > 200 {
		limit = 200
	}
	offset := queryInt(r, "offset", 0)
	list, err := h.repo.ListByUser(r.Context(), user.ID, limit, offset)
	if err != nil {
		h.log.Error("transaction list failed", "error", err, "user_id", user.ID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*Transaction{}
	}
	writeJSON(w, http.StatusOK, list)
}

// ListJobTransactions handles GET /jobs/{id}/transactions: the full ledger
// trail for one job, restricted to parties on the job's entries.
func (h *Handler) ListJobTransactions(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid job id"}`, http.StatusBadRequest)
		return
	}
	list, err := h.repo.ListByJob(r.Context(), jobID)
	if err != nil {
		h.log.Error("job transaction list failed", "error", err, "job_id", jobID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	visible := make([]*Transaction, 0, len(list))
	for _, t := range list {
		if (t.PayerID != nil && *t.PayerID == user.ID) || (t.PayeeID != nil && *t.PayeeID == user.ID) {
			visible = append(visible, t)
		}
	}
	writeJSON(w, http.StatusOK, visible)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
