package escrow

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/chorehop/backend/internal/middleware"
	"github.com/chorehop/backend/internal/validation"
)

type PayoutRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type Handler struct {
	settlement *Settlement
	validator  *validation.Validator
	log        *slog.Logger
}

func NewHandler(settlement *Settlement, validator *validation.Validator, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{settlement: settlement, validator: validator, log: log}
}

// Payout handles POST /payouts. The balance guard lives in the ledger insert,
// so concurrent requests cannot overdraw.
func (h *Handler) Payout(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
		return
	}
	if h.validator != nil {
		if err := h.validator.Validate(validation.SchemaPayout, body); err != nil {
			http.Error(w, `{"error":"invalid payout payload: `+err.Error()+`"}`, http.StatusBadRequest)
			return
		}
	}
	var req PayoutRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	t, err := h.settlement.Payout(r.Context(), user.ID, req.Amount)
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			http.Error(w, `{"error":"insufficient balance"}`, http.StatusUnprocessableEntity)
			return
		}
		h.log.Error("payout failed", "error", err, "user_id", user.ID)
		http.Error(w, `{"error":"payout failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(t)
}
