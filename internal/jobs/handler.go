package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chorehop/backend/internal/escrow"
	"github.com/chorehop/backend/internal/geofence"
	"github.com/chorehop/backend/internal/middleware"
	"github.com/chorehop/backend/internal/payments"
	"github.com/chorehop/backend/internal/validation"
)

type CreateJobRequest struct {
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	PropertyLatitude  *float64        `json:"property_latitude,omitempty"`
	PropertyLongitude *float64        `json:"property_longitude,omitempty"`
	Fee               decimal.Decimal `json:"fee"`
}

type CheckRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Handler struct {
	svc       *Service
	validator *validation.Validator
	log       *slog.Logger
}

func NewHandler(svc *Service, validator *validation.Validator, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, validator: validator, log: log}
}

func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
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
		if err := h.validator.Validate(validation.SchemaJobCreate, body); err != nil {
			http.Error(w, `{"error":"invalid job payload: `+err.Error()+`"}`, http.StatusBadRequest)
			return
		}
	}
	var req CreateJobRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	job, err := h.svc.Create(r.Context(), user.ID, CreateJobInput{
		Title:             req.Title,
		Description:       req.Description,
		PropertyLatitude:  req.PropertyLatitude,
		PropertyLongitude: req.PropertyLongitude,
		Fee:               req.Fee,
	})
	if err != nil {
		h.log.Error("create job failed", "error", err)
		http.Error(w, `{"error":"create job failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var (
		list []*Job
		err  error
	)
	switch r.URL.Query().Get("view") {
	case "claimed":
		list, err = h.svc.ListByClaimer(r.Context(), user.ID)
	case "open":
		list, err = h.svc.ListOpen(r.Context())
	default:
		list, err = h.svc.ListByPoster(r.Context(), user.ID)
	}
	if err != nil {
		h.log.Error("list jobs failed", "error", err)
		http.Error(w, `{"error":"list jobs failed"}`, http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*Job{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.jobIDFromPath(w, r)
	if !ok {
		return
	}
	job, err := h.svc.Get(r.Context(), jobID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Claim handles POST /jobs/{id}/claim.
func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Claim)
}

// Unclaim handles POST /jobs/{id}/unclaim.
func (h *Handler) Unclaim(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Unclaim)
}

// Complete handles POST /jobs/{id}/complete.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Complete)
}

// Cancel handles POST /jobs/{id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Cancel)
}

// ConfirmPayment handles POST /jobs/{id}/confirm-payment.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.ConfirmPayment)
}

// CheckIn handles POST /jobs/{id}/check-in.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.check(w, r, h.svc.CheckIn)
}

// CheckOut handles POST /jobs/{id}/check-out.
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	h.check(w, r, h.svc.CheckOut)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, jobID, userID uuid.UUID) (*Job, error)) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	jobID, ok := h.jobIDFromPath(w, r)
	if !ok {
		return
	}
	job, err := op(r.Context(), jobID, user.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, jobID, userID uuid.UUID, lat, lng float64) (*CheckResult, error)) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	jobID, ok := h.jobIDFromPath(w, r)
	if !ok {
		return
	}
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	result, err := op(r.Context(), jobID, user.ID, req.Latitude, req.Longitude)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) jobIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid job id"}`, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, `{"error":"job not found"}`, http.StatusNotFound)
	case errors.Is(err, ErrNotClaimable):
		http.Error(w, `{"error":"job is not claimable"}`, http.StatusConflict)
	case errors.Is(err, ErrUnauthorized):
		http.Error(w, `{"error":"not permitted"}`, http.StatusForbidden)
	case errors.Is(err, ErrInvalidTransition):
		http.Error(w, `{"error":"job is not in a state that allows this"}`, http.StatusConflict)
	case errors.Is(err, ErrAlreadyCompleted):
		http.Error(w, `{"error":"payment already released"}`, http.StatusConflict)
	case errors.Is(err, geofence.ErrMissingCoordinates):
		http.Error(w, `{"error":"job has no property coordinates"}`, http.StatusUnprocessableEntity)
	case errors.Is(err, escrow.ErrPaymentNotReady):
		http.Error(w, `{"error":"payment not ready, retry shortly"}`, http.StatusConflict)
	case errors.Is(err, payments.ErrProcessorUnavailable):
		http.Error(w, `{"error":"payment processor unavailable, retry later"}`, http.StatusServiceUnavailable)
	default:
		h.log.Error("job operation failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
