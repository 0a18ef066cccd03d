package router

import (
	"net/http"

	"github.com/chorehop/backend/internal/auth"
	"github.com/chorehop/backend/internal/escrow"
	"github.com/chorehop/backend/internal/jobs"
	"github.com/chorehop/backend/internal/ledger"
	"github.com/chorehop/backend/internal/middleware"
)

// New returns an http.Handler serving the API under /api/v1. Auth endpoints
// are public; everything else sits behind the JWT middleware.
func New(
	authHandler *auth.Handler,
	jobsHandler *jobs.Handler,
	ledgerHandler *ledger.Handler,
	escrowHandler *escrow.Handler,
	validator middleware.TokenValidator,
) http.Handler {
	mux := http.NewServeMux()
	authed := middleware.JWTAuth(validator)
	protect := func(h http.HandlerFunc) http.Handler { return authed(h) }

	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	mux.Handle("POST /api/v1/jobs", protect(jobsHandler.CreateJob))
	mux.Handle("GET /api/v1/jobs", protect(jobsHandler.ListJobs))
	mux.Handle("GET /api/v1/jobs/{id}", protect(jobsHandler.GetJob))
	mux.Handle("POST /api/v1/jobs/{id}/claim", protect(jobsHandler.Claim))
	mux.Handle("POST /api/v1/jobs/{id}/unclaim", protect(jobsHandler.Unclaim))
	mux.Handle("POST /api/v1/jobs/{id}/confirm-payment", protect(jobsHandler.ConfirmPayment))
	mux.Handle("POST /api/v1/jobs/{id}/check-in", protect(jobsHandler.CheckIn))
	mux.Handle("POST /api/v1/jobs/{id}/check-out", protect(jobsHandler.CheckOut))
	mux.Handle("POST /api/v1/jobs/{id}/complete", protect(jobsHandler.Complete))
	mux.Handle("POST /api/v1/jobs/{id}/cancel", protect(jobsHandler.Cancel))

	mux.Handle("GET /api/v1/jobs/{id}/transactions", protect(ledgerHandler.ListJobTransactions))
	mux.Handle("GET /api/v1/balance", protect(ledgerHandler.GetBalance))
	mux.Handle("GET /api/v1/transactions", protect(ledgerHandler.ListTransactions))
	mux.Handle("POST /api/v1/payouts", protect(escrowHandler.Payout))

	return mux
}
