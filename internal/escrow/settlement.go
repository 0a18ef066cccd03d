package escrow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/chorehop/backend/internal/ledger"
	"github.com/chorehop/backend/internal/payments"
)

// ErrPaymentNotReady is returned when the processor-side hold is not yet in
// a capturable state. Callers retry; nothing has changed locally.
var ErrPaymentNotReady = errors.New("payment hold not ready")

// ErrInsufficientBalance mirrors the ledger guard for payout requests.
var ErrInsufficientBalance = ledger.ErrInsufficientBalance

// LedgerRepo is the minimal ledger interface settlement needs.
type LedgerRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *ledger.Transaction) error
	SettleHoldTx(ctx context.Context, tx pgx.Tx, jobID uuid.UUID, status string) error
	InsertPayoutTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal) (*ledger.Transaction, error)
}

// DB provides transactions for operations settlement runs on its own
// (payouts); job-lifecycle operations run inside the caller's transaction.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Settlement translates job-lifecycle events into processor calls and
// ledger entries. Ledger writes happen only after the corresponding
// processor call has been confirmed, so a ledger entry never exists without
// a real money movement behind it.
type Settlement struct {
	Ledger    LedgerRepo
	Processor payments.Processor
	DB        DB
}

// NewSettlement returns a new Settlement.
func NewSettlement(ledgerRepo LedgerRepo, processor payments.Processor, db DB) *Settlement {
	return &Settlement{Ledger: ledgerRepo, Processor: processor, DB: db}
}

// SplitFee computes the frozen fee split: the platform fee is the only
// rounded value, and the payout is the exact remainder, so the two always
// sum to fee to the cent.
func SplitFee(fee, rate decimal.Decimal) (platformFee, payout decimal.Decimal) {
	platformFee = fee.Mul(rate).Round(2)
	payout = fee.Sub(platformFee)
	return platformFee, payout
}

// OpenHold requests a manual-capture hold for the job fee from the poster
// and records an escrow_hold ledger entry in held status. The job id doubles
// as the processor idempotency key, so a retry after a lost commit finds the
// already-opened hold instead of opening a second one.
func (s *Settlement) OpenHold(ctx context.Context, tx pgx.Tx, jobID, posterID uuid.UUID, fee decimal.Decimal) (*payments.Hold, error) {
	hold, err := s.Processor.CreateHold(ctx, fee, posterID.String(), jobID)
	if err != nil {
		return nil, err
	}
	if hold.Status == payments.HoldStatusFailed {
		return nil, fmt.Errorf("hold %s failed at processor", hold.Reference)
	}
	entry := &ledger.Transaction{
		JobID:             &jobID,
		PayerID:           &posterID,
		Type:              ledger.TypeEscrowHold,
		Amount:            fee,
		Status:            ledger.StatusHeld,
		ExternalReference: &hold.Reference,
	}
	if err := s.Ledger.CreateTx(ctx, tx, entry); err != nil {
		return nil, err
	}
	return hold, nil
}

// ConfirmHold verifies with the processor that the hold reached a capturable
// state after the poster's out-of-band payment step. Returns
// ErrPaymentNotReady when it hasn't; that is retryable, not fatal.
func (s *Settlement) ConfirmHold(ctx context.Context, reference string) error {
	hold, err := s.Processor.RetrieveHold(ctx, reference)
	if err != nil {
		return err
	}
	if !payments.Capturable(hold.Status) {
		return ErrPaymentNotReady
	}
	return nil
}

// CaptureAndSplit captures the hold and records the two settlement entries:
// escrow_release of the frozen payout amount to the claimer, and
// platform_fee charged to the poster. Amounts are the values frozen on the
// job at creation; they are never recomputed here.
func (s *Settlement) CaptureAndSplit(ctx context.Context, tx pgx.Tx, jobID, posterID, claimerID uuid.UUID, platformFee, payout decimal.Decimal, reference string) error {
	if err := s.Processor.Capture(ctx, reference); err != nil {
		return err
	}
	if err := s.Ledger.SettleHoldTx(ctx, tx, jobID, ledger.StatusCompleted); err != nil {
		return err
	}
	release := &ledger.Transaction{
		JobID:             &jobID,
		PayerID:           &posterID,
		PayeeID:           &claimerID,
		Type:              ledger.TypeEscrowRelease,
		Amount:            payout,
		PlatformFeeAmount: &platformFee,
		NetAmount:         &payout,
		Status:            ledger.StatusCompleted,
		ExternalReference: &reference,
	}
	if err := s.Ledger.CreateTx(ctx, tx, release); err != nil {
		return err
	}
	fee := &ledger.Transaction{
		JobID:   &jobID,
		PayerID: &posterID,
		Type:    ledger.TypePlatformFee,
		Amount:  platformFee,
		Status:  ledger.StatusCompleted,
	}
	return s.Ledger.CreateTx(ctx, tx, fee)
}

// VoidOrRefund unwinds a hold on cancellation or unclaim. When capture has
// not happened the hold is voided at the processor and the held entry is
// marked refunded with no completed money movement recorded; when it has,
// a refund entry to the poster is appended.
func (s *Settlement) VoidOrRefund(ctx context.Context, tx pgx.Tx, jobID, posterID uuid.UUID, fee decimal.Decimal, reference string, captured bool) error {
	if reference != "" {
		if err := s.Processor.VoidOrRefund(ctx, reference); err != nil {
			return err
		}
	}
	if err := s.Ledger.SettleHoldTx(ctx, tx, jobID, ledger.StatusRefunded); err != nil {
		return err
	}
	if !captured {
		return nil
	}
	refund := &ledger.Transaction{
		JobID:             &jobID,
		PayeeID:           &posterID,
		Type:              ledger.TypeRefund,
		Amount:            fee,
		Status:            ledger.StatusCompleted,
		ExternalReference: &reference,
	}
	return s.Ledger.CreateTx(ctx, tx, refund)
}

// Payout withdraws amount from the user's ledger-derived balance. The
// ledger repository serializes the balance guard and the payout insert per
// user, so concurrent withdrawals cannot both pass the guard.
func (s *Settlement) Payout(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*ledger.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("payout amount must be positive")
	}
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)
	t, err := s.Ledger.InsertPayoutTx(ctx, tx, userID, amount)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return t, nil
}
