package jobs

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/chorehop/backend/internal/escrow"
	"github.com/chorehop/backend/internal/geofence"
	"github.com/chorehop/backend/internal/notify"
	"github.com/chorehop/backend/internal/payments"
)

// Repo is the persistence interface the state machine runs against. Every
// transition method re-checks its guards in the database so concurrent
// callers cannot apply a stale decision.
type Repo interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, j *Job) error
	GetByID(ctx context.Context, jobID uuid.UUID) (*Job, error)
	ClaimTx(ctx context.Context, tx pgx.Tx, jobID, claimerID uuid.UUID) (bool, error)
	SetHoldReferenceTx(ctx context.Context, tx pgx.Tx, jobID uuid.UUID, reference string) error
	MarkEscrowHeld(ctx context.Context, jobID uuid.UUID) (bool, error)
	MarkCheckedIn(ctx context.Context, jobID, claimerID uuid.UUID) (bool, error)
	MarkCheckedOutTx(ctx context.Context, tx pgx.Tx, jobID, claimerID uuid.UUID) (bool, error)
	CompleteTx(ctx context.Context, tx pgx.Tx, jobID, posterID uuid.UUID) (bool, error)
	CancelTx(ctx context.Context, tx pgx.Tx, jobID, posterID uuid.UUID) (bool, error)
	UnclaimTx(ctx context.Context, tx pgx.Tx, jobID, claimerID uuid.UUID) (bool, error)
	RecordCheckIn(ctx context.Context, c *CheckIn) error
	ListByPoster(ctx context.Context, posterID uuid.UUID) ([]*Job, error)
	ListByClaimer(ctx context.Context, claimerID uuid.UUID) ([]*Job, error)
	ListOpen(ctx context.Context) ([]*Job, error)
}

// Settlement is the escrow interface the state machine needs.
type Settlement interface {
	OpenHold(ctx context.Context, tx pgx.Tx, jobID, posterID uuid.UUID, fee decimal.Decimal) (*payments.Hold, error)
	ConfirmHold(ctx context.Context, reference string) error
	CaptureAndSplit(ctx context.Context, tx pgx.Tx, jobID, posterID, claimerID uuid.UUID, platformFee, payout decimal.Decimal, reference string) error
	VoidOrRefund(ctx context.Context, tx pgx.Tx, jobID, posterID uuid.UUID, fee decimal.Decimal, reference string, captured bool) error
}

// EnqueueEventTxFunc enqueues a notification event within the given
// transaction. Provided by main using river.Client.InsertTx.
type EnqueueEventTxFunc func(ctx context.Context, tx pgx.Tx, args notify.EventArgs) error

// Service owns the job lifecycle. Transitions call the repository's
// conditional updates and the escrow settlement inside one database
// transaction: either the status change, the ledger writes and the event
// all commit, or none do.
type Service struct {
	repo         Repo
	settlement   Settlement
	enqueueEvent EnqueueEventTxFunc
	feeRate      decimal.Decimal
	radiusFeet   float64
}

func NewService(repo Repo, settlement Settlement, enqueueEvent EnqueueEventTxFunc, feeRate decimal.Decimal, radiusFeet float64) *Service {
	if radiusFeet <= 0 {
		radiusFeet = geofence.DefaultRadiusFeet
	}
	return &Service{
		repo:         repo,
		settlement:   settlement,
		enqueueEvent: enqueueEvent,
		feeRate:      feeRate,
		radiusFeet:   radiusFeet,
	}
}

// CreateJobInput is the poster's job posting.
type CreateJobInput struct {
	Title             string
	Description       string
	PropertyLatitude  *float64
	PropertyLongitude *float64
	Fee               decimal.Decimal
}

// Create posts a new open job. The fee split is computed here, once, and
// frozen on the job; no later code path recomputes it.
func (s *Service) Create(ctx context.Context, posterID uuid.UUID, in CreateJobInput) (*Job, error) {
	if in.Fee.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("fee must be positive")
	}
	platformFee, payout := escrow.SplitFee(in.Fee.Round(2), s.feeRate)
	j := &Job{
		PosterID:          posterID,
		Title:             in.Title,
		Description:       in.Description,
		PropertyLatitude:  in.PropertyLatitude,
		PropertyLongitude: in.PropertyLongitude,
		Fee:               in.Fee.Round(2),
		PlatformFeeAmount: platformFee,
		PayoutAmount:      payout,
	}
	if err := s.repo.Create(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

// Claim resolves the race for an open job to exactly one winner and opens
// the poster's escrow hold. Losers get ErrNotClaimable and no side effects.
func (s *Service) Claim(ctx context.Context, jobID, claimantID uuid.UUID) (*Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.PosterID == claimantID || job.Status != StatusOpen {
		return nil, ErrNotClaimable
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	won, err := s.repo.ClaimTx(ctx, tx, jobID, claimantID)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrNotClaimable
	}
	hold, err := s.settlement.OpenHold(ctx, tx, job.ID, job.PosterID, job.Fee)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetHoldReferenceTx(ctx, tx, jobID, hold.Reference); err != nil {
		return nil, err
	}
	if err := s.enqueueEvent(ctx, tx, notify.EventArgs{
		Event: notify.EventJobClaimed, JobID: jobID, RecipientID: job.PosterID,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, jobID)
}

// ConfirmPayment is called after the poster finishes the hosted payment
// step. ErrPaymentNotReady from settlement is retryable.
func (s *Service) ConfirmPayment(ctx context.Context, jobID, posterID uuid.UUID) (*Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.PosterID != posterID {
		return nil, ErrUnauthorized
	}
	if job.ExternalPaymentReference == nil {
		return nil, ErrInvalidTransition
	}
	if err := s.settlement.ConfirmHold(ctx, *job.ExternalPaymentReference); err != nil {
		return nil, err
	}
	ok, err := s.repo.MarkEscrowHeld(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}
	return s.repo.GetByID(ctx, jobID)
}

// CheckIn evaluates the claimer's position against the property geofence.
// The attempt is recorded whether or not it verifies; only a verified
// attempt moves the job to in_progress.
func (s *Service) CheckIn(ctx context.Context, jobID, claimantID uuid.UUID, lat, lng float64) (*CheckResult, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ClaimerID == nil || *job.ClaimerID != claimantID {
		return nil, ErrUnauthorized
	}
	if job.Status != StatusClaimed {
		return nil, ErrInvalidTransition
	}
	result, err := s.evaluateAndRecord(ctx, job, claimantID, lat, lng, CheckTypeIn)
	if err != nil {
		return nil, err
	}
	if !result.Verified {
		return result, nil
	}
	ok, err := s.repo.MarkCheckedIn(ctx, jobID, claimantID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}
	return result, nil
}

// CheckOut mirrors CheckIn for leaving the property. A verified check-out
// enqueues the job_checked_out event in the same transaction.
func (s *Service) CheckOut(ctx context.Context, jobID, claimantID uuid.UUID, lat, lng float64) (*CheckResult, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ClaimerID == nil || *job.ClaimerID != claimantID {
		return nil, ErrUnauthorized
	}
	if !job.ClaimerCheckedIn || job.ClaimerCheckedOut {
		return nil, ErrInvalidTransition
	}
	result, err := s.evaluateAndRecord(ctx, job, claimantID, lat, lng, CheckTypeOut)
	if err != nil {
		return nil, err
	}
	if !result.Verified {
		return result, nil
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ok, err := s.repo.MarkCheckedOutTx(ctx, tx, jobID, claimantID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}
	if err := s.enqueueEvent(ctx, tx, notify.EventArgs{
		Event: notify.EventJobCheckedOut, JobID: jobID, RecipientID: job.PosterID,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// Complete captures the escrow hold and splits it. The conditional update
// wins the race first; the processor capture and ledger writes follow in
// the same transaction, so a processor failure leaves the job untouched.
func (s *Service) Complete(ctx context.Context, jobID, posterID uuid.UUID) (*Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.PosterID != posterID {
		return nil, ErrUnauthorized
	}
	if job.PaymentReleased {
		return nil, ErrAlreadyCompleted
	}
	if !job.ClaimerCheckedOut || job.ClaimerID == nil {
		return nil, ErrInvalidTransition
	}
	if !job.EscrowHeld || job.ExternalPaymentReference == nil {
		return nil, escrow.ErrPaymentNotReady
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	won, err := s.repo.CompleteTx(ctx, tx, jobID, posterID)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrAlreadyCompleted
	}
	if err := s.settlement.CaptureAndSplit(ctx, tx, jobID, job.PosterID, *job.ClaimerID,
		job.PlatformFeeAmount, job.PayoutAmount, *job.ExternalPaymentReference); err != nil {
		return nil, err
	}
	if err := s.enqueueEvent(ctx, tx, notify.EventArgs{
		Event: notify.EventPaymentReceived, JobID: jobID, RecipientID: *job.ClaimerID,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, jobID)
}

// Cancel terminates an open or claimed job, voiding the hold if one exists.
func (s *Service) Cancel(ctx context.Context, jobID, posterID uuid.UUID) (*Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.PosterID != posterID {
		return nil, ErrUnauthorized
	}
	if job.Status != StatusOpen && job.Status != StatusClaimed {
		return nil, ErrInvalidTransition
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ok, err := s.repo.CancelTx(ctx, tx, jobID, posterID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}
	if job.ExternalPaymentReference != nil {
		if err := s.settlement.VoidOrRefund(ctx, tx, jobID, job.PosterID, job.Fee,
			*job.ExternalPaymentReference, job.PaymentReleased); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, jobID)
}

// Unclaim lets the claimer opt out before starting work, returning the job
// to open and voiding the hold.
func (s *Service) Unclaim(ctx context.Context, jobID, claimantID uuid.UUID) (*Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ClaimerID == nil || *job.ClaimerID != claimantID {
		return nil, ErrUnauthorized
	}
	if job.Status != StatusClaimed {
		return nil, ErrInvalidTransition
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ok, err := s.repo.UnclaimTx(ctx, tx, jobID, claimantID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}
	if job.ExternalPaymentReference != nil {
		if err := s.settlement.VoidOrRefund(ctx, tx, jobID, job.PosterID, job.Fee,
			*job.ExternalPaymentReference, false); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, jobID)
}

func (s *Service) evaluateAndRecord(ctx context.Context, job *Job, userID uuid.UUID, lat, lng float64, checkType string) (*CheckResult, error) {
	distance, verified, err := geofence.Evaluate(job.PropertyLatitude, job.PropertyLongitude, lat, lng, s.radiusFeet)
	if err != nil {
		return nil, err
	}
	attempt := &CheckIn{
		JobID:                job.ID,
		UserID:               userID,
		Latitude:             lat,
		Longitude:            lng,
		Type:                 checkType,
		DistanceFromProperty: distance,
		Verified:             verified,
	}
	if err := s.repo.RecordCheckIn(ctx, attempt); err != nil {
		return nil, err
	}
	return &CheckResult{Verified: verified, DistanceFeet: distance, RadiusFeet: s.radiusFeet}, nil
}

func (s *Service) Get(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	return s.repo.GetByID(ctx, jobID)
}

func (s *Service) ListByPoster(ctx context.Context, posterID uuid.UUID) ([]*Job, error) {
	return s.repo.ListByPoster(ctx, posterID)
}

func (s *Service) ListByClaimer(ctx context.Context, claimerID uuid.UUID) ([]*Job, error) {
	return s.repo.ListByClaimer(ctx, claimerID)
}

func (s *Service) ListOpen(ctx context.Context) ([]*Job, error) {
	return s.repo.ListOpen(ctx)
}
