package jobs

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const jobColumns = `id, poster_id, claimer_id, title, description, property_latitude, property_longitude,
	fee, platform_fee_amount, payout_amount, status,
	claimer_checked_in, claimer_checked_in_at, claimer_checked_out, claimer_checked_out_at,
	external_payment_reference, escrow_held, payment_released, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *Repository) Create(ctx context.Context, j *Job) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO jobs (poster_id, title, description, property_latitude, property_longitude,
			fee, platform_fee_amount, payout_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'open')
		RETURNING id, status, created_at, updated_at
	`, j.PosterID, j.Title, j.Description, j.PropertyLatitude, j.PropertyLongitude,
		j.Fee, j.PlatformFeeAmount, j.PayoutAmount)
	return row.Scan(&j.ID, &j.Status, &j.CreatedAt, &j.UpdatedAt)
}

func (r *Repository) GetByID(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, jobID)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return j, err
}

// ClaimTx is the claim arbiter: a single conditional update on the status
// field. Of N concurrent callers exactly one sees RowsAffected == 1; the
// rest are told the job was not claimable. No side effect is issued before
// this update is confirmed.
func (r *Repository) ClaimTx(ctx context.Context, tx pgx.Tx, jobID, claimerID uuid.UUID) (bool, error) {
	result, err := tx.Exec(ctx, `
		UPDATE jobs SET status = 'claimed', claimer_id = $1, updated_at = now()
		WHERE id = $2 AND status = 'open' AND poster_id <> $1
	`, claimerID, jobID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

// SetHoldReferenceTx stores the processor-side hold reference after the
// claim's escrow hold was opened, inside the same transaction as the claim.
func (r *Repository) SetHoldReferenceTx(ctx context.Context, tx pgx.Tx, jobID uuid.UUID, reference string) error {
	_, err := tx.Exec(ctx, `
		UPDATE jobs SET external_payment_reference = $1, updated_at = now() WHERE id = $2
	`, reference, jobID)
	return err
}

// MarkEscrowHeld flips escrow_held once the processor confirmed the hold.
// The guards re-check that the job is still claimed and still linked to a
// hold: an unclaim between the confirmation read and this update must not
// leave a stale escrow_held on a reopened job.
func (r *Repository) MarkEscrowHeld(ctx context.Context, jobID uuid.UUID) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE jobs SET escrow_held = TRUE, updated_at = now()
		WHERE id = $1 AND status = 'claimed' AND external_payment_reference IS NOT NULL
	`, jobID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

// MarkCheckedIn applies the claimed -> in_progress transition. The guards
// are re-checked in the WHERE clause so a concurrent unclaim or cancel
// cannot be overwritten.
func (r *Repository) MarkCheckedIn(ctx context.Context, jobID, claimerID uuid.UUID) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE jobs SET claimer_checked_in = TRUE, claimer_checked_in_at = now(),
			status = 'in_progress', updated_at = now()
		WHERE id = $1 AND claimer_id = $2 AND status = 'claimed'
	`, jobID, claimerID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

// MarkCheckedOutTx records the verified check-out inside the caller's
// transaction (the check-out notification is enqueued in the same one).
func (r *Repository) MarkCheckedOutTx(ctx context.Context, tx pgx.Tx, jobID, claimerID uuid.UUID) (bool, error) {
	result, err := tx.Exec(ctx, `
		UPDATE jobs SET claimer_checked_out = TRUE, claimer_checked_out_at = now(), updated_at = now()
		WHERE id = $1 AND claimer_id = $2 AND claimer_checked_in AND NOT claimer_checked_out
	`, jobID, claimerID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

// CompleteTx applies completion. The payment_released guard in the WHERE
// clause is what makes capture idempotent under concurrent complete calls:
// only one caller observes payment_released = FALSE.
func (r *Repository) CompleteTx(ctx context.Context, tx pgx.Tx, jobID, posterID uuid.UUID) (bool, error) {
	result, err := tx.Exec(ctx, `
		UPDATE jobs SET status = 'completed', payment_released = TRUE, updated_at = now()
		WHERE id = $1 AND poster_id = $2 AND claimer_checked_out AND NOT payment_released
	`, jobID, posterID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

// CancelTx cancels a job that is still open or claimed.
func (r *Repository) CancelTx(ctx context.Context, tx pgx.Tx, jobID, posterID uuid.UUID) (bool, error) {
	result, err := tx.Exec(ctx, `
		UPDATE jobs SET status = 'cancelled', updated_at = now()
		WHERE id = $1 AND poster_id = $2 AND status IN ('open', 'claimed')
	`, jobID, posterID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

// UnclaimTx returns a claimed job to open, clearing the claimer and any
// hold linkage.
func (r *Repository) UnclaimTx(ctx context.Context, tx pgx.Tx, jobID, claimerID uuid.UUID) (bool, error) {
	result, err := tx.Exec(ctx, `
		UPDATE jobs SET status = 'open', claimer_id = NULL,
			external_payment_reference = NULL, escrow_held = FALSE, updated_at = now()
		WHERE id = $1 AND claimer_id = $2 AND status = 'claimed'
	`, jobID, claimerID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

// RecordCheckIn appends a geofence attempt to the audit trail. Failed
// attempts are recorded the same as verified ones.
func (r *Repository) RecordCheckIn(ctx context.Context, c *CheckIn) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO check_ins (job_id, user_id, latitude, longitude, check_type, distance_from_property, verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, c.JobID, c.UserID, c.Latitude, c.Longitude, c.Type, c.DistanceFromProperty, c.Verified)
	return row.Scan(&c.ID, &c.CreatedAt)
}

func (r *Repository) ListByPoster(ctx context.Context, posterID uuid.UUID) ([]*Job, error) {
	return r.list(ctx, `SELECT `+jobColumns+` FROM jobs WHERE poster_id = $1 ORDER BY created_at DESC`, posterID)
}

func (r *Repository) ListByClaimer(ctx context.Context, claimerID uuid.UUID) ([]*Job, error) {
	return r.list(ctx, `SELECT `+jobColumns+` FROM jobs WHERE claimer_id = $1 ORDER BY created_at DESC`, claimerID)
}

func (r *Repository) ListOpen(ctx context.Context) ([]*Job, error) {
	return r.list(ctx, `SELECT `+jobColumns+` FROM jobs WHERE status = 'open' ORDER BY created_at DESC`)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]*Job, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, j)
	}
	return list, rows.Err()
}

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	err := row.Scan(&j.ID, &j.PosterID, &j.ClaimerID, &j.Title, &j.Description,
		&j.PropertyLatitude, &j.PropertyLongitude,
		&j.Fee, &j.PlatformFeeAmount, &j.PayoutAmount, &j.Status,
		&j.ClaimerCheckedIn, &j.ClaimerCheckedInAt, &j.ClaimerCheckedOut, &j.ClaimerCheckedOutAt,
		&j.ExternalPaymentReference, &j.EscrowHeld, &j.PaymentReleased, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}
