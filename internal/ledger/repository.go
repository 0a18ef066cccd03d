package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateTx appends a transaction inside the caller's database transaction.
// The id and created_at are assigned by the database.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, t *Transaction) error {
	row := tx.QueryRow(ctx, `
		INSERT INTO transactions (job_id, payer_id, payee_id, tx_type, amount, platform_fee_amount, net_amount, status, external_reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, t.JobID, t.PayerID, t.PayeeID, t.Type, t.Amount, t.PlatformFeeAmount, t.NetAmount, t.Status, t.ExternalReference)
	return row.Scan(&t.ID, &t.CreatedAt)
}

// SettleHoldTx moves the escrow_hold entry for a job from held to the given
// terminal status (completed when captured, refunded/failed otherwise).
func (r *Repository) SettleHoldTx(ctx context.Context, tx pgx.Tx, jobID uuid.UUID, status string) error {
	_, err := tx.Exec(ctx, `
		UPDATE transactions SET status = $1
		WHERE job_id = $2 AND tx_type = $3 AND status = $4
	`, status, jobID, TypeEscrowHold, StatusHeld)
	return err
}

// AvailableBalance derives the user's balance from completed ledger entries:
// escrow releases received minus payouts taken. It is never cached.
func (r *Repository) AvailableBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	row := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE
			WHEN tx_type = $2 AND payee_id = $1 THEN amount
			WHEN tx_type = $3 AND payer_id = $1 THEN -amount
			ELSE 0 END), 0)
		FROM transactions WHERE status = $4
	`, userID, TypeEscrowRelease, TypePayout, StatusCompleted)
	if err := row.Scan(&balance); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// InsertPayoutTx records a payout only if the ledger-derived balance covers
// it. The account row is locked first: the guard subquery reads a statement
// snapshot, so without the lock two concurrent payouts would each see the
// pre-insert balance and both pass. With it, the second payout waits on the
// first's commit and its guard sums the now-inserted row.
func (r *Repository) InsertPayoutTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal) (*Transaction, error) {
	if _, err := tx.Exec(ctx, `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, userID); err != nil {
		return nil, err
	}
	t := &Transaction{PayerID: &userID, Type: TypePayout, Amount: amount, Status: StatusCompleted}
	row := tx.QueryRow(ctx, `
		INSERT INTO transactions (payer_id, tx_type, amount, status)
		SELECT $1, $2, $3, $4
		WHERE (
			SELECT COALESCE(SUM(CASE
				WHEN tx_type = $5 AND payee_id = $1 THEN amount
				WHEN tx_type = $2 AND payer_id = $1 THEN -amount
				ELSE 0 END), 0)
			FROM transactions WHERE status = $4
		) >= $3
		RETURNING id, created_at
	`, userID, TypePayout, amount, StatusCompleted, TypeEscrowRelease)
	if err := row.Scan(&t.ID, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInsufficientBalance
		}
		return nil, err
	}
	return t, nil
}

// ListByUser returns the user's transactions, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, job_id, payer_id, payee_id, tx_type, amount, platform_fee_amount, net_amount, status, external_reference, created_at
		FROM transactions
		WHERE payer_id = $1 OR payee_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// ListByJob returns all ledger entries for a job, oldest first.
func (r *Repository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]*Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, job_id, payer_id, payee_id, tx_type, amount, platform_fee_amount, net_amount, status, external_reference, created_at
		FROM transactions WHERE job_id = $1 ORDER BY created_at ASC
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func scanTransactions(rows pgx.Rows) ([]*Transaction, error) {
	var list []*Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.JobID, &t.PayerID, &t.PayeeID, &t.Type, &t.Amount, &t.PlatformFeeAmount, &t.NetAmount, &t.Status, &t.ExternalReference, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}
