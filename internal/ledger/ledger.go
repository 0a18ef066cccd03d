package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction types.
const (
	TypeEscrowHold    = "escrow_hold"
	TypeEscrowRelease = "escrow_release"
	TypePlatformFee   = "platform_fee"
	TypeRefund        = "refund"
	TypePayout        = "payout"
)

// Transaction statuses. pending and held are the only non-terminal states.
const (
	StatusPending   = "pending"
	StatusHeld      = "held"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"
)

// ErrInsufficientBalance is returned when a payout exceeds the available
// balance derived from the ledger.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Transaction is one immutable money movement. Rows are never updated after
// creation except for the status transition out of pending/held.
type Transaction struct {
	ID                uuid.UUID        `json:"id"`
	JobID             *uuid.UUID       `json:"job_id,omitempty"`
	PayerID           *uuid.UUID       `json:"payer_id,omitempty"`
	PayeeID           *uuid.UUID       `json:"payee_id,omitempty"`
	Type              string           `json:"type"`
	Amount            decimal.Decimal  `json:"amount"`
	PlatformFeeAmount *decimal.Decimal `json:"platform_fee_amount,omitempty"`
	NetAmount         *decimal.Decimal `json:"net_amount,omitempty"`
	Status            string           `json:"status"`
	ExternalReference *string          `json:"external_reference,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}
