package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Job statuses. cancelled is reachable from open and claimed only; unclaim
// returns claimed to open.
const (
	StatusOpen       = "open"
	StatusClaimed    = "claimed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Check-in attempt types.
const (
	CheckTypeIn  = "check_in"
	CheckTypeOut = "check_out"
)

var (
	// ErrNotClaimable is returned when a claim loses the race for an open
	// job or the claim guard fails. Recoverable: retry against fresh state.
	ErrNotClaimable = errors.New("job is not claimable")

	// ErrUnauthorized is returned when the caller is not the poster or
	// claimer the operation requires.
	ErrUnauthorized = errors.New("caller is not permitted to perform this operation")

	// ErrInvalidTransition is returned when a status guard fails for any
	// non-claim transition (e.g. checking in before claiming, cancelling a
	// completed job).
	ErrInvalidTransition = errors.New("job is not in a state that allows this transition")

	// ErrAlreadyCompleted is returned by Complete when payment was already
	// released; the capture is never performed twice.
	ErrAlreadyCompleted = errors.New("job payment already released")

	// ErrNotFound is returned when a job id does not exist.
	ErrNotFound = errors.New("job not found")
)

// Job is one unit of work to be performed at a property. Fee, platform fee
// and payout are computed once at creation and frozen; settlement always
// reads these stored values.
type Job struct {
	ID                       uuid.UUID       `json:"id"`
	PosterID                 uuid.UUID       `json:"poster_id"`
	ClaimerID                *uuid.UUID      `json:"claimer_id,omitempty"`
	Title                    string          `json:"title"`
	Description              string          `json:"description"`
	PropertyLatitude         *float64        `json:"property_latitude,omitempty"`
	PropertyLongitude        *float64        `json:"property_longitude,omitempty"`
	Fee                      decimal.Decimal `json:"fee"`
	PlatformFeeAmount        decimal.Decimal `json:"platform_fee_amount"`
	PayoutAmount             decimal.Decimal `json:"payout_amount"`
	Status                   string          `json:"status"`
	ClaimerCheckedIn         bool            `json:"claimer_checked_in"`
	ClaimerCheckedInAt       *time.Time      `json:"claimer_checked_in_at,omitempty"`
	ClaimerCheckedOut        bool            `json:"claimer_checked_out"`
	ClaimerCheckedOutAt      *time.Time      `json:"claimer_checked_out_at,omitempty"`
	ExternalPaymentReference *string         `json:"external_payment_reference,omitempty"`
	EscrowHeld               bool            `json:"escrow_held"`
	PaymentReleased          bool            `json:"payment_released"`
	CreatedAt                time.Time       `json:"created_at"`
	UpdatedAt                time.Time       `json:"updated_at"`
}

// CheckIn is one geofence verification attempt, recorded whether or not it
// verified. Rows are append-only.
type CheckIn struct {
	ID                   uuid.UUID `json:"id"`
	JobID                uuid.UUID `json:"job_id"`
	UserID               uuid.UUID `json:"user_id"`
	Latitude             float64   `json:"latitude"`
	Longitude            float64   `json:"longitude"`
	Type                 string    `json:"type"`
	DistanceFromProperty float64   `json:"distance_from_property"`
	Verified             bool      `json:"verified"`
	CreatedAt            time.Time `json:"created_at"`
}

// CheckResult is what a check-in/check-out attempt returns to the caller.
// An unverified result is not an error: the caller gets the measured
// distance and can move closer.
type CheckResult struct {
	Verified     bool    `json:"verified"`
	DistanceFeet float64 `json:"distance_feet"`
	RadiusFeet   float64 `json:"radius_feet"`
}
