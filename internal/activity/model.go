package activity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TypeBookingCreated     = "booking_created"
	TypeBookingConfirmed   = "booking_confirmed"
	TypeBookingCancelled   = "booking_cancelled"
	TypeBookingRescheduled = "booking_rescheduled"
	TypeBookingExtended    = "booking_extended"
	TypePassApplied        = "pass_applied"
	TypeCreditApplied      = "credit_applied"
	TypePromoApplied       = "promo_applied"
)

// Entry is a human-readable audit record. It is display-only and is never
// used for financial reconciliation; the discount ledger is.
type Entry struct {
	ID          uuid.UUID        `db:"id" json:"id"`
	BookingID   int64            `db:"booking_id" json:"booking_id"`
	BookingRef  string           `db:"booking_ref" json:"booking_ref"`
	ActivityType string          `db:"activity_type" json:"activity_type"`
	Title       string           `db:"title" json:"title"`
	Description string           `db:"description" json:"description"`
	Actor       string           `db:"actor" json:"actor"`
	Amount      *decimal.Decimal `db:"amount" json:"amount,omitempty"`
	OldValue    *string          `db:"old_value" json:"old_value,omitempty"`
	NewValue    *string          `db:"new_value" json:"new_value,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}
