package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DiscountType string

type ActionType string

const (
	DiscountCredit    DiscountType = "CREDIT"
	DiscountPass      DiscountType = "PASS"
	DiscountPromoCode DiscountType = "PROMO_CODE"

	ActionOriginalBooking ActionType = "ORIGINAL_BOOKING"
	ActionReschedule      ActionType = "RESCHEDULE"
	ActionExtension       ActionType = "EXTENSION"
	ActionModification    ActionType = "MODIFICATION"
)

// Entry is an immutable record of one discount applied to a booking.
// Rows are append-only: there is no update or delete path.
type Entry struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	BookingID    int64           `db:"booking_id" json:"booking_id"`
	UserID       int64           `db:"user_id" json:"user_id"`
	DiscountType DiscountType    `db:"discount_type" json:"discount_type"`
	ActionType   ActionType      `db:"action_type" json:"action_type"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	SourceID     *string         `db:"source_id" json:"source_id,omitempty"`
	AppliedAt    time.Time       `db:"applied_at" json:"applied_at"`
}

type SummaryRow struct {
	DiscountType DiscountType    `db:"discount_type" json:"discount_type"`
	ActionType   ActionType      `db:"action_type" json:"action_type"`
	Total        decimal.Decimal `db:"total" json:"total"`
}

type Summary struct {
	BookingID int64           `json:"booking_id"`
	Rows      []SummaryRow    `json:"rows"`
	Total     decimal.Decimal `json:"total"`
}
