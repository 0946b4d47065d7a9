package pass

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntitlementStatus string

const (
	StatusActive  EntitlementStatus = "active"
	StatusUsed    EntitlementStatus = "used"
	StatusExpired EntitlementStatus = "expired"
)

// PassType describes a purchasable pass: how many hours one use covers and
// the hours of day during which it may be used.
type PassType struct {
	ID              int64           `db:"id" json:"id"`
	Name            string          `db:"name" json:"name"`
	AllowanceHours  decimal.Decimal `db:"allowance_hours" json:"allowance_hours"`
	AllowedFromHour int             `db:"allowed_from_hour" json:"allowed_from_hour"`
	AllowedToHour   int             `db:"allowed_to_hour" json:"allowed_to_hour"`
	TotalUses       int             `db:"total_uses" json:"total_uses"`
	Price           decimal.Decimal `db:"price" json:"price"`
	ValidityDays    int             `db:"validity_days" json:"validity_days"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// Entitlement is a user's instance of a purchased pass. RemainingCount only
// decreases, via an atomic conditional decrement, and is never negative.
type Entitlement struct {
	ID             int64             `db:"id" json:"id"`
	UserID         int64             `db:"user_id" json:"user_id"`
	PurchaseID     uuid.UUID         `db:"purchase_id" json:"purchase_id"`
	PassTypeID     int64             `db:"pass_type_id" json:"pass_type_id"`
	TotalCount     int               `db:"total_count" json:"total_count"`
	RemainingCount int               `db:"remaining_count" json:"remaining_count"`
	ActiveFrom     time.Time         `db:"active_from" json:"active_from"`
	ActiveTo       time.Time         `db:"active_to" json:"active_to"`
	Status         EntitlementStatus `db:"status" json:"status"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}

type Usage struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PassID         int64     `db:"pass_id" json:"pass_id"`
	BookingID      int64     `db:"booking_id" json:"booking_id"`
	MinutesApplied *int      `db:"minutes_applied" json:"minutes_applied,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ValidationResult is the pricing breakdown for applying a pass to a booking
// window. A pass covers exactly one person's hours: CoveredAmount discounts
// the first person-slot; RemainingCharge is everything else, including the
// first person's excess hours and all other party members at full rate.
type ValidationResult struct {
	Eligible        bool            `json:"eligible"`
	Entitlement     *Entitlement    `json:"entitlement,omitempty"`
	PassType        *PassType       `json:"pass_type,omitempty"`
	CoveredHours    decimal.Decimal `json:"covered_hours"`
	CoveredAmount   decimal.Decimal `json:"covered_amount"`
	ExcessHours     decimal.Decimal `json:"excess_hours"`
	ExcessAmount    decimal.Decimal `json:"excess_amount"`
	RemainingCharge decimal.Decimal `json:"remaining_charge"`
}

type ResolutionOutcome string

const (
	ResolutionFound     ResolutionOutcome = "found"
	ResolutionNotFound  ResolutionOutcome = "not_found"
	ResolutionAmbiguous ResolutionOutcome = "ambiguous"
)

// Resolution is the tagged result of entitlement lookup. Precedence is
// enumerated in Repository.ResolveEntitlement rather than falling through
// untyped branches.
type Resolution struct {
	Outcome     ResolutionOutcome `json:"outcome"`
	Entitlement *Entitlement      `json:"entitlement,omitempty"`
	Candidates  int               `json:"candidates"`
}

// CompensationToken captures what a successful consumption changed so the
// caller can restore it if a later step in the same operation fails.
type CompensationToken struct {
	PassID     int64             `json:"pass_id"`
	PrevStatus EntitlementStatus `json:"prev_status"`
	UsageID    uuid.UUID         `json:"usage_id"`
}
