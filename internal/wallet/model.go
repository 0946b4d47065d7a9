package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type GrantStatus string

const (
	GrantActive  GrantStatus = "active"
	GrantUsed    GrantStatus = "used"
	GrantExpired GrantStatus = "expired"
)

// CreditGrant is a monetary credit owned by a user. Amount is the remaining
// balance; grants are drained FIFO by soonest expiry and are never deleted,
// only transitioned to used or expired.
type CreditGrant struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	UserID        int64           `db:"user_id" json:"user_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	InitialAmount decimal.Decimal `db:"initial_amount" json:"initial_amount"`
	Status        GrantStatus     `db:"status" json:"status"`
	ExpiresAt     time.Time       `db:"expires_at" json:"expires_at"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

type Consumption struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	GrantID    uuid.UUID       `db:"grant_id" json:"grant_id"`
	BookingID  int64           `db:"booking_id" json:"booking_id"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	ActionType string          `db:"action_type" json:"action_type"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// ConsumeResult reports what was actually drained. Remainder is the shortfall
// the caller still has to collect by other means.
type ConsumeResult struct {
	AmountConsumed decimal.Decimal `json:"amount_consumed"`
	Remainder      decimal.Decimal `json:"remainder"`
	GrantsDrained  int             `json:"grants_drained"`
}

type GrantCreditRequest struct {
	UserID    int64  `json:"user_id" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
	ExpiresAt string `json:"expires_at" binding:"required"`
}
