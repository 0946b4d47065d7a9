package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

type Method string

type Status string

const (
	MethodCreditCard Method = "credit_card"
	MethodDebitCard  Method = "debit_card"
	MethodTransfer   Method = "transfer"

	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

type Payment struct {
	ID        int64           `db:"id" json:"id"`
	BookingID *int64          `db:"booking_id" json:"booking_id,omitempty"`
	UserID    int64           `db:"user_id" json:"user_id"`
	Method    Method          `db:"method" json:"method"`
	Status    Status          `db:"status" json:"status"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// FeeSnapshot is the fee configuration in force at a point in time. Lifecycle
// operations receive a snapshot instead of reading mutable global settings.
type FeeSnapshot struct {
	CardFeePercent   decimal.Decimal `json:"card_fee_percent"`
	TransferFlatFee  decimal.Decimal `json:"transfer_flat_fee"`
	TransferFeeFloor decimal.Decimal `json:"transfer_fee_floor"`
	FetchedAt        time.Time       `json:"fetched_at"`
}

func isCardFamily(m Method) bool {
	return m == MethodCreditCard || m == MethodDebitCard
}
