package booking

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"deskhub/internal/payment"
)

type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusConfirmed      Status = "confirmed"
	StatusCancelled      Status = "cancelled"
	StatusRefunded       Status = "refunded"
)

// DecimalSlice stores a list of charge amounts as a jsonb column.
type DecimalSlice []decimal.Decimal

func (s DecimalSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]decimal.Decimal(s))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (s *DecimalSlice) Scan(src interface{}) error {
	if src == nil {
		*s = DecimalSlice{}
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into DecimalSlice", src)
	}

	var out []decimal.Decimal
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*s = out
	return nil
}

func (s DecimalSlice) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, v := range s {
		total = total.Add(v)
	}
	return total
}

// Booking is one reservation of a seat set at a location for a time window.
//
// TotalCost is the undiscounted price of the window. TotalAmount is what the
// user was actually quoted: discounts subtracted, processing fee added. The
// gap between the two, net of the fee, must always equal the booking's
// discount ledger total.
type Booking struct {
	ID            int64           `db:"id" json:"id"`
	Ref           string          `db:"ref" json:"ref"`
	UserID        int64           `db:"user_id" json:"user_id"`
	LocationID    int64           `db:"location_id" json:"location_id"`
	Seats         pq.StringArray  `db:"seats" json:"seats"`
	PartySize     int             `db:"party_size" json:"party_size"`
	StartAt       time.Time       `db:"start_at" json:"start_at"`
	EndAt         time.Time       `db:"end_at" json:"end_at"`
	Status        Status          `db:"status" json:"status"`
	TotalCost     decimal.Decimal `db:"total_cost" json:"total_cost"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	ProcessingFee decimal.Decimal `db:"processing_fee" json:"processing_fee"`
	PaymentMethod payment.Method  `db:"payment_method" json:"payment_method"`

	PaymentConfirmed bool `db:"payment_confirmed" json:"payment_confirmed"`

	RescheduleCount       int              `db:"reschedule_count" json:"reschedule_count"`
	RescheduledAt         *time.Time       `db:"rescheduled_at" json:"rescheduled_at,omitempty"`
	PendingRescheduleOwed *decimal.Decimal `db:"pending_reschedule_owed" json:"pending_reschedule_owed,omitempty"`
	PendingRescheduleFee  *decimal.Decimal `db:"pending_reschedule_fee" json:"pending_reschedule_fee,omitempty"`
	ReschedulePaymentID   *int64           `db:"reschedule_payment_id" json:"reschedule_payment_id,omitempty"`

	ExtensionAmounts DecimalSlice    `db:"extension_amounts" json:"extension_amounts"`
	TotalActualCost  decimal.Decimal `db:"total_actual_cost" json:"total_actual_cost"`

	PromoCodeID  *int64  `db:"promo_code_id" json:"promo_code_id,omitempty"`
	PassID       *int64  `db:"pass_id" json:"pass_id,omitempty"`
	PaymentID    *int64  `db:"payment_id" json:"payment_id,omitempty"`
	CancelReason *string `db:"cancel_reason" json:"cancel_reason,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (b *Booking) DurationHours() decimal.Decimal {
	return decimal.NewFromFloat(b.EndAt.Sub(b.StartAt).Hours())
}

type ExtensionStatus string

const (
	ExtensionPending   ExtensionStatus = "pending"
	ExtensionConfirmed ExtensionStatus = "confirmed"
)

// Extension is a pending or confirmed lengthening of a booking's window.
// The booking's end time only moves once the extension payment is confirmed.
type Extension struct {
	ID          int64           `db:"id" json:"id"`
	BookingID   int64           `db:"booking_id" json:"booking_id"`
	OldEndAt    time.Time       `db:"old_end_at" json:"old_end_at"`
	NewEndAt    time.Time       `db:"new_end_at" json:"new_end_at"`
	Cost        decimal.Decimal `db:"cost" json:"cost"`
	Fee         decimal.Decimal `db:"fee" json:"fee"`
	Status      ExtensionStatus `db:"status" json:"status"`
	PaymentID   *int64          `db:"payment_id" json:"payment_id,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	ConfirmedAt *time.Time      `db:"confirmed_at" json:"confirmed_at,omitempty"`
}

type CreateRequest struct {
	LocationID    int64           `json:"location_id" binding:"required"`
	Seats         []string        `json:"seats" binding:"required,min=1"`
	PartySize     int             `json:"party_size"`
	StartAt       time.Time       `json:"start_at" binding:"required"`
	EndAt         time.Time       `json:"end_at" binding:"required"`
	PaymentMethod payment.Method  `json:"payment_method" binding:"required"`
	PromoCodeID   *int64          `json:"promo_code_id,omitempty"`
	CreditAmount  decimal.Decimal `json:"credit_amount"`
	Ref           string          `json:"ref,omitempty"`
}

type RescheduleRequest struct {
	StartAt      time.Time       `json:"start_at" binding:"required"`
	EndAt        time.Time       `json:"end_at" binding:"required"`
	Seats        []string        `json:"seats,omitempty"`
	CreditAmount decimal.Decimal `json:"credit_amount"`
}

type ExtendRequest struct {
	NewEndAt time.Time `json:"new_end_at" binding:"required"`
}

type ConfirmExtensionRequest struct {
	CreditAmount decimal.Decimal `json:"credit_amount"`
}

type ApplyPassRequest struct {
	PassID int64 `json:"pass_id" binding:"required"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}
