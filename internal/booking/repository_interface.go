package booking

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, b *Booking) (*Booking, error)
	GetByID(ctx context.Context, id int64) (*Booking, error)
	GetByRef(ctx context.Context, ref string) (*Booking, error)
	RefExists(ctx context.Context, ref string) (bool, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Booking, error)

	// FindOverlapping returns non-cancelled bookings at the location whose
	// window intersects [startAt, endAt). Half-open: touching edges do not
	// overlap. excludeID skips one booking; 0 skips nothing.
	FindOverlapping(ctx context.Context, locationID int64, startAt, endAt time.Time, excludeID int64) ([]Booking, error)
	// FindUserOverlapping is the same check scoped to one user's bookings.
	FindUserOverlapping(ctx context.Context, userID, locationID int64, startAt, endAt time.Time) ([]Booking, error)

	// FinalizeAmounts writes the quoted totals and payment link once pricing
	// is settled during creation.
	FinalizeAmounts(ctx context.Context, id int64, totalAmount, processingFee decimal.Decimal, paymentID int64) error
	ClearPromo(ctx context.Context, id int64) error
	SetPass(ctx context.Context, id, passID int64) error

	// MarkPaymentConfirmed transitions pending_payment to confirmed.
	// Conditional on the booking not already being confirmed; reports whether
	// this call won the transition.
	MarkPaymentConfirmed(ctx context.Context, id int64) (bool, error)
	// ApplyDiscountToTotal subtracts an amount from total_amount and
	// total_actual_cost after a discount lands at confirmation time.
	ApplyDiscountToTotal(ctx context.Context, id int64, amount decimal.Decimal) error

	// ApplySchedule moves the booking to a new window and seat set.
	// Conditional on the booking being confirmed and never rescheduled;
	// reports whether the move happened.
	ApplySchedule(ctx context.Context, id int64, startAt, endAt time.Time, seats []string) (bool, error)
	SetPendingReschedule(ctx context.Context, id int64, owed, fee decimal.Decimal, paymentID int64) error
	// SettleReschedule folds the pending reschedule charge into the booking
	// totals and clears the pending fields. Conditional on a charge still
	// being pending; reports whether anything was settled.
	SettleReschedule(ctx context.Context, id int64) (bool, error)

	InsertExtension(ctx context.Context, ext *Extension) (*Extension, error)
	GetExtension(ctx context.Context, id int64) (*Extension, error)
	// MarkExtensionConfirmed transitions a pending extension to confirmed.
	// Reports whether this call won the transition.
	MarkExtensionConfirmed(ctx context.Context, id int64) (bool, error)
	// ApplyExtension moves the booking's end time out and appends the charge
	// to extension_amounts and total_actual_cost.
	ApplyExtension(ctx context.Context, id int64, newEndAt time.Time, charged decimal.Decimal) error

	// Cancel transitions to cancelled. Conditional on the booking not already
	// being cancelled or refunded; reports whether it happened.
	Cancel(ctx context.Context, id int64, reason string) (bool, error)
}
