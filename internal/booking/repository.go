package booking

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"deskhub/internal/db"
)

const bookingColumns = `
	id, ref, user_id, location_id, seats, party_size, start_at, end_at,
	status, total_cost, total_amount, processing_fee, payment_method,
	payment_confirmed, reschedule_count, rescheduled_at,
	pending_reschedule_owed, pending_reschedule_fee, reschedule_payment_id,
	extension_amounts, total_actual_cost,
	promo_code_id, pass_id, payment_id, cancel_reason,
	created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, b *Booking) (*Booking, error) {
	created := &Booking{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO bookings (
			ref, user_id, location_id, seats, party_size, start_at, end_at,
			status, total_cost, total_amount, processing_fee, payment_method,
			promo_code_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+bookingColumns,
		b.Ref, b.UserID, b.LocationID, b.Seats, b.PartySize, b.StartAt, b.EndAt,
		b.Status, b.TotalCost, b.TotalAmount, b.ProcessingFee, b.PaymentMethod,
		b.PromoCodeID,
	).StructScan(created)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Booking, error) {
	b := &Booking{}
	err := r.db.GetContext(ctx, b, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *repository) GetByRef(ctx context.Context, ref string) (*Booking, error) {
	b := &Booking{}
	err := r.db.GetContext(ctx, b, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE ref = $1
	`, ref)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *repository) RefExists(ctx context.Context, ref string) (bool, error) {
	return db.Exists(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM bookings WHERE ref = $1)`, ref)
}

func (r *repository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Booking, error) {
	bookings := []Booking{}
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE user_id = $1
		ORDER BY start_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *repository) FindOverlapping(ctx context.Context, locationID int64, startAt, endAt time.Time, excludeID int64) ([]Booking, error) {
	bookings := []Booking{}
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE location_id = $1
		  AND status NOT IN ('cancelled', 'refunded')
		  AND start_at < $3 AND end_at > $2
		  AND ($4 = 0 OR id <> $4)
	`, locationID, startAt, endAt, excludeID)
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *repository) FindUserOverlapping(ctx context.Context, userID, locationID int64, startAt, endAt time.Time) ([]Booking, error) {
	bookings := []Booking{}
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE user_id = $1 AND location_id = $2
		  AND status NOT IN ('cancelled', 'refunded')
		  AND start_at < $4 AND end_at > $3
	`, userID, locationID, startAt, endAt)
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *repository) FinalizeAmounts(ctx context.Context, id int64, totalAmount, processingFee decimal.Decimal, paymentID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET total_amount = $2, processing_fee = $3, payment_id = $4, updated_at = NOW()
		WHERE id = $1
	`, id, totalAmount, processingFee, paymentID)
	return err
}

func (r *repository) ClearPromo(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET promo_code_id = NULL, updated_at = NOW()
		WHERE id = $1
	`, id)
	return err
}

func (r *repository) SetPass(ctx context.Context, id, passID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET pass_id = $2, updated_at = NOW()
		WHERE id = $1
	`, id, passID)
	return err
}

func (r *repository) MarkPaymentConfirmed(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'confirmed', payment_confirmed = TRUE,
		    total_actual_cost = total_amount, updated_at = NOW()
		WHERE id = $1 AND payment_confirmed = FALSE AND status = 'pending_payment'
	`, id)
	if err != nil {
		return false, err
	}
	return affected(result)
}

func (r *repository) ApplyDiscountToTotal(ctx context.Context, id int64, amount decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET total_amount = total_amount - $2,
		    total_actual_cost = total_actual_cost - $2,
		    updated_at = NOW()
		WHERE id = $1
	`, id, amount)
	return err
}

func (r *repository) ApplySchedule(ctx context.Context, id int64, startAt, endAt time.Time, seats []string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET start_at = $2, end_at = $3, seats = $4,
		    reschedule_count = reschedule_count + 1, rescheduled_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed' AND reschedule_count = 0
	`, id, startAt, endAt, pq.Array(seats))
	if err != nil {
		return false, err
	}
	return affected(result)
}

func (r *repository) SetPendingReschedule(ctx context.Context, id int64, owed, fee decimal.Decimal, paymentID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET pending_reschedule_owed = $2, pending_reschedule_fee = $3,
		    reschedule_payment_id = $4, updated_at = NOW()
		WHERE id = $1
	`, id, owed, fee, paymentID)
	return err
}

func (r *repository) SettleReschedule(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET total_amount = total_amount + pending_reschedule_owed,
		    total_actual_cost = total_actual_cost + pending_reschedule_owed,
		    processing_fee = processing_fee + pending_reschedule_fee,
		    pending_reschedule_owed = NULL, pending_reschedule_fee = NULL,
		    reschedule_payment_id = NULL, updated_at = NOW()
		WHERE id = $1 AND pending_reschedule_owed IS NOT NULL
	`, id)
	if err != nil {
		return false, err
	}
	return affected(result)
}

func (r *repository) InsertExtension(ctx context.Context, ext *Extension) (*Extension, error) {
	created := &Extension{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO booking_extensions (booking_id, old_end_at, new_end_at, cost, fee, status, payment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, booking_id, old_end_at, new_end_at, cost, fee, status, payment_id, created_at, confirmed_at
	`, ext.BookingID, ext.OldEndAt, ext.NewEndAt, ext.Cost, ext.Fee, ext.Status, ext.PaymentID).StructScan(created)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *repository) GetExtension(ctx context.Context, id int64) (*Extension, error) {
	ext := &Extension{}
	err := r.db.GetContext(ctx, ext, `
		SELECT id, booking_id, old_end_at, new_end_at, cost, fee, status, payment_id, created_at, confirmed_at
		FROM booking_extensions
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	return ext, nil
}

func (r *repository) MarkExtensionConfirmed(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE booking_extensions
		SET status = 'confirmed', confirmed_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return false, err
	}
	return affected(result)
}

func (r *repository) ApplyExtension(ctx context.Context, id int64, newEndAt time.Time, charged decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET end_at = GREATEST(end_at, $2),
		    extension_amounts = extension_amounts || to_jsonb($3::numeric),
		    total_actual_cost = total_actual_cost + $3::numeric,
		    updated_at = NOW()
		WHERE id = $1
	`, id, newEndAt, charged)
	return err
}

func (r *repository) Cancel(ctx context.Context, id int64, reason string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'cancelled', cancel_reason = $2, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('cancelled', 'refunded')
	`, id, reason)
	if err != nil {
		return false, err
	}
	return affected(result)
}

func affected(result interface{ RowsAffected() (int64, error) }) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
