package payment

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p *Payment) (*Payment, error) {
	created := &Payment{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO payments (booking_id, user_id, method, status, amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, booking_id, user_id, method, status, amount, created_at, updated_at
	`, p.BookingID, p.UserID, p.Method, p.Status, p.Amount).StructScan(created)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Payment, error) {
	p := &Payment{}
	err := r.db.GetContext(ctx, p, `
		SELECT id, booking_id, user_id, method, status, amount, created_at, updated_at
		FROM payments
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repository) MarkConfirmed(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = 'confirmed', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

func (r *repository) FetchFeeSettings(ctx context.Context) (*FeeSnapshot, error) {
	row := feeSettingsRow{}
	err := r.db.GetContext(ctx, &row, `
		SELECT card_fee_percent, transfer_flat_fee, transfer_fee_floor
		FROM payment_settings
		ORDER BY updated_at DESC
		LIMIT 1
	`)
	if err != nil {
		return nil, err
	}

	return &FeeSnapshot{
		CardFeePercent:   row.CardFeePercent,
		TransferFlatFee:  row.TransferFlatFee,
		TransferFeeFloor: row.TransferFeeFloor,
		FetchedAt:        time.Now(),
	}, nil
}
