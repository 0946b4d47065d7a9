package promo

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id int64) (*PromoCode, error) {
	promo := &PromoCode{}
	err := r.db.GetContext(ctx, promo, `
		SELECT id, code, active, min_duration_hours, discount_type, value, max_discount, times_used, created_at
		FROM promo_codes
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	return promo, nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (*PromoCode, error) {
	promo := &PromoCode{}
	err := r.db.GetContext(ctx, promo, `
		SELECT id, code, active, min_duration_hours, discount_type, value, max_discount, times_used, created_at
		FROM promo_codes
		WHERE code = $1
	`, code)
	if err != nil {
		return nil, err
	}
	return promo, nil
}

func (r *repository) IncrementUsage(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE promo_codes
		SET times_used = times_used + 1
		WHERE id = $1
	`, id)
	return err
}

func (r *repository) Create(ctx context.Context, promo *PromoCode) (*PromoCode, error) {
	created := &PromoCode{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO promo_codes (code, active, min_duration_hours, discount_type, value, max_discount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, code, active, min_duration_hours, discount_type, value, max_discount, times_used, created_at
	`, promo.Code, promo.Active, promo.MinDurationHours, promo.DiscountType, promo.Value, promo.MaxDiscount).StructScan(created)
	if err != nil {
		return nil, err
	}
	return created, nil
}
