package promo

import "context"

type Repository interface {
	GetByID(ctx context.Context, id int64) (*PromoCode, error)
	GetByCode(ctx context.Context, code string) (*PromoCode, error)
	// IncrementUsage bumps the usage counter. Called once payment is
	// confirmed, never at validation time, so abandoned attempts don't count.
	IncrementUsage(ctx context.Context, id int64) error
	Create(ctx context.Context, promo *PromoCode) (*PromoCode, error)
}
