package promo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"deskhub/internal/apperr"
)

var (
	ErrInactive = apperr.New(apperr.KindValidation, "promo code is not active")
	ErrTooShort = apperr.New(apperr.KindValidation, "booking is shorter than the promo code's minimum duration")
	ErrNotFound = apperr.New(apperr.KindNotFound, "promo code not found")
)

var hundredPercent = decimal.NewFromInt(100)

type Service interface {
	// Validate checks a promo code against its activity flag and minimum
	// duration for the given booking window.
	Validate(ctx context.Context, promoID int64, startAt, endAt time.Time) (*PromoCode, error)
	// RecordUsage is called once payment is confirmed.
	RecordUsage(ctx context.Context, promoID int64) error
	Create(ctx context.Context, promo *PromoCode) (*PromoCode, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Validate(ctx context.Context, promoID int64, startAt, endAt time.Time) (*PromoCode, error) {
	promo, err := s.repo.GetByID(ctx, promoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !promo.Active {
		return nil, ErrInactive
	}

	if promo.MinDurationHours != nil {
		durationHours := endAt.Sub(startAt).Hours()
		if durationHours < float64(*promo.MinDurationHours) {
			return nil, ErrTooShort
		}
	}

	return promo, nil
}

func (s *service) RecordUsage(ctx context.Context, promoID int64) error {
	return s.repo.IncrementUsage(ctx, promoID)
}

func (s *service) Create(ctx context.Context, promo *PromoCode) (*PromoCode, error) {
	return s.repo.Create(ctx, promo)
}

// Discount computes the amount a promo code takes off a gross amount.
// Percentage codes are optionally capped; results never go below zero.
func Discount(promo *PromoCode, gross decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch promo.DiscountType {
	case TypePercentage:
		discount = gross.Mul(promo.Value).Div(hundredPercent)
		if promo.MaxDiscount != nil && discount.GreaterThan(*promo.MaxDiscount) {
			discount = *promo.MaxDiscount
		}
	case TypeFixed:
		discount = promo.Value
	default:
		return decimal.Zero
	}

	if discount.GreaterThan(gross) {
		return gross
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount
}
