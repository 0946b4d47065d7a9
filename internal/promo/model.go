package promo

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	TypePercentage DiscountType = "percentage"
	TypeFixed      DiscountType = "fixed"
)

type PromoCode struct {
	ID               int64            `db:"id" json:"id"`
	Code             string           `db:"code" json:"code"`
	Active           bool             `db:"active" json:"active"`
	MinDurationHours *int             `db:"min_duration_hours" json:"min_duration_hours,omitempty"`
	DiscountType     DiscountType     `db:"discount_type" json:"discount_type"`
	Value            decimal.Decimal  `db:"value" json:"value"`
	MaxDiscount      *decimal.Decimal `db:"max_discount" json:"max_discount,omitempty"`
	TimesUsed        int              `db:"times_used" json:"times_used"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
}
