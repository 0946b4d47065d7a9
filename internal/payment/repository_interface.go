package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, p *Payment) (*Payment, error)
	GetByID(ctx context.Context, id int64) (*Payment, error)
	// MarkConfirmed transitions a pending payment to confirmed. Conditional:
	// reports false if the payment was not pending.
	MarkConfirmed(ctx context.Context, id int64) (bool, error)
	FetchFeeSettings(ctx context.Context) (*FeeSnapshot, error)
}

type feeSettingsRow struct {
	CardFeePercent   decimal.Decimal `db:"card_fee_percent"`
	TransferFlatFee  decimal.Decimal `db:"transfer_flat_fee"`
	TransferFeeFloor decimal.Decimal `db:"transfer_fee_floor"`
}
