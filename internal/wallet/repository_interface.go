package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Repository interface {
	// ActiveGrants returns active, non-expired grants ordered by soonest
	// expiry first.
	ActiveGrants(ctx context.Context, userID int64) ([]CreditGrant, error)
	Grant(ctx context.Context, userID int64, amount decimal.Decimal, expiresAt time.Time) (*CreditGrant, error)
	// DrainGrant subtracts amount from a grant. The update is conditional on
	// the grant still being active with at least that much remaining; it
	// reports whether a row was actually changed.
	DrainGrant(ctx context.Context, grantID uuid.UUID, amount decimal.Decimal) (bool, error)
	// RestoreGrant re-credits a previously drained amount. Compensation path.
	RestoreGrant(ctx context.Context, grantID uuid.UUID, amount decimal.Decimal) error
	InsertConsumption(ctx context.Context, c *Consumption) error
	// DeleteConsumption removes a consumption record. Compensation path: a
	// reverted drain must not leave a usage row behind.
	DeleteConsumption(ctx context.Context, id uuid.UUID) error
	// ExpireGrants marks overdue active grants as expired and returns how
	// many rows changed. Safe to re-run.
	ExpireGrants(ctx context.Context, now time.Time) (int64, error)
	Balance(ctx context.Context, userID int64) (decimal.Decimal, error)
}
