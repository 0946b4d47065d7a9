package pass

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	GetType(ctx context.Context, id int64) (*PassType, error)
	ListTypes(ctx context.Context) ([]PassType, error)
	GetEntitlement(ctx context.Context, id int64) (*Entitlement, error)
	// ResolveEntitlement finds the entitlement to charge for a pass type.
	// Precedence: (1) an active entitlement row with remaining uses, soonest
	// expiry first; (2) a paid purchase with no materialized entitlement yet,
	// which is materialized on the spot. Both present at once is Ambiguous.
	ResolveEntitlement(ctx context.Context, userID, passTypeID int64) (*Resolution, error)
	// ConsumeOne decrements remaining_count by one, gated on it still being
	// positive. Reports whether the decrement happened.
	ConsumeOne(ctx context.Context, passID int64) (bool, error)
	// Restore undoes a single consumption: remaining_count back up by one and
	// the status back to what it was.
	Restore(ctx context.Context, passID int64, prevStatus EntitlementStatus) error
	InsertUsage(ctx context.Context, usage *Usage) error
	DeleteUsage(ctx context.Context, usageID uuid.UUID) error
	ListByUser(ctx context.Context, userID int64) ([]Entitlement, error)
	CreatePurchase(ctx context.Context, userID, passTypeID int64) (*Entitlement, error)
}
