package pass

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetType(ctx context.Context, id int64) (*PassType, error) {
	pt := &PassType{}
	err := r.db.GetContext(ctx, pt, `
		SELECT id, name, allowance_hours, allowed_from_hour, allowed_to_hour, total_uses, price, validity_days, created_at
		FROM pass_types
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	return pt, nil
}

func (r *repository) ListTypes(ctx context.Context) ([]PassType, error) {
	types := []PassType{}
	err := r.db.SelectContext(ctx, &types, `
		SELECT id, name, allowance_hours, allowed_from_hour, allowed_to_hour, total_uses, price, validity_days, created_at
		FROM pass_types
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	return types, nil
}

func (r *repository) GetEntitlement(ctx context.Context, id int64) (*Entitlement, error) {
	e := &Entitlement{}
	err := r.db.GetContext(ctx, e, `
		SELECT id, user_id, purchase_id, pass_type_id, total_count, remaining_count, active_from, active_to, status, created_at, updated_at
		FROM user_passes
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *repository) ResolveEntitlement(ctx context.Context, userID, passTypeID int64) (*Resolution, error) {
	entitlements := []Entitlement{}
	err := r.db.SelectContext(ctx, &entitlements, `
		SELECT id, user_id, purchase_id, pass_type_id, total_count, remaining_count, active_from, active_to, status, created_at, updated_at
		FROM user_passes
		WHERE user_id = $1
		  AND pass_type_id = $2
		  AND status = 'active'
		  AND remaining_count > 0
		  AND active_from <= NOW()
		  AND active_to >= NOW()
		ORDER BY active_to ASC, id ASC
	`, userID, passTypeID)
	if err != nil {
		return nil, err
	}

	var unmaterialized int
	err = r.db.GetContext(ctx, &unmaterialized, `
		SELECT COUNT(*)
		FROM pass_purchases p
		WHERE p.user_id = $1
		  AND p.pass_type_id = $2
		  AND p.status = 'paid'
		  AND NOT EXISTS (SELECT 1 FROM user_passes up WHERE up.purchase_id = p.id)
	`, userID, passTypeID)
	if err != nil {
		return nil, err
	}

	switch {
	case len(entitlements) > 0 && unmaterialized > 0:
		return &Resolution{Outcome: ResolutionAmbiguous, Candidates: len(entitlements) + unmaterialized}, nil
	case len(entitlements) > 0:
		// Multiple active entitlements charge soonest-expiring first.
		return &Resolution{Outcome: ResolutionFound, Entitlement: &entitlements[0], Candidates: len(entitlements)}, nil
	case unmaterialized > 0:
		e, err := r.materializeOldestPurchase(ctx, userID, passTypeID)
		if err != nil {
			return nil, err
		}
		return &Resolution{Outcome: ResolutionFound, Entitlement: e, Candidates: unmaterialized}, nil
	default:
		return &Resolution{Outcome: ResolutionNotFound}, nil
	}
}

func (r *repository) materializeOldestPurchase(ctx context.Context, userID, passTypeID int64) (*Entitlement, error) {
	e := &Entitlement{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO user_passes (user_id, purchase_id, pass_type_id, total_count, remaining_count, active_from, active_to, status)
		SELECT p.user_id, p.id, p.pass_type_id, t.total_uses, t.total_uses, NOW(), NOW() + (t.validity_days || ' days')::interval, 'active'
		FROM pass_purchases p
		JOIN pass_types t ON t.id = p.pass_type_id
		WHERE p.user_id = $1
		  AND p.pass_type_id = $2
		  AND p.status = 'paid'
		  AND NOT EXISTS (SELECT 1 FROM user_passes up WHERE up.purchase_id = p.id)
		ORDER BY p.created_at ASC
		LIMIT 1
		RETURNING id, user_id, purchase_id, pass_type_id, total_count, remaining_count, active_from, active_to, status, created_at, updated_at
	`, userID, passTypeID).StructScan(e)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *repository) ConsumeOne(ctx context.Context, passID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE user_passes
		SET remaining_count = remaining_count - 1,
		    status = CASE WHEN remaining_count - 1 = 0 THEN 'used' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1 AND remaining_count > 0
	`, passID)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

func (r *repository) Restore(ctx context.Context, passID int64, prevStatus EntitlementStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE user_passes
		SET remaining_count = remaining_count + 1,
		    status = $2,
		    updated_at = NOW()
		WHERE id = $1
	`, passID, prevStatus)
	return err
}

func (r *repository) InsertUsage(ctx context.Context, usage *Usage) error {
	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pass_usages (id, pass_id, booking_id, minutes_applied)
		VALUES ($1, $2, $3, $4)
	`, usage.ID, usage.PassID, usage.BookingID, usage.MinutesApplied)
	return err
}

func (r *repository) DeleteUsage(ctx context.Context, usageID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pass_usages WHERE id = $1`, usageID)
	return err
}

func (r *repository) ListByUser(ctx context.Context, userID int64) ([]Entitlement, error) {
	entitlements := []Entitlement{}
	err := r.db.SelectContext(ctx, &entitlements, `
		SELECT id, user_id, purchase_id, pass_type_id, total_count, remaining_count, active_from, active_to, status, created_at, updated_at
		FROM user_passes
		WHERE user_id = $1
		ORDER BY active_to ASC, id ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	return entitlements, nil
}

func (r *repository) CreatePurchase(ctx context.Context, userID, passTypeID int64) (*Entitlement, error) {
	purchaseID := uuid.New()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pass_purchases (id, user_id, pass_type_id, status)
		VALUES ($1, $2, $3, 'paid')
	`, purchaseID, userID, passTypeID)
	if err != nil {
		return nil, err
	}

	e := &Entitlement{}
	err = r.db.QueryRowxContext(ctx, `
		INSERT INTO user_passes (user_id, purchase_id, pass_type_id, total_count, remaining_count, active_from, active_to, status)
		SELECT $1, $2, t.id, t.total_uses, t.total_uses, NOW(), NOW() + (t.validity_days || ' days')::interval, 'active'
		FROM pass_types t
		WHERE t.id = $3
		RETURNING id, user_id, purchase_id, pass_type_id, total_count, remaining_count, active_from, active_to, status, created_at, updated_at
	`, userID, purchaseID, passTypeID).StructScan(e)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return e, nil
}
