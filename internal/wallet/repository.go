package wallet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ActiveGrants(ctx context.Context, userID int64) ([]CreditGrant, error) {
	grants := []CreditGrant{}
	err := r.db.SelectContext(ctx, &grants, `
		SELECT id, user_id, amount, initial_amount, status, expires_at, created_at, updated_at
		FROM credit_grants
		WHERE user_id = $1 AND status = 'active' AND expires_at > NOW()
		ORDER BY expires_at ASC, created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	return grants, nil
}

func (r *repository) Grant(ctx context.Context, userID int64, amount decimal.Decimal, expiresAt time.Time) (*CreditGrant, error) {
	grant := &CreditGrant{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO credit_grants (id, user_id, amount, initial_amount, status, expires_at)
		VALUES ($1, $2, $3, $3, 'active', $4)
		RETURNING id, user_id, amount, initial_amount, status, expires_at, created_at, updated_at
	`, uuid.New(), userID, amount, expiresAt).StructScan(grant)
	if err != nil {
		return nil, err
	}
	return grant, nil
}

func (r *repository) DrainGrant(ctx context.Context, grantID uuid.UUID, amount decimal.Decimal) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE credit_grants
		SET amount = amount - $2,
		    status = CASE WHEN amount - $2 <= 0 THEN 'used' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'active' AND amount >= $2
	`, grantID, amount)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

func (r *repository) RestoreGrant(ctx context.Context, grantID uuid.UUID, amount decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE credit_grants
		SET amount = amount + $2,
		    status = CASE WHEN status = 'used' THEN 'active' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1
	`, grantID, amount)
	return err
}

func (r *repository) InsertConsumption(ctx context.Context, c *Consumption) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credit_consumptions (id, grant_id, booking_id, amount, action_type)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.GrantID, c.BookingID, c.Amount, c.ActionType)
	return err
}

func (r *repository) DeleteConsumption(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM credit_consumptions
		WHERE id = $1
	`, id)
	return err
}

func (r *repository) ExpireGrants(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE credit_grants
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'active' AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *repository) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.GetContext(ctx, &balance, `
		SELECT COALESCE(SUM(amount), 0)
		FROM credit_grants
		WHERE user_id = $1 AND status = 'active' AND expires_at > NOW()
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return balance, nil
}
