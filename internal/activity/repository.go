package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, entry *Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_log (id, booking_id, booking_ref, activity_type, title, description, actor, amount, old_value, new_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, entry.ID, entry.BookingID, entry.BookingRef, entry.ActivityType, entry.Title,
		entry.Description, entry.Actor, entry.Amount, entry.OldValue, entry.NewValue, entry.CreatedAt)
	return err
}

func (r *repository) ListByBooking(ctx context.Context, bookingID int64) ([]Entry, error) {
	entries := []Entry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, booking_id, booking_ref, activity_type, title, description, actor, amount, old_value, new_value, created_at
		FROM activity_log
		WHERE booking_id = $1
		ORDER BY created_at ASC, id ASC
	`, bookingID)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
