package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"deskhub/internal/metrics"
)

var ErrNonPositiveAmount = errors.New("ledger entry amount must be positive")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Append(ctx context.Context, entry *Entry) error {
	if !entry.Amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.AppliedAt.IsZero() {
		entry.AppliedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO discount_ledger (id, booking_id, user_id, discount_type, action_type, amount, source_id, applied_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, entry.BookingID, entry.UserID, entry.DiscountType, entry.ActionType, entry.Amount, entry.SourceID, entry.AppliedAt)
	if err != nil {
		return err
	}

	metrics.RecordDiscount(string(entry.DiscountType), string(entry.ActionType))
	return nil
}

func (r *repository) HistoryForBooking(ctx context.Context, bookingID int64) ([]Entry, error) {
	entries := []Entry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, booking_id, user_id, discount_type, action_type, amount, source_id, applied_at
		FROM discount_ledger
		WHERE booking_id = $1
		ORDER BY applied_at ASC, id ASC
	`, bookingID)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// SummaryForBooking is a fold over the ledger rows themselves. Totals are
// never stored separately, so they cannot drift from the source of truth.
func (r *repository) SummaryForBooking(ctx context.Context, bookingID int64) (*Summary, error) {
	rows := []SummaryRow{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT discount_type, action_type, SUM(amount) AS total
		FROM discount_ledger
		WHERE booking_id = $1
		GROUP BY discount_type, action_type
		ORDER BY discount_type, action_type
	`, bookingID)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Total)
	}

	return &Summary{BookingID: bookingID, Rows: rows, Total: total}, nil
}
