package ledger

import "context"

type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	HistoryForBooking(ctx context.Context, bookingID int64) ([]Entry, error)
	SummaryForBooking(ctx context.Context, bookingID int64) (*Summary, error)
}
