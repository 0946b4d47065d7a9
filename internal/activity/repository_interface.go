package activity

import "context"

type Repository interface {
	Insert(ctx context.Context, entry *Entry) error
	ListByBooking(ctx context.Context, bookingID int64) ([]Entry, error)
}
