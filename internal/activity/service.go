package activity

import (
	"context"

	"deskhub/internal/logger"
)

type Service interface {
	// Record appends an audit entry. It never fails the caller: persistence
	// errors are logged and swallowed.
	Record(ctx context.Context, entry *Entry)
	History(ctx context.Context, bookingID int64) ([]Entry, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Record(ctx context.Context, entry *Entry) {
	if err := s.repo.Insert(ctx, entry); err != nil {
		logger.Error("failed to record activity",
			"booking_id", entry.BookingID,
			"activity_type", entry.ActivityType,
			"error", err,
		)
	}
}

func (s *service) History(ctx context.Context, bookingID int64) ([]Entry, error) {
	return s.repo.ListByBooking(ctx, bookingID)
}
