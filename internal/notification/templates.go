package notification

import (
	"context"
	"fmt"
	"time"
)

const timeLayout = "Jan 2, 2006 at 3:04 PM"

func (s *Service) SendBookingConfirmation(ctx context.Context, email, name, locationName string, startAt, endAt time.Time, seats []string) error {
	body := fmt.Sprintf(`Hi %s,

Your booking is confirmed!

Location: %s
From: %s
To: %s
Seats: %v

See you there!

- DeskHub Team`, name, locationName, startAt.Format(timeLayout), endAt.Format(timeLayout), seats)

	return s.Send(ctx, Job{
		To:      email,
		Name:    name,
		Type:    "booking_confirmation",
		Subject: "Booking Confirmed - " + locationName,
		Body:    body,
	})
}

func (s *Service) SendRescheduleConfirmation(ctx context.Context, email, name, locationName string, startAt, endAt time.Time) error {
	body := fmt.Sprintf(`Hi %s,

Your booking was rescheduled.

Location: %s
New start: %s
New end: %s

- DeskHub Team`, name, locationName, startAt.Format(timeLayout), endAt.Format(timeLayout))

	return s.Send(ctx, Job{
		To:      email,
		Name:    name,
		Type:    "reschedule_confirmation",
		Subject: "Booking Rescheduled - " + locationName,
		Body:    body,
	})
}

func (s *Service) SendExtensionConfirmation(ctx context.Context, email, name, locationName string, newEnd time.Time) error {
	body := fmt.Sprintf(`Hi %s,

Your booking was extended.

Location: %s
New end: %s

- DeskHub Team`, name, locationName, newEnd.Format(timeLayout))

	return s.Send(ctx, Job{
		To:      email,
		Name:    name,
		Type:    "extension_confirmation",
		Subject: "Booking Extended - " + locationName,
		Body:    body,
	})
}

func (s *Service) SendCancellation(ctx context.Context, email, name, locationName, reason string) error {
	body := fmt.Sprintf(`Hi %s,

Your booking at %s has been cancelled.
Reason: %s

- DeskHub Team`, name, locationName, reason)

	return s.Send(ctx, Job{
		To:      email,
		Name:    name,
		Type:    "cancellation",
		Subject: "Booking Cancelled - " + locationName,
		Body:    body,
	})
}
