package booking

import (
	"context"
	"time"
)

// ConflictReport is the result of checking a seat set against existing
// bookings in a window. Overlap is half-open: a booking ending exactly when
// another starts does not conflict.
type ConflictReport struct {
	Confirmed        []Booking `json:"confirmed"`
	Pending          []Booking `json:"pending"`
	ConflictingSeats []string  `json:"conflicting_seats"`
}

func (r *ConflictReport) HasSeatConflict() bool {
	return len(r.ConflictingSeats) > 0
}

// Detector finds seat-level conflicts between a requested window and the
// live bookings at a location.
type Detector struct {
	repo Repository
}

func NewDetector(repo Repository) *Detector {
	return &Detector{repo: repo}
}

// FindConflicts loads bookings overlapping [startAt, endAt) at the location
// and intersects their seat sets with the requested one. excludeID skips the
// booking being modified; pass 0 for new bookings.
func (d *Detector) FindConflicts(ctx context.Context, locationID int64, startAt, endAt time.Time, seats []string, excludeID int64) (*ConflictReport, error) {
	overlapping, err := d.repo.FindOverlapping(ctx, locationID, startAt, endAt, excludeID)
	if err != nil {
		return nil, err
	}

	requested := make(map[string]bool, len(seats))
	for _, seat := range seats {
		requested[seat] = true
	}

	report := &ConflictReport{}
	conflicting := map[string]bool{}

	for _, existing := range overlapping {
		clash := false
		for _, seat := range existing.Seats {
			if requested[seat] {
				clash = true
				conflicting[seat] = true
			}
		}
		if !clash {
			continue
		}

		if existing.PaymentConfirmed {
			report.Confirmed = append(report.Confirmed, existing)
		} else {
			report.Pending = append(report.Pending, existing)
		}
	}

	// Preserve the requested order so error messages are stable.
	for _, seat := range seats {
		if conflicting[seat] {
			report.ConflictingSeats = append(report.ConflictingSeats, seat)
		}
	}

	return report, nil
}
