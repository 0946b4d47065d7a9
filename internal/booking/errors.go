package booking

import (
	"fmt"
	"strings"

	"deskhub/internal/apperr"
)

var (
	ErrNotFound           = apperr.New(apperr.KindNotFound, "booking not found")
	ErrNotOwner           = apperr.New(apperr.KindValidation, "booking does not belong to this user")
	ErrDuplicateRef       = apperr.New(apperr.KindConflict, "booking reference already exists")
	ErrUserOverlap        = apperr.New(apperr.KindConflict, "user already has a booking overlapping this window at this location")
	ErrNotConfirmed       = apperr.New(apperr.KindConflict, "booking is not confirmed")
	ErrAlreadyCancelled   = apperr.New(apperr.KindConflict, "booking is already cancelled")
	ErrAlreadyConfirmed   = apperr.New(apperr.KindConflict, "booking payment is already confirmed")
	ErrAlreadyRescheduled = apperr.New(apperr.KindConflict, "booking has already been rescheduled once")
	ErrWindowInPast       = apperr.New(apperr.KindValidation, "booking window must start in the future")
	ErrEndNotAfterStart   = apperr.New(apperr.KindValidation, "booking window end must be after start")

	// errSeatConflict is the sentinel SeatConflictError unwraps to, so
	// apperr.KindOf classifies it as a conflict.
	errSeatConflict = apperr.New(apperr.KindConflict, "requested seats are already booked")
)

// SeatConflictError reports which seats clash with existing bookings in the
// requested window, split by whether the clashing booking is confirmed or
// still awaiting payment. RequiresSeatSelection is set when the caller reused
// the booking's current seats and can retry with a different set.
type SeatConflictError struct {
	Seats                 []string
	ConfirmedCount        int
	PendingCount          int
	RequiresSeatSelection bool
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seats unavailable in the requested window: %s (%d confirmed, %d pending conflicts)",
		strings.Join(e.Seats, ", "), e.ConfirmedCount, e.PendingCount)
}

func (e *SeatConflictError) Unwrap() error {
	return errSeatConflict
}

// ValidationError carries a field-level detail list, e.g. unknown seat labels.
type ValidationError struct {
	Msg     string
	Details []string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Msg
	}
	return e.Msg + ": " + strings.Join(e.Details, ", ")
}

func (e *ValidationError) Unwrap() error {
	return apperr.New(apperr.KindValidation, e.Msg)
}
