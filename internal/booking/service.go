package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"deskhub/internal/activity"
	"deskhub/internal/apperr"
	"deskhub/internal/ledger"
	"deskhub/internal/location"
	"deskhub/internal/logger"
	"deskhub/internal/metrics"
	"deskhub/internal/pass"
	"deskhub/internal/payment"
	"deskhub/internal/promo"
	"deskhub/internal/user"
	"deskhub/internal/wallet"
)

// duplicateSkew is the clock tolerance when matching a retried create against
// an existing booking. Client retries carry slightly different timestamps;
// anything inside this skew with the same seats is the same booking.
const duplicateSkew = 60 * time.Second

type Notifier interface {
	SendBookingConfirmation(ctx context.Context, email, name, locationName string, startAt, endAt time.Time, seats []string) error
	SendRescheduleConfirmation(ctx context.Context, email, name, locationName string, startAt, endAt time.Time) error
	SendExtensionConfirmation(ctx context.Context, email, name, locationName string, newEnd time.Time) error
	SendCancellation(ctx context.Context, email, name, locationName, reason string) error
}

type Service interface {
	// Create prices and persists a new booking in pending_payment. A retry
	// of a recent identical request returns the existing booking instead of
	// raising a conflict.
	Create(ctx context.Context, userID int64, req CreateRequest) (*Booking, error)
	// ConfirmPayment transitions the booking to confirmed, consumes any
	// attached pass and records promo usage. Only the booking's owner may
	// confirm. Idempotent: repeat calls return the booking without appending
	// new ledger entries.
	ConfirmPayment(ctx context.Context, userID, bookingID int64) (*Booking, error)
	// Reschedule moves a confirmed booking to a new window, at most once.
	// Any extra cost becomes a pending charge settled by
	// ConfirmReschedulePayment.
	Reschedule(ctx context.Context, userID, bookingID int64, req RescheduleRequest) (*Booking, error)
	ConfirmReschedulePayment(ctx context.Context, userID, bookingID int64) (*Booking, error)
	// Extend opens a pending extension of the booking's end time. The end
	// time only moves once ConfirmExtensionPayment settles the charge.
	Extend(ctx context.Context, userID, bookingID int64, req ExtendRequest) (*Extension, error)
	ConfirmExtensionPayment(ctx context.Context, userID, bookingID, extensionID int64, creditAmount decimal.Decimal) (*Booking, error)
	// ApplyPass attaches a pass to a not-yet-confirmed booking and returns
	// the pricing breakdown. The pass is only consumed at confirmation.
	ApplyPass(ctx context.Context, userID, bookingID, passID int64) (*pass.ValidationResult, error)
	ValidatePassUsage(ctx context.Context, userID, passTypeID, locationID int64, startAt, endAt time.Time, partySize int) (*pass.ValidationResult, error)
	Cancel(ctx context.Context, userID, bookingID int64, reason string) (*Booking, error)
	GetByID(ctx context.Context, bookingID int64) (*Booking, error)
	GetByRef(ctx context.Context, ref string) (*Booking, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Booking, error)
	DiscountHistory(ctx context.Context, bookingID int64) ([]ledger.Entry, error)
	DiscountSummary(ctx context.Context, bookingID int64) (*ledger.Summary, error)
	ActivityHistory(ctx context.Context, bookingID int64) ([]activity.Entry, error)
}

type Deps struct {
	Repo        Repository
	Locations   location.Repository
	Wallet      wallet.Service
	Passes      pass.Service
	Promos      promo.Service
	Ledger      ledger.Repository
	Activity    activity.Service
	Payments    payment.Repository
	FeeSettings *payment.SettingsProvider
	Users       user.Service
	Notifier    Notifier
}

type service struct {
	repo        Repository
	detector    *Detector
	locations   location.Repository
	wallet      wallet.Service
	passes      pass.Service
	promos      promo.Service
	ledger      ledger.Repository
	activity    activity.Service
	payments    payment.Repository
	feeSettings *payment.SettingsProvider
	users       user.Service
	notifier    Notifier

	now func() time.Time
}

func NewService(d Deps) Service {
	return &service{
		repo:        d.Repo,
		detector:    NewDetector(d.Repo),
		locations:   d.Locations,
		wallet:      d.Wallet,
		passes:      d.Passes,
		promos:      d.Promos,
		ledger:      d.Ledger,
		activity:    d.Activity,
		payments:    d.Payments,
		feeSettings: d.FeeSettings,
		users:       d.Users,
		notifier:    d.Notifier,
		now:         time.Now,
	}
}

func (s *service) Create(ctx context.Context, userID int64, req CreateRequest) (*Booking, error) {
	if !req.EndAt.After(req.StartAt) {
		return nil, ErrEndNotAfterStart
	}
	if req.StartAt.Before(s.now()) {
		return nil, ErrWindowInPast
	}
	if req.PartySize < 1 {
		req.PartySize = 1
	}
	if len(req.Seats) == 0 {
		return nil, apperr.New(apperr.KindValidation, "at least one seat is required")
	}

	loc, err := s.locations.GetLocation(ctx, req.LocationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "location not found")
		}
		return nil, err
	}

	missing, err := s.locations.MissingSeats(ctx, req.LocationID, req.Seats)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Msg: "unknown seats at this location", Details: missing}
	}

	ref := req.Ref
	if ref == "" {
		ref = "BK-" + strings.ToUpper(uuid.NewString()[:8])
	} else {
		exists, err := s.repo.RefExists(ctx, ref)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrDuplicateRef
		}
	}

	// A client retrying after a timeout sends the same booking again with
	// timestamps that may have drifted a little. Hand back the original
	// instead of rejecting or double-booking.
	skewStart := req.StartAt.Add(-duplicateSkew)
	skewEnd := req.EndAt.Add(duplicateSkew)
	mine, err := s.repo.FindUserOverlapping(ctx, userID, req.LocationID, skewStart, skewEnd)
	if err != nil {
		return nil, err
	}
	for i := range mine {
		if isNearDuplicate(&mine[i], req) {
			logger.Info("returning existing booking for retried create",
				"booking_id", mine[i].ID, "user_id", userID)
			return &mine[i], nil
		}
	}
	// Anything else of the user's that intersects the actual window is a
	// genuine double booking, not a retry.
	for i := range mine {
		if mine[i].StartAt.Before(req.EndAt) && mine[i].EndAt.After(req.StartAt) {
			return nil, ErrUserOverlap
		}
	}

	report, err := s.detector.FindConflicts(ctx, req.LocationID, req.StartAt, req.EndAt, req.Seats, 0)
	if err != nil {
		return nil, err
	}
	if report.HasSeatConflict() {
		metrics.SeatConflictsTotal.Inc()
		return nil, &SeatConflictError{
			Seats:          report.ConflictingSeats,
			ConfirmedCount: len(report.Confirmed),
			PendingCount:   len(report.Pending),
		}
	}

	hours := decimal.NewFromFloat(req.EndAt.Sub(req.StartAt).Hours())
	gross := hours.Mul(loc.HourlyRate).Mul(decimal.NewFromInt(int64(req.PartySize))).Round(2)

	var promoCode *promo.PromoCode
	promoDiscount := decimal.Zero
	if req.PromoCodeID != nil {
		promoCode, err = s.promos.Validate(ctx, *req.PromoCodeID, req.StartAt, req.EndAt)
		if err != nil {
			return nil, err
		}
		promoDiscount = promo.Discount(promoCode, gross)
	}

	b := &Booking{
		Ref:           ref,
		UserID:        userID,
		LocationID:    req.LocationID,
		Seats:         req.Seats,
		PartySize:     req.PartySize,
		StartAt:       req.StartAt,
		EndAt:         req.EndAt,
		Status:        StatusPendingPayment,
		TotalCost:     gross,
		TotalAmount:   gross,
		ProcessingFee: decimal.Zero,
		PaymentMethod: req.PaymentMethod,
		PromoCodeID:   req.PromoCodeID,
	}
	b, err = s.repo.Create(ctx, b)
	if err != nil {
		return nil, err
	}

	subtotal := gross
	if promoDiscount.IsPositive() {
		sourceID := strconv.FormatInt(promoCode.ID, 10)
		entry := &ledger.Entry{
			BookingID:    b.ID,
			UserID:       userID,
			DiscountType: ledger.DiscountPromoCode,
			ActionType:   ledger.ActionOriginalBooking,
			Amount:       promoDiscount,
			SourceID:     &sourceID,
		}
		if err := s.ledger.Append(ctx, entry); err != nil {
			// No entry, no discount. The booking stands at full price.
			logger.Error("promo ledger write failed, dropping discount",
				"booking_id", b.ID, "promo_id", promoCode.ID, "error", err)
			if clearErr := s.repo.ClearPromo(ctx, b.ID); clearErr != nil {
				logger.Error("failed to clear promo link", "booking_id", b.ID, "error", clearErr)
			}
			promoDiscount = decimal.Zero
		}
	}
	subtotal = subtotal.Sub(promoDiscount)

	if req.CreditAmount.IsPositive() && subtotal.IsPositive() {
		want := decimal.Min(req.CreditAmount, subtotal)
		result, err := s.wallet.Consume(ctx, userID, b.ID, want, ledger.ActionOriginalBooking)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindInconsistency {
				// Consumption was reverted; the booking is still payable in
				// full, so keep going without the credit.
				logger.Error("credit application failed, continuing without credit",
					"booking_id", b.ID, "error", err)
			} else {
				return nil, err
			}
		} else {
			subtotal = subtotal.Sub(result.AmountConsumed)
		}
	}

	snap := s.feeSettings.Snapshot()
	fee := payment.Fee(subtotal, req.PaymentMethod, snap)
	totalAmount := subtotal.Add(fee)

	pay, err := s.payments.Create(ctx, &payment.Payment{
		BookingID: &b.ID,
		UserID:    userID,
		Method:    req.PaymentMethod,
		Status:    payment.StatusPending,
		Amount:    totalAmount,
	})
	if err != nil {
		s.releasePending(ctx, b.ID)
		return nil, err
	}

	if err := s.repo.FinalizeAmounts(ctx, b.ID, totalAmount, fee, pay.ID); err != nil {
		s.releasePending(ctx, b.ID)
		return nil, err
	}

	s.activity.Record(ctx, &activity.Entry{
		BookingID:    b.ID,
		BookingRef:   b.Ref,
		ActivityType: activity.TypeBookingCreated,
		Title:        "Booking created",
		Description: fmt.Sprintf("%s, seats %s, %s to %s",
			loc.Name, strings.Join(req.Seats, ", "),
			req.StartAt.Format(time.RFC3339), req.EndAt.Format(time.RFC3339)),
		Actor:  actorUser(userID),
		Amount: &totalAmount,
	})
	metrics.RecordBooking("created")

	return s.repo.GetByID(ctx, b.ID)
}

// releasePending cancels a just-created booking whose payment setup failed,
// so it stops holding seats against other requests.
func (s *service) releasePending(ctx context.Context, bookingID int64) {
	if _, err := s.repo.Cancel(ctx, bookingID, "payment setup failed"); err != nil {
		logger.Error("failed to release pending booking", "booking_id", bookingID, "error", err)
	}
}

func isNearDuplicate(existing *Booking, req CreateRequest) bool {
	if existing.Status != StatusPendingPayment {
		return false
	}
	if absDuration(existing.StartAt.Sub(req.StartAt)) > duplicateSkew {
		return false
	}
	if absDuration(existing.EndAt.Sub(req.EndAt)) > duplicateSkew {
		return false
	}
	return sameSeatSet(existing.Seats, req.Seats)
}

func sameSeatSet(a []string, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, seat := range a {
		set[seat] = true
	}
	for _, seat := range b {
		if !set[seat] {
			return false
		}
	}
	return true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func (s *service) ConfirmPayment(ctx context.Context, userID, bookingID int64) (*Booking, error) {
	b, err := s.getOwned(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	if b.PaymentConfirmed {
		return b, nil
	}
	if b.Status == StatusCancelled || b.Status == StatusRefunded {
		return nil, ErrAlreadyCancelled
	}

	won, err := s.repo.MarkPaymentConfirmed(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !won {
		// A concurrent confirmation beat us to it; its effects stand.
		return s.getBooking(ctx, bookingID)
	}

	if b.PaymentID != nil {
		if _, err := s.payments.MarkConfirmed(ctx, *b.PaymentID); err != nil {
			logger.Error("failed to mark payment confirmed", "payment_id", *b.PaymentID, "error", err)
		}
	}

	if b.PassID != nil {
		s.consumePassDiscount(ctx, b)
	}

	if b.PromoCodeID != nil {
		if err := s.promos.RecordUsage(ctx, *b.PromoCodeID); err != nil {
			logger.Error("failed to record promo usage", "promo_id", *b.PromoCodeID, "error", err)
		}
	}

	s.activity.Record(ctx, &activity.Entry{
		BookingID:    b.ID,
		BookingRef:   b.Ref,
		ActivityType: activity.TypeBookingConfirmed,
		Title:        "Payment confirmed",
		Actor:        "system",
	})
	metrics.RecordBooking("confirmed")

	s.notifyConfirmation(ctx, b)

	return s.getBooking(ctx, bookingID)
}

// consumePassDiscount burns one pass use and applies its coverage to the
// booking total. Failures leave the booking confirmed at its quoted amount;
// a pass is never consumed without a matching ledger entry.
func (s *service) consumePassDiscount(ctx context.Context, b *Booking) {
	entitlement, err := s.passes.GetEntitlement(ctx, *b.PassID)
	if err != nil {
		logger.Error("pass lookup failed at confirmation", "booking_id", b.ID, "pass_id", *b.PassID, "error", err)
		return
	}
	passType, err := s.passes.GetType(ctx, entitlement.PassTypeID)
	if err != nil {
		logger.Error("pass type lookup failed at confirmation", "booking_id", b.ID, "error", err)
		return
	}
	loc, err := s.locations.GetLocation(ctx, b.LocationID)
	if err != nil {
		logger.Error("location lookup failed at confirmation", "booking_id", b.ID, "error", err)
		return
	}

	coveredHours := decimal.Min(b.DurationHours(), passType.AllowanceHours)
	covered := coveredHours.Mul(loc.HourlyRate).Round(2)
	if !covered.IsPositive() {
		return
	}
	minutes := int(coveredHours.Mul(decimal.NewFromInt(60)).IntPart())

	token, err := s.passes.Consume(ctx, b.UserID, *b.PassID, b.ID, &minutes)
	if err != nil {
		logger.Error("pass consumption failed at confirmation, booking stands at full price",
			"booking_id", b.ID, "pass_id", *b.PassID, "error", err)
		return
	}

	sourceID := strconv.FormatInt(*b.PassID, 10)
	entry := &ledger.Entry{
		BookingID:    b.ID,
		UserID:       b.UserID,
		DiscountType: ledger.DiscountPass,
		ActionType:   ledger.ActionOriginalBooking,
		Amount:       covered,
		SourceID:     &sourceID,
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		logger.Error("pass ledger write failed, compensating consumption",
			"booking_id", b.ID, "pass_id", *b.PassID, "error", err)
		if compErr := s.passes.Compensate(ctx, token); compErr != nil {
			logger.Error("pass compensation failed", "pass_id", *b.PassID, "error", compErr)
		}
		return
	}

	if err := s.repo.ApplyDiscountToTotal(ctx, b.ID, covered); err != nil {
		logger.Error("failed to apply pass discount to totals", "booking_id", b.ID, "error", err)
	}

	s.activity.Record(ctx, &activity.Entry{
		BookingID:    b.ID,
		BookingRef:   b.Ref,
		ActivityType: activity.TypePassApplied,
		Title:        "Pass applied",
		Description:  fmt.Sprintf("%s covered %s hours", passType.Name, coveredHours.String()),
		Actor:        "system",
		Amount:       &covered,
	})
}

func (s *service) Reschedule(ctx context.Context, userID, bookingID int64, req RescheduleRequest) (*Booking, error) {
	b, err := s.getOwned(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.PaymentConfirmed || b.Status != StatusConfirmed {
		return nil, ErrNotConfirmed
	}
	if b.RescheduleCount > 0 {
		return nil, ErrAlreadyRescheduled
	}
	if !req.EndAt.After(req.StartAt) {
		return nil, ErrEndNotAfterStart
	}
	if req.StartAt.Before(s.now()) {
		return nil, ErrWindowInPast
	}

	seats := []string(b.Seats)
	keepSeats := len(req.Seats) == 0
	if !keepSeats {
		missing, err := s.locations.MissingSeats(ctx, b.LocationID, req.Seats)
		if err != nil {
			return nil, err
		}
		if len(missing) > 0 {
			return nil, &ValidationError{Msg: "unknown seats at this location", Details: missing}
		}
		seats = req.Seats
	}

	report, err := s.detector.FindConflicts(ctx, b.LocationID, req.StartAt, req.EndAt, seats, b.ID)
	if err != nil {
		return nil, err
	}
	if report.HasSeatConflict() {
		metrics.SeatConflictsTotal.Inc()
		return nil, &SeatConflictError{
			Seats:                 report.ConflictingSeats,
			ConfirmedCount:        len(report.Confirmed),
			PendingCount:          len(report.Pending),
			RequiresSeatSelection: keepSeats,
		}
	}

	loc, err := s.locations.GetLocation(ctx, b.LocationID)
	if err != nil {
		return nil, err
	}

	oldHours := b.DurationHours()
	newHours := decimal.NewFromFloat(req.EndAt.Sub(req.StartAt).Hours())
	delta := newHours.Sub(oldHours).Mul(loc.HourlyRate).Mul(decimal.NewFromInt(int64(b.PartySize))).Round(2)
	if delta.IsNegative() {
		// Shorter windows are free to move to; nothing is refunded.
		delta = decimal.Zero
	}

	moved, err := s.repo.ApplySchedule(ctx, bookingID, req.StartAt, req.EndAt, seats)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, ErrAlreadyRescheduled
	}

	if delta.IsPositive() && req.CreditAmount.IsPositive() {
		want := decimal.Min(req.CreditAmount, delta)
		result, err := s.wallet.Consume(ctx, userID, bookingID, want, ledger.ActionReschedule)
		if err != nil {
			logger.Error("credit application failed during reschedule",
				"booking_id", bookingID, "error", err)
		} else {
			delta = delta.Sub(result.AmountConsumed)
		}
	}

	if delta.IsPositive() {
		snap := s.feeSettings.Snapshot()
		fee := payment.Fee(delta, b.PaymentMethod, snap)
		owed := delta.Add(fee)

		pay, err := s.payments.Create(ctx, &payment.Payment{
			BookingID: &b.ID,
			UserID:    userID,
			Method:    b.PaymentMethod,
			Status:    payment.StatusPending,
			Amount:    owed,
		})
		if err != nil {
			return nil, err
		}
		if err := s.repo.SetPendingReschedule(ctx, bookingID, owed, fee, pay.ID); err != nil {
			return nil, err
		}
	}

	oldValue := scheduleString(b.StartAt, b.EndAt)
	newValue := scheduleString(req.StartAt, req.EndAt)
	s.activity.Record(ctx, &activity.Entry{
		BookingID:    b.ID,
		BookingRef:   b.Ref,
		ActivityType: activity.TypeBookingRescheduled,
		Title:        "Booking rescheduled",
		Actor:        actorUser(userID),
		Amount:       &delta,
		OldValue:     &oldValue,
		NewValue:     &newValue,
	})
	metrics.RecordBooking("rescheduled")

	return s.getBooking(ctx, bookingID)
}

func (s *service) ConfirmReschedulePayment(ctx context.Context, userID, bookingID int64) (*Booking, error) {
	b, err := s.getOwned(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	if b.PendingRescheduleOwed == nil {
		// Nothing pending: either never charged or already settled.
		return b, nil
	}

	if b.ReschedulePaymentID != nil {
		if _, err := s.payments.MarkConfirmed(ctx, *b.ReschedulePaymentID); err != nil {
			logger.Error("failed to mark reschedule payment confirmed",
				"payment_id", *b.ReschedulePaymentID, "error", err)
		}
	}

	settled, err := s.repo.SettleReschedule(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if settled {
		s.activity.Record(ctx, &activity.Entry{
			BookingID:    b.ID,
			BookingRef:   b.Ref,
			ActivityType: activity.TypeBookingConfirmed,
			Title:        "Reschedule payment confirmed",
			Actor:        "system",
			Amount:       b.PendingRescheduleOwed,
		})
		s.notifyReschedule(ctx, b)
	}

	return s.getBooking(ctx, bookingID)
}

func (s *service) Extend(ctx context.Context, userID, bookingID int64, req ExtendRequest) (*Extension, error) {
	b, err := s.getOwned(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.PaymentConfirmed || b.Status != StatusConfirmed {
		return nil, ErrNotConfirmed
	}
	if !req.NewEndAt.After(b.EndAt) {
		return nil, apperr.New(apperr.KindValidation, "extension must end after the booking's current end time")
	}

	// Only the added tail needs to be free; the booking already holds its
	// original window.
	report, err := s.detector.FindConflicts(ctx, b.LocationID, b.EndAt, req.NewEndAt, b.Seats, b.ID)
	if err != nil {
		return nil, err
	}
	if report.HasSeatConflict() {
		metrics.SeatConflictsTotal.Inc()
		return nil, &SeatConflictError{
			Seats:          report.ConflictingSeats,
			ConfirmedCount: len(report.Confirmed),
			PendingCount:   len(report.Pending),
		}
	}

	loc, err := s.locations.GetLocation(ctx, b.LocationID)
	if err != nil {
		return nil, err
	}

	hours := decimal.NewFromFloat(req.NewEndAt.Sub(b.EndAt).Hours())
	cost := hours.Mul(loc.HourlyRate).Mul(decimal.NewFromInt(int64(b.PartySize))).Round(2)
	snap := s.feeSettings.Snapshot()
	fee := payment.Fee(cost, b.PaymentMethod, snap)

	pay, err := s.payments.Create(ctx, &payment.Payment{
		BookingID: &b.ID,
		UserID:    userID,
		Method:    b.PaymentMethod,
		Status:    payment.StatusPending,
		Amount:    cost.Add(fee),
	})
	if err != nil {
		return nil, err
	}

	ext, err := s.repo.InsertExtension(ctx, &Extension{
		BookingID: b.ID,
		OldEndAt:  b.EndAt,
		NewEndAt:  req.NewEndAt,
		Cost:      cost,
		Fee:       fee,
		Status:    ExtensionPending,
		PaymentID: &pay.ID,
	})
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, &activity.Entry{
		BookingID:    b.ID,
		BookingRef:   b.Ref,
		ActivityType: activity.TypeBookingExtended,
		Title:        "Extension requested",
		Description:  fmt.Sprintf("until %s, pending payment", req.NewEndAt.Format(time.RFC3339)),
		Actor:        actorUser(userID),
		Amount:       &cost,
	})

	return ext, nil
}

func (s *service) ConfirmExtensionPayment(ctx context.Context, userID, bookingID, extensionID int64, creditAmount decimal.Decimal) (*Booking, error) {
	b, err := s.getOwned(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}

	ext, err := s.repo.GetExtension(ctx, extensionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "extension not found")
		}
		return nil, err
	}
	if ext.BookingID != bookingID {
		return nil, apperr.New(apperr.KindValidation, "extension does not belong to this booking")
	}
	if ext.Status == ExtensionConfirmed {
		return b, nil
	}

	// A pending extension holds no seats. The tail may have been booked out
	// from under it since it was quoted, so check again before settling.
	report, err := s.detector.FindConflicts(ctx, b.LocationID, ext.OldEndAt, ext.NewEndAt, b.Seats, b.ID)
	if err != nil {
		return nil, err
	}
	if report.HasSeatConflict() {
		metrics.SeatConflictsTotal.Inc()
		return nil, &SeatConflictError{
			Seats:          report.ConflictingSeats,
			ConfirmedCount: len(report.Confirmed),
			PendingCount:   len(report.Pending),
		}
	}

	won, err := s.repo.MarkExtensionConfirmed(ctx, extensionID)
	if err != nil {
		return nil, err
	}
	if !won {
		return s.getBooking(ctx, bookingID)
	}

	if ext.PaymentID != nil {
		if _, err := s.payments.MarkConfirmed(ctx, *ext.PaymentID); err != nil {
			logger.Error("failed to mark extension payment confirmed",
				"payment_id", *ext.PaymentID, "error", err)
		}
	}

	// Consumed credit comes off the charge: the ledger entry the wallet wrote
	// must reconcile against a matching reduction in what the booking carries.
	charged := ext.Cost.Add(ext.Fee)
	if creditAmount.IsPositive() {
		want := decimal.Min(creditAmount, ext.Cost)
		result, err := s.wallet.Consume(ctx, userID, bookingID, want, ledger.ActionExtension)
		if err != nil {
			logger.Error("credit application failed during extension",
				"booking_id", bookingID, "error", err)
		} else {
			charged = charged.Sub(result.AmountConsumed)
		}
	}

	if err := s.repo.ApplyExtension(ctx, bookingID, ext.NewEndAt, charged); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, &activity.Entry{
		BookingID:    b.ID,
		BookingRef:   b.Ref,
		ActivityType: activity.TypeBookingExtended,
		Title:        "Extension confirmed",
		Description:  fmt.Sprintf("end moved to %s", ext.NewEndAt.Format(time.RFC3339)),
		Actor:        "system",
		Amount:       &charged,
	})
	metrics.RecordBooking("extended")

	s.notifyExtension(ctx, b, ext.NewEndAt)

	return s.getBooking(ctx, bookingID)
}

func (s *service) ApplyPass(ctx context.Context, userID, bookingID, passID int64) (*pass.ValidationResult, error) {
	b, err := s.getOwned(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	if b.PaymentConfirmed {
		return nil, ErrAlreadyConfirmed
	}
	if b.Status == StatusCancelled || b.Status == StatusRefunded {
		return nil, ErrAlreadyCancelled
	}

	entitlement, err := s.passes.GetEntitlement(ctx, passID)
	if err != nil {
		return nil, err
	}
	if entitlement.UserID != userID {
		return nil, pass.ErrNotOwner
	}

	loc, err := s.locations.GetLocation(ctx, b.LocationID)
	if err != nil {
		return nil, err
	}

	result, err := s.passes.Validate(ctx, userID, entitlement.PassTypeID, b.StartAt, b.EndAt, b.PartySize, loc.HourlyRate)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetPass(ctx, bookingID, passID); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, &activity.Entry{
		BookingID:    b.ID,
		BookingRef:   b.Ref,
		ActivityType: activity.TypePassApplied,
		Title:        "Pass attached",
		Description:  "discount applies once payment is confirmed",
		Actor:        actorUser(userID),
		Amount:       &result.CoveredAmount,
	})

	return result, nil
}

func (s *service) ValidatePassUsage(ctx context.Context, userID, passTypeID, locationID int64, startAt, endAt time.Time, partySize int) (*pass.ValidationResult, error) {
	loc, err := s.locations.GetLocation(ctx, locationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "location not found")
		}
		return nil, err
	}
	return s.passes.Validate(ctx, userID, passTypeID, startAt, endAt, partySize, loc.HourlyRate)
}

func (s *service) Cancel(ctx context.Context, userID, bookingID int64, reason string) (*Booking, error) {
	b, err := s.getOwned(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status == StatusCancelled || b.Status == StatusRefunded {
		return nil, ErrAlreadyCancelled
	}

	cancelled, err := s.repo.Cancel(ctx, bookingID, reason)
	if err != nil {
		return nil, err
	}
	if !cancelled {
		return nil, ErrAlreadyCancelled
	}

	s.activity.Record(ctx, &activity.Entry{
		BookingID:    b.ID,
		BookingRef:   b.Ref,
		ActivityType: activity.TypeBookingCancelled,
		Title:        "Booking cancelled",
		Description:  reason,
		Actor:        actorUser(userID),
	})
	metrics.BookingCancellationsTotal.Inc()
	metrics.RecordBooking("cancelled")

	s.notifyCancellation(ctx, b, reason)

	return s.getBooking(ctx, bookingID)
}

func (s *service) GetByID(ctx context.Context, bookingID int64) (*Booking, error) {
	return s.getBooking(ctx, bookingID)
}

func (s *service) GetByRef(ctx context.Context, ref string) (*Booking, error) {
	b, err := s.repo.GetByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (s *service) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

func (s *service) DiscountHistory(ctx context.Context, bookingID int64) ([]ledger.Entry, error) {
	if _, err := s.getBooking(ctx, bookingID); err != nil {
		return nil, err
	}
	return s.ledger.HistoryForBooking(ctx, bookingID)
}

func (s *service) DiscountSummary(ctx context.Context, bookingID int64) (*ledger.Summary, error) {
	if _, err := s.getBooking(ctx, bookingID); err != nil {
		return nil, err
	}
	return s.ledger.SummaryForBooking(ctx, bookingID)
}

func (s *service) ActivityHistory(ctx context.Context, bookingID int64) ([]activity.Entry, error) {
	if _, err := s.getBooking(ctx, bookingID); err != nil {
		return nil, err
	}
	return s.activity.History(ctx, bookingID)
}

func (s *service) getBooking(ctx context.Context, id int64) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (s *service) getOwned(ctx context.Context, userID, bookingID int64) (*Booking, error) {
	b, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, ErrNotOwner
	}
	return b, nil
}

func (s *service) notifyConfirmation(ctx context.Context, b *Booking) {
	u, loc, ok := s.notifyTargets(ctx, b)
	if !ok {
		return
	}
	if err := s.notifier.SendBookingConfirmation(ctx, u.Email, u.Name, loc.Name, b.StartAt, b.EndAt, b.Seats); err != nil {
		logger.Error("confirmation notification failed", "booking_id", b.ID, "error", err)
	}
}

func (s *service) notifyReschedule(ctx context.Context, b *Booking) {
	u, loc, ok := s.notifyTargets(ctx, b)
	if !ok {
		return
	}
	if err := s.notifier.SendRescheduleConfirmation(ctx, u.Email, u.Name, loc.Name, b.StartAt, b.EndAt); err != nil {
		logger.Error("reschedule notification failed", "booking_id", b.ID, "error", err)
	}
}

func (s *service) notifyExtension(ctx context.Context, b *Booking, newEnd time.Time) {
	u, loc, ok := s.notifyTargets(ctx, b)
	if !ok {
		return
	}
	if err := s.notifier.SendExtensionConfirmation(ctx, u.Email, u.Name, loc.Name, newEnd); err != nil {
		logger.Error("extension notification failed", "booking_id", b.ID, "error", err)
	}
}

func (s *service) notifyCancellation(ctx context.Context, b *Booking, reason string) {
	u, loc, ok := s.notifyTargets(ctx, b)
	if !ok {
		return
	}
	if err := s.notifier.SendCancellation(ctx, u.Email, u.Name, loc.Name, reason); err != nil {
		logger.Error("cancellation notification failed", "booking_id", b.ID, "error", err)
	}
}

func (s *service) notifyTargets(ctx context.Context, b *Booking) (*user.User, *location.Location, bool) {
	u, err := s.users.GetByID(ctx, b.UserID)
	if err != nil {
		logger.Error("user lookup for notification failed", "booking_id", b.ID, "error", err)
		return nil, nil, false
	}
	loc, err := s.locations.GetLocation(ctx, b.LocationID)
	if err != nil {
		logger.Error("location lookup for notification failed", "booking_id", b.ID, "error", err)
		return nil, nil, false
	}
	return u, loc, true
}

func actorUser(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

func scheduleString(startAt, endAt time.Time) string {
	return startAt.Format(time.RFC3339) + " / " + endAt.Format(time.RFC3339)
}
