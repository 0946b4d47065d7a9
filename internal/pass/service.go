package pass

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"deskhub/internal/apperr"
	"deskhub/internal/logger"
	"deskhub/internal/metrics"
)

var (
	ErrOutsideAllowedWindow = apperr.New(apperr.KindValidation, "booking hours fall outside the pass's allowed window")
	ErrNoRemainingUses      = apperr.New(apperr.KindResourceExhausted, "pass has no remaining uses")
	ErrAmbiguousEntitlement = apperr.New(apperr.KindConflict, "multiple pass sources match; resolve the purchase first")
	ErrNotOwner             = apperr.New(apperr.KindValidation, "pass does not belong to this user")
)

type Service interface {
	// Validate checks eligibility of a pass type for a booking window and
	// computes the pricing breakdown. The pass covers exactly one person's
	// hours; the rest of the party is charged at the full rate.
	Validate(ctx context.Context, userID, passTypeID int64, startAt, endAt time.Time, partySize int, hourlyRate decimal.Decimal) (*ValidationResult, error)
	// Consume burns one use of the entitlement. All-or-nothing: if the
	// conditional decrement loses a race the whole call fails with no
	// partial effect. The returned token lets the caller compensate.
	Consume(ctx context.Context, userID, passID, bookingID int64, minutesApplied *int) (*CompensationToken, error)
	// Compensate restores the entitlement recorded in the token. Used when a
	// downstream step failed after the pass was already decremented.
	Compensate(ctx context.Context, token *CompensationToken) error
	Balance(ctx context.Context, userID int64) ([]Entitlement, error)
	Purchase(ctx context.Context, userID, passTypeID int64) (*Entitlement, error)
	ListTypes(ctx context.Context) ([]PassType, error)
	GetType(ctx context.Context, id int64) (*PassType, error)
	GetEntitlement(ctx context.Context, id int64) (*Entitlement, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Validate(ctx context.Context, userID, passTypeID int64, startAt, endAt time.Time, partySize int, hourlyRate decimal.Decimal) (*ValidationResult, error) {
	if !endAt.After(startAt) {
		return nil, apperr.New(apperr.KindValidation, "booking window end must be after start")
	}
	if partySize < 1 {
		return nil, apperr.New(apperr.KindValidation, "party size must be at least 1")
	}

	passType, err := s.repo.GetType(ctx, passTypeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "pass type not found")
		}
		return nil, err
	}

	if hourOutside(passType, startAt) || hourOutside(passType, endAt) {
		return nil, ErrOutsideAllowedWindow
	}

	resolution, err := s.repo.ResolveEntitlement(ctx, userID, passTypeID)
	if err != nil {
		return nil, err
	}
	switch resolution.Outcome {
	case ResolutionNotFound:
		return nil, ErrNoRemainingUses
	case ResolutionAmbiguous:
		return nil, ErrAmbiguousEntitlement
	}

	durationHours := decimal.NewFromFloat(endAt.Sub(startAt).Hours())
	allowance := passType.AllowanceHours

	// The pass discounts the first person-slot only: covered hours are
	// capped at the allowance, the same person's excess hours plus every
	// other party member's full duration stay chargeable.
	coveredHours := decimal.Min(durationHours, allowance)
	coveredAmount := coveredHours.Mul(hourlyRate)

	excessHours := decimal.Max(durationHours.Sub(allowance), decimal.Zero)
	excessAmount := excessHours.Mul(hourlyRate)

	gross := durationHours.Mul(hourlyRate).Mul(decimal.NewFromInt(int64(partySize)))
	remaining := gross.Sub(coveredAmount)

	return &ValidationResult{
		Eligible:        true,
		Entitlement:     resolution.Entitlement,
		PassType:        passType,
		CoveredHours:    coveredHours,
		CoveredAmount:   coveredAmount,
		ExcessHours:     excessHours,
		ExcessAmount:    excessAmount,
		RemainingCharge: remaining,
	}, nil
}

func (s *service) Consume(ctx context.Context, userID, passID, bookingID int64, minutesApplied *int) (*CompensationToken, error) {
	entitlement, err := s.repo.GetEntitlement(ctx, passID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "pass not found")
		}
		return nil, err
	}
	if entitlement.UserID != userID {
		return nil, ErrNotOwner
	}

	ok, err := s.repo.ConsumeOne(ctx, passID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Exhausted, or a concurrent consumer got there first.
		return nil, ErrNoRemainingUses
	}

	usage := &Usage{PassID: passID, BookingID: bookingID, MinutesApplied: minutesApplied}
	if err := s.repo.InsertUsage(ctx, usage); err != nil {
		if restoreErr := s.repo.Restore(ctx, passID, entitlement.Status); restoreErr != nil {
			logger.Error("pass compensation failed after usage insert error",
				"pass_id", passID, "error", restoreErr)
		}
		return nil, apperr.Wrap(apperr.KindInconsistency, "pass usage record failed, consumption reverted", err)
	}

	metrics.PassConsumptionsTotal.Inc()
	return &CompensationToken{
		PassID:     passID,
		PrevStatus: entitlement.Status,
		UsageID:    usage.ID,
	}, nil
}

func (s *service) Compensate(ctx context.Context, token *CompensationToken) error {
	if err := s.repo.Restore(ctx, token.PassID, token.PrevStatus); err != nil {
		return err
	}
	if err := s.repo.DeleteUsage(ctx, token.UsageID); err != nil {
		logger.Error("failed to remove usage record during pass compensation",
			"usage_id", token.UsageID, "error", err)
	}
	metrics.PassCompensationsTotal.Inc()
	return nil
}

func (s *service) Balance(ctx context.Context, userID int64) ([]Entitlement, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) Purchase(ctx context.Context, userID, passTypeID int64) (*Entitlement, error) {
	entitlement, err := s.repo.CreatePurchase(ctx, userID, passTypeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "pass type not found")
		}
		return nil, err
	}
	return entitlement, nil
}

func (s *service) ListTypes(ctx context.Context) ([]PassType, error) {
	return s.repo.ListTypes(ctx)
}

func (s *service) GetEntitlement(ctx context.Context, id int64) (*Entitlement, error) {
	entitlement, err := s.repo.GetEntitlement(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "pass not found")
		}
		return nil, err
	}
	return entitlement, nil
}

func (s *service) GetType(ctx context.Context, id int64) (*PassType, error) {
	passType, err := s.repo.GetType(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "pass type not found")
		}
		return nil, err
	}
	return passType, nil
}

// hourOutside reports whether t's hour of day falls outside the pass type's
// allowed [from, to] window. An instant exactly on the closing hour is
// allowed so a window ending at 18:00 fits an 18h cutoff. A window with
// from > to crosses midnight: 22 to 2 allows 22:00 through 02:00.
func hourOutside(pt *PassType, t time.Time) bool {
	hour := t.Hour()
	if hour == pt.AllowedToHour && t.Minute() == 0 && t.Second() == 0 {
		return false
	}
	if pt.AllowedFromHour <= pt.AllowedToHour {
		return hour < pt.AllowedFromHour || hour > pt.AllowedToHour
	}
	return hour < pt.AllowedFromHour && hour > pt.AllowedToHour
}
