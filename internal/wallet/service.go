package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"deskhub/internal/apperr"
	"deskhub/internal/ledger"
	"deskhub/internal/logger"
	"deskhub/internal/metrics"
)

type Service interface {
	AvailableCredit(ctx context.Context, userID int64) ([]CreditGrant, error)
	Balance(ctx context.Context, userID int64) (decimal.Decimal, error)
	Grant(ctx context.Context, userID int64, amount decimal.Decimal, expiresAt time.Time) (*CreditGrant, error)
	// Consume drains up to amount from the user's grants, soonest expiry
	// first. Partial consumption is allowed: the result always reports what
	// was actually taken and the remaining shortfall.
	Consume(ctx context.Context, userID, bookingID int64, amount decimal.Decimal, action ledger.ActionType) (*ConsumeResult, error)
	ExpireGrants(ctx context.Context) (int64, error)
	StartSweeper(ctx context.Context, interval time.Duration)
}

type service struct {
	repo       Repository
	ledgerRepo ledger.Repository
}

func NewService(repo Repository, ledgerRepo ledger.Repository) Service {
	return &service{repo: repo, ledgerRepo: ledgerRepo}
}

func (s *service) AvailableCredit(ctx context.Context, userID int64) ([]CreditGrant, error) {
	return s.repo.ActiveGrants(ctx, userID)
}

func (s *service) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	return s.repo.Balance(ctx, userID)
}

func (s *service) Grant(ctx context.Context, userID int64, amount decimal.Decimal, expiresAt time.Time) (*CreditGrant, error) {
	if !amount.IsPositive() {
		return nil, apperr.New(apperr.KindValidation, "credit amount must be positive")
	}
	if !expiresAt.After(time.Now()) {
		return nil, apperr.New(apperr.KindValidation, "credit expiry must be in the future")
	}
	return s.repo.Grant(ctx, userID, amount, expiresAt)
}

type drained struct {
	grant  CreditGrant
	amount decimal.Decimal
	// consumptionID is uuid.Nil when the usage row failed to write and there
	// is nothing to clean up on compensation.
	consumptionID uuid.UUID
}

func (s *service) Consume(ctx context.Context, userID, bookingID int64, amount decimal.Decimal, action ledger.ActionType) (*ConsumeResult, error) {
	if !amount.IsPositive() {
		return nil, apperr.New(apperr.KindValidation, "consume amount must be positive")
	}

	grants, err := s.repo.ActiveGrants(ctx, userID)
	if err != nil {
		return nil, err
	}

	remaining := amount
	taken := []drained{}

	for _, grant := range grants {
		if !remaining.IsPositive() {
			break
		}

		take := decimal.Min(remaining, grant.Amount)
		ok, err := s.repo.DrainGrant(ctx, grant.ID, take)
		if err != nil {
			// Already-drained grants stand; report what was taken so far.
			logger.Error("credit drain failed mid-walk",
				"user_id", userID, "grant_id", grant.ID, "error", err)
			break
		}
		if !ok {
			// Lost a race or the grant expired under us; move on.
			continue
		}

		record := &Consumption{
			ID:         uuid.New(),
			GrantID:    grant.ID,
			BookingID:  bookingID,
			Amount:     take,
			ActionType: string(action),
		}
		consumptionID := record.ID
		if err := s.repo.InsertConsumption(ctx, record); err != nil {
			logger.Error("credit consumption record failed",
				"user_id", userID, "grant_id", grant.ID, "error", err)
			consumptionID = uuid.Nil
		}

		taken = append(taken, drained{grant: grant, amount: take, consumptionID: consumptionID})
		remaining = remaining.Sub(take)
	}

	consumed := amount.Sub(remaining)
	result := &ConsumeResult{
		AmountConsumed: consumed,
		Remainder:      remaining,
		GrantsDrained:  len(taken),
	}

	if !consumed.IsPositive() {
		return result, nil
	}

	sourceID := taken[0].grant.ID.String()
	entry := &ledger.Entry{
		BookingID:    bookingID,
		UserID:       userID,
		DiscountType: ledger.DiscountCredit,
		ActionType:   action,
		Amount:       consumed,
		SourceID:     &sourceID,
	}
	if err := s.ledgerRepo.Append(ctx, entry); err != nil {
		// The grants were already drained; put the money back and remove the
		// consumption records so ledger and wallet stay reconcilable.
		for _, d := range taken {
			if restoreErr := s.repo.RestoreGrant(ctx, d.grant.ID, d.amount); restoreErr != nil {
				logger.Error("credit compensation failed",
					"grant_id", d.grant.ID, "amount", d.amount, "error", restoreErr)
			}
			if d.consumptionID == uuid.Nil {
				continue
			}
			if delErr := s.repo.DeleteConsumption(ctx, d.consumptionID); delErr != nil {
				logger.Error("credit consumption cleanup failed",
					"consumption_id", d.consumptionID, "error", delErr)
			}
		}
		return nil, apperr.Wrap(apperr.KindInconsistency, "credit ledger write failed, consumption reverted", err)
	}

	metrics.RecordCreditConsumed(consumed.InexactFloat64())
	return result, nil
}

func (s *service) ExpireGrants(ctx context.Context) (int64, error) {
	expired, err := s.repo.ExpireGrants(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		metrics.CreditGrantsExpiredTotal.Add(float64(expired))
	}
	return expired, nil
}

// StartSweeper periodically expires overdue grants. Runs outside the request
// path; the sweep itself is an idempotent conditional update.
func (s *service) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				expired, err := s.ExpireGrants(ctx)
				if err != nil {
					logger.Error("credit expiry sweep failed", "error", err)
					continue
				}
				if expired > 0 {
					logger.Info("credit expiry sweep", "grants_expired", expired)
				}
			}
		}
	}()
}
