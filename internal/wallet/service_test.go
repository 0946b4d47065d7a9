package wallet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"deskhub/internal/apperr"
	"deskhub/internal/ledger"
)

type MockWalletRepo struct{ mock.Mock }

func (m *MockWalletRepo) ActiveGrants(ctx context.Context, userID int64) ([]CreditGrant, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]CreditGrant), args.Error(1)
}

func (m *MockWalletRepo) Grant(ctx context.Context, userID int64, amount decimal.Decimal, expiresAt time.Time) (*CreditGrant, error) {
	args := m.Called(ctx, userID, amount, expiresAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CreditGrant), args.Error(1)
}

func (m *MockWalletRepo) DrainGrant(ctx context.Context, grantID uuid.UUID, amount decimal.Decimal) (bool, error) {
	args := m.Called(ctx, grantID, amount)
	return args.Bool(0), args.Error(1)
}

func (m *MockWalletRepo) RestoreGrant(ctx context.Context, grantID uuid.UUID, amount decimal.Decimal) error {
	return m.Called(ctx, grantID, amount).Error(0)
}

func (m *MockWalletRepo) InsertConsumption(ctx context.Context, c *Consumption) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockWalletRepo) DeleteConsumption(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockWalletRepo) ExpireGrants(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWalletRepo) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockLedgerRepo struct{ mock.Mock }

func (m *MockLedgerRepo) Append(ctx context.Context, entry *ledger.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockLedgerRepo) HistoryForBooking(ctx context.Context, bookingID int64) ([]ledger.Entry, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) SummaryForBooking(ctx context.Context, bookingID int64) (*ledger.Summary, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Summary), args.Error(1)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestConsume_SpansGrantsWithSingleLedgerEntry(t *testing.T) {
	g1 := CreditGrant{ID: uuid.New(), UserID: 1, Amount: dec("5"), Status: GrantActive}
	g2 := CreditGrant{ID: uuid.New(), UserID: 1, Amount: dec("10"), Status: GrantActive}

	repo := new(MockWalletRepo)
	repo.On("ActiveGrants", mock.Anything, int64(1)).Return([]CreditGrant{g1, g2}, nil)
	repo.On("DrainGrant", mock.Anything, g1.ID, dec("5")).Return(true, nil)
	repo.On("DrainGrant", mock.Anything, g2.ID, dec("7")).Return(true, nil)
	repo.On("InsertConsumption", mock.Anything, mock.AnythingOfType("*wallet.Consumption")).Return(nil)

	ledgerRepo := new(MockLedgerRepo)
	ledgerRepo.On("Append", mock.Anything, mock.MatchedBy(func(e *ledger.Entry) bool {
		return e.DiscountType == ledger.DiscountCredit &&
			e.ActionType == ledger.ActionOriginalBooking &&
			e.Amount.Equal(dec("12")) &&
			e.BookingID == 100
	})).Return(nil)

	svc := NewService(repo, ledgerRepo)

	result, err := svc.Consume(context.Background(), 1, 100, dec("12"), ledger.ActionOriginalBooking)
	require.NoError(t, err)

	assert.True(t, result.AmountConsumed.Equal(dec("12")))
	assert.True(t, result.Remainder.IsZero())
	assert.Equal(t, 2, result.GrantsDrained)

	// One entry for the whole consumption, not one per grant.
	ledgerRepo.AssertNumberOfCalls(t, "Append", 1)
}

func TestConsume_PartialWhenBalanceShort(t *testing.T) {
	g1 := CreditGrant{ID: uuid.New(), UserID: 1, Amount: dec("5"), Status: GrantActive}

	repo := new(MockWalletRepo)
	repo.On("ActiveGrants", mock.Anything, int64(1)).Return([]CreditGrant{g1}, nil)
	repo.On("DrainGrant", mock.Anything, g1.ID, dec("5")).Return(true, nil)
	repo.On("InsertConsumption", mock.Anything, mock.Anything).Return(nil)

	ledgerRepo := new(MockLedgerRepo)
	ledgerRepo.On("Append", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(repo, ledgerRepo)

	result, err := svc.Consume(context.Background(), 1, 100, dec("12"), ledger.ActionOriginalBooking)
	require.NoError(t, err)

	assert.True(t, result.AmountConsumed.Equal(dec("5")))
	assert.True(t, result.Remainder.Equal(dec("7")))
	assert.Equal(t, 1, result.GrantsDrained)
}

func TestConsume_LostRaceSkipsGrant(t *testing.T) {
	g1 := CreditGrant{ID: uuid.New(), UserID: 1, Amount: dec("5"), Status: GrantActive}
	g2 := CreditGrant{ID: uuid.New(), UserID: 1, Amount: dec("10"), Status: GrantActive}

	repo := new(MockWalletRepo)
	repo.On("ActiveGrants", mock.Anything, int64(1)).Return([]CreditGrant{g1, g2}, nil)
	// Another consumer drained g1 between the read and the update.
	repo.On("DrainGrant", mock.Anything, g1.ID, dec("5")).Return(false, nil)
	repo.On("DrainGrant", mock.Anything, g2.ID, dec("8")).Return(true, nil)
	repo.On("InsertConsumption", mock.Anything, mock.Anything).Return(nil)

	ledgerRepo := new(MockLedgerRepo)
	ledgerRepo.On("Append", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(repo, ledgerRepo)

	result, err := svc.Consume(context.Background(), 1, 100, dec("8"), ledger.ActionOriginalBooking)
	require.NoError(t, err)
	assert.True(t, result.AmountConsumed.Equal(dec("8")))
	assert.Equal(t, 1, result.GrantsDrained)
}

func TestConsume_LedgerFailureRestoresGrants(t *testing.T) {
	g1 := CreditGrant{ID: uuid.New(), UserID: 1, Amount: dec("5"), Status: GrantActive}
	g2 := CreditGrant{ID: uuid.New(), UserID: 1, Amount: dec("10"), Status: GrantActive}

	var recorded []uuid.UUID
	repo := new(MockWalletRepo)
	repo.On("ActiveGrants", mock.Anything, int64(1)).Return([]CreditGrant{g1, g2}, nil)
	repo.On("DrainGrant", mock.Anything, g1.ID, dec("5")).Return(true, nil)
	repo.On("DrainGrant", mock.Anything, g2.ID, dec("7")).Return(true, nil)
	repo.On("InsertConsumption", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		recorded = append(recorded, args.Get(1).(*Consumption).ID)
	}).Return(nil)
	repo.On("RestoreGrant", mock.Anything, g1.ID, dec("5")).Return(nil)
	repo.On("RestoreGrant", mock.Anything, g2.ID, dec("7")).Return(nil)
	repo.On("DeleteConsumption", mock.Anything, mock.Anything).Return(nil)

	ledgerRepo := new(MockLedgerRepo)
	ledgerRepo.On("Append", mock.Anything, mock.Anything).Return(errors.New("ledger down"))

	svc := NewService(repo, ledgerRepo)

	_, err := svc.Consume(context.Background(), 1, 100, dec("12"), ledger.ActionOriginalBooking)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInconsistency, apperr.KindOf(err))

	repo.AssertCalled(t, "RestoreGrant", mock.Anything, g1.ID, dec("5"))
	repo.AssertCalled(t, "RestoreGrant", mock.Anything, g2.ID, dec("7"))

	// Every consumption row written before the failure is removed again.
	require.Len(t, recorded, 2)
	for _, id := range recorded {
		repo.AssertCalled(t, "DeleteConsumption", mock.Anything, id)
	}
}

func TestConsume_RejectsNonPositiveAmount(t *testing.T) {
	svc := NewService(new(MockWalletRepo), new(MockLedgerRepo))

	_, err := svc.Consume(context.Background(), 1, 100, decimal.Zero, ledger.ActionOriginalBooking)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestGrant_Validation(t *testing.T) {
	svc := NewService(new(MockWalletRepo), new(MockLedgerRepo))

	_, err := svc.Grant(context.Background(), 1, decimal.Zero, time.Now().Add(time.Hour))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Grant(context.Background(), 1, dec("10"), time.Now().Add(-time.Hour))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
