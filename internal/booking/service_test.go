package booking

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

	"deskhub/internal/activity"
	"deskhub/internal/ledger"
	"deskhub/internal/location"
	"deskhub/internal/pass"
	"deskhub/internal/payment"
	"deskhub/internal/promo"
	"deskhub/internal/user"
	"deskhub/internal/wallet"
)

type MockBookingRepo struct{ mock.Mock }

func (m *MockBookingRepo) Create(ctx context.Context, b *Booking) (*Booking, error) {
	args := m.Called(ctx, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockBookingRepo) GetByID(ctx context.Context, id int64) (*Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockBookingRepo) GetByRef(ctx context.Context, ref string) (*Booking, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockBookingRepo) RefExists(ctx context.Context, ref string) (bool, error) {
	args := m.Called(ctx, ref)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepo) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Booking, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Booking), args.Error(1)
}

func (m *MockBookingRepo) FindOverlapping(ctx context.Context, locationID int64, startAt, endAt time.Time, excludeID int64) ([]Booking, error) {
	args := m.Called(ctx, locationID, startAt, endAt, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Booking), args.Error(1)
}

func (m *MockBookingRepo) FindUserOverlapping(ctx context.Context, userID, locationID int64, startAt, endAt time.Time) ([]Booking, error) {
	args := m.Called(ctx, userID, locationID, startAt, endAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Booking), args.Error(1)
}

func (m *MockBookingRepo) FinalizeAmounts(ctx context.Context, id int64, totalAmount, processingFee decimal.Decimal, paymentID int64) error {
	return m.Called(ctx, id, totalAmount, processingFee, paymentID).Error(0)
}

func (m *MockBookingRepo) ClearPromo(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockBookingRepo) SetPass(ctx context.Context, id, passID int64) error {
	return m.Called(ctx, id, passID).Error(0)
}

func (m *MockBookingRepo) MarkPaymentConfirmed(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepo) ApplyDiscountToTotal(ctx context.Context, id int64, amount decimal.Decimal) error {
	return m.Called(ctx, id, amount).Error(0)
}

func (m *MockBookingRepo) ApplySchedule(ctx context.Context, id int64, startAt, endAt time.Time, seats []string) (bool, error) {
	args := m.Called(ctx, id, startAt, endAt, seats)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepo) SetPendingReschedule(ctx context.Context, id int64, owed, fee decimal.Decimal, paymentID int64) error {
	return m.Called(ctx, id, owed, fee, paymentID).Error(0)
}

func (m *MockBookingRepo) SettleReschedule(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepo) InsertExtension(ctx context.Context, ext *Extension) (*Extension, error) {
	args := m.Called(ctx, ext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Extension), args.Error(1)
}

func (m *MockBookingRepo) GetExtension(ctx context.Context, id int64) (*Extension, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Extension), args.Error(1)
}

func (m *MockBookingRepo) MarkExtensionConfirmed(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepo) ApplyExtension(ctx context.Context, id int64, newEndAt time.Time, charged decimal.Decimal) error {
	return m.Called(ctx, id, newEndAt, charged).Error(0)
}

func (m *MockBookingRepo) Cancel(ctx context.Context, id int64, reason string) (bool, error) {
	args := m.Called(ctx, id, reason)
	return args.Bool(0), args.Error(1)
}

type MockLocationRepo struct{ mock.Mock }

func (m *MockLocationRepo) CreateLocation(ctx context.Context, name, address string, hourlyRate decimal.Decimal) (*location.Location, error) {
	args := m.Called(ctx, name, address, hourlyRate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*location.Location), args.Error(1)
}

func (m *MockLocationRepo) GetLocation(ctx context.Context, id int64) (*location.Location, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*location.Location), args.Error(1)
}

func (m *MockLocationRepo) ListLocations(ctx context.Context) ([]location.Location, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]location.Location), args.Error(1)
}

func (m *MockLocationRepo) CreateSeat(ctx context.Context, locationID int64, label, zone string) (*location.Seat, error) {
	args := m.Called(ctx, locationID, label, zone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*location.Seat), args.Error(1)
}

func (m *MockLocationRepo) ListSeats(ctx context.Context, locationID int64) ([]location.Seat, error) {
	args := m.Called(ctx, locationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]location.Seat), args.Error(1)
}

func (m *MockLocationRepo) MissingSeats(ctx context.Context, locationID int64, labels []string) ([]string, error) {
	args := m.Called(ctx, locationID, labels)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockWalletService struct{ mock.Mock }

func (m *MockWalletService) AvailableCredit(ctx context.Context, userID int64) ([]wallet.CreditGrant, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]wallet.CreditGrant), args.Error(1)
}

func (m *MockWalletService) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockWalletService) Grant(ctx context.Context, userID int64, amount decimal.Decimal, expiresAt time.Time) (*wallet.CreditGrant, error) {
	args := m.Called(ctx, userID, amount, expiresAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.CreditGrant), args.Error(1)
}

func (m *MockWalletService) Consume(ctx context.Context, userID, bookingID int64, amount decimal.Decimal, action ledger.ActionType) (*wallet.ConsumeResult, error) {
	args := m.Called(ctx, userID, bookingID, amount, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.ConsumeResult), args.Error(1)
}

func (m *MockWalletService) ExpireGrants(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWalletService) StartSweeper(ctx context.Context, interval time.Duration) {
	m.Called(ctx, interval)
}

type MockPassService struct{ mock.Mock }

func (m *MockPassService) Validate(ctx context.Context, userID, passTypeID int64, startAt, endAt time.Time, partySize int, hourlyRate decimal.Decimal) (*pass.ValidationResult, error) {
	args := m.Called(ctx, userID, passTypeID, startAt, endAt, partySize, hourlyRate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pass.ValidationResult), args.Error(1)
}

func (m *MockPassService) Consume(ctx context.Context, userID, passID, bookingID int64, minutesApplied *int) (*pass.CompensationToken, error) {
	args := m.Called(ctx, userID, passID, bookingID, minutesApplied)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pass.CompensationToken), args.Error(1)
}

func (m *MockPassService) Compensate(ctx context.Context, token *pass.CompensationToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockPassService) Balance(ctx context.Context, userID int64) ([]pass.Entitlement, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]pass.Entitlement), args.Error(1)
}

func (m *MockPassService) Purchase(ctx context.Context, userID, passTypeID int64) (*pass.Entitlement, error) {
	args := m.Called(ctx, userID, passTypeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pass.Entitlement), args.Error(1)
}

func (m *MockPassService) ListTypes(ctx context.Context) ([]pass.PassType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]pass.PassType), args.Error(1)
}

func (m *MockPassService) GetType(ctx context.Context, id int64) (*pass.PassType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pass.PassType), args.Error(1)
}

func (m *MockPassService) GetEntitlement(ctx context.Context, id int64) (*pass.Entitlement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pass.Entitlement), args.Error(1)
}

type MockPromoService struct{ mock.Mock }

func (m *MockPromoService) Validate(ctx context.Context, promoID int64, startAt, endAt time.Time) (*promo.PromoCode, error) {
	args := m.Called(ctx, promoID, startAt, endAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*promo.PromoCode), args.Error(1)
}

func (m *MockPromoService) RecordUsage(ctx context.Context, promoID int64) error {
	return m.Called(ctx, promoID).Error(0)
}

func (m *MockPromoService) Create(ctx context.Context, p *promo.PromoCode) (*promo.PromoCode, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*promo.PromoCode), args.Error(1)
}

type MockLedger struct{ mock.Mock }

func (m *MockLedger) Append(ctx context.Context, entry *ledger.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockLedger) HistoryForBooking(ctx context.Context, bookingID int64) ([]ledger.Entry, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Entry), args.Error(1)
}

func (m *MockLedger) SummaryForBooking(ctx context.Context, bookingID int64) (*ledger.Summary, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Summary), args.Error(1)
}

type MockActivityService struct{ mock.Mock }

func (m *MockActivityService) Record(ctx context.Context, entry *activity.Entry) {
	m.Called(ctx, entry)
}

func (m *MockActivityService) History(ctx context.Context, bookingID int64) ([]activity.Entry, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]activity.Entry), args.Error(1)
}

type MockPaymentRepo struct{ mock.Mock }

func (m *MockPaymentRepo) Create(ctx context.Context, p *payment.Payment) (*payment.Payment, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepo) GetByID(ctx context.Context, id int64) (*payment.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepo) MarkConfirmed(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepo) FetchFeeSettings(ctx context.Context) (*payment.FeeSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.FeeSnapshot), args.Error(1)
}

type MockUserService struct{ mock.Mock }

func (m *MockUserService) Register(ctx context.Context, req user.RegisterRequest) (*user.User, string, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(*user.User), args.String(1), args.Error(2)
}

func (m *MockUserService) Login(ctx context.Context, req user.LoginRequest) (*user.User, string, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(*user.User), args.String(1), args.Error(2)
}

func (m *MockUserService) GetByID(ctx context.Context, userID int64) (*user.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) SendBookingConfirmation(ctx context.Context, email, name, locationName string, startAt, endAt time.Time, seats []string) error {
	return m.Called(ctx, email, name, locationName, startAt, endAt, seats).Error(0)
}

func (m *MockNotifier) SendRescheduleConfirmation(ctx context.Context, email, name, locationName string, startAt, endAt time.Time) error {
	return m.Called(ctx, email, name, locationName, startAt, endAt).Error(0)
}

func (m *MockNotifier) SendExtensionConfirmation(ctx context.Context, email, name, locationName string, newEnd time.Time) error {
	return m.Called(ctx, email, name, locationName, newEnd).Error(0)
}

func (m *MockNotifier) SendCancellation(ctx context.Context, email, name, locationName, reason string) error {
	return m.Called(ctx, email, name, locationName, reason).Error(0)
}

type svcMocks struct {
	repo     *MockBookingRepo
	loc      *MockLocationRepo
	wallet   *MockWalletService
	passes   *MockPassService
	promos   *MockPromoService
	ledger   *MockLedger
	activity *MockActivityService
	payments *MockPaymentRepo
	users    *MockUserService
	notifier *MockNotifier
}

var baseTime = time.Date(2026, 9, 14, 8, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*service, *svcMocks) {
	t.Helper()
	m := &svcMocks{
		repo:     new(MockBookingRepo),
		loc:      new(MockLocationRepo),
		wallet:   new(MockWalletService),
		passes:   new(MockPassService),
		promos:   new(MockPromoService),
		ledger:   new(MockLedger),
		activity: new(MockActivityService),
		payments: new(MockPaymentRepo),
		users:    new(MockUserService),
		notifier: new(MockNotifier),
	}
	m.activity.On("Record", mock.Anything, mock.Anything).Maybe()

	feeSettings := payment.NewSettingsProvider(m.payments, payment.FeeSnapshot{
		CardFeePercent:   dec("5"),
		TransferFlatFee:  dec("0.20"),
		TransferFeeFloor: dec("10"),
	})

	svc := NewService(Deps{
		Repo:        m.repo,
		Locations:   m.loc,
		Wallet:      m.wallet,
		Passes:      m.passes,
		Promos:      m.promos,
		Ledger:      m.ledger,
		Activity:    m.activity,
		Payments:    m.payments,
		FeeSettings: feeSettings,
		Users:       m.users,
		Notifier:    m.notifier,
	}).(*service)
	svc.now = func() time.Time { return baseTime }
	return svc, m
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decEq(want string) interface{} {
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(dec(want)) })
}

func hubLocation() *location.Location {
	return &location.Location{ID: 1, Name: "Riverside Hub", HourlyRate: decimal.NewFromInt(10)}
}

func TestCreate_WindowValidation(t *testing.T) {
	svc, _ := newTestService(t)

	start := baseTime.Add(24 * time.Hour)
	_, err := svc.Create(context.Background(), 1, CreateRequest{
		LocationID: 1, Seats: []string{"A1"}, StartAt: start, EndAt: start,
	})
	assert.ErrorIs(t, err, ErrEndNotAfterStart)

	past := baseTime.Add(-time.Hour)
	_, err = svc.Create(context.Background(), 1, CreateRequest{
		LocationID: 1, Seats: []string{"A1"}, StartAt: past, EndAt: past.Add(2 * time.Hour),
	})
	assert.ErrorIs(t, err, ErrWindowInPast)
}

func TestCreate_SeatConflict(t *testing.T) {
	svc, m := newTestService(t)

	start := baseTime.Add(24 * time.Hour)
	end := start.Add(4 * time.Hour)

	m.loc.On("GetLocation", mock.Anything, int64(1)).Return(hubLocation(), nil)
	m.loc.On("MissingSeats", mock.Anything, int64(1), []string{"A1"}).Return([]string{}, nil)
	m.repo.On("FindUserOverlapping", mock.Anything, int64(1), int64(1), mock.Anything, mock.Anything).Return([]Booking{}, nil)
	m.repo.On("FindOverlapping", mock.Anything, int64(1), start, end, int64(0)).Return([]Booking{
		{ID: 9, Seats: []string{"A1"}, PaymentConfirmed: true},
	}, nil)

	_, err := svc.Create(context.Background(), 1, CreateRequest{
		LocationID: 1, Seats: []string{"A1"}, StartAt: start, EndAt: end,
		PaymentMethod: payment.MethodCreditCard,
	})
	require.Error(t, err)

	var conflict *SeatConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"A1"}, conflict.Seats)
	assert.Equal(t, 1, conflict.ConfirmedCount)
	assert.Equal(t, 0, conflict.PendingCount)

	m.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreate_RetriedRequestReturnsExistingBooking(t *testing.T) {
	svc, m := newTestService(t)

	start := baseTime.Add(24 * time.Hour)
	end := start.Add(4 * time.Hour)

	existing := Booking{
		ID:      55,
		UserID:  1,
		Seats:   []string{"A1", "A2"},
		StartAt: start.Add(30 * time.Second),
		EndAt:   end.Add(-30 * time.Second),
		Status:  StatusPendingPayment,
	}

	m.loc.On("GetLocation", mock.Anything, int64(1)).Return(hubLocation(), nil)
	m.loc.On("MissingSeats", mock.Anything, int64(1), []string{"A2", "A1"}).Return([]string{}, nil)
	m.repo.On("FindUserOverlapping", mock.Anything, int64(1), int64(1),
		start.Add(-duplicateSkew), end.Add(duplicateSkew)).Return([]Booking{existing}, nil)

	got, err := svc.Create(context.Background(), 1, CreateRequest{
		LocationID: 1, Seats: []string{"A2", "A1"}, StartAt: start, EndAt: end,
		PaymentMethod: payment.MethodCreditCard,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(55), got.ID)

	m.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.repo.AssertNotCalled(t, "FindOverlapping", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreate_OverlappingBookingRejected(t *testing.T) {
	svc, m := newTestService(t)

	start := baseTime.Add(24 * time.Hour)
	end := start.Add(4 * time.Hour)

	// A confirmed booking on different seats in the same window is a double
	// booking, not a retry of this request.
	existing := Booking{
		ID:               55,
		UserID:           1,
		Seats:            []string{"B3"},
		StartAt:          start.Add(time.Hour),
		EndAt:            end.Add(2 * time.Hour),
		Status:           StatusConfirmed,
		PaymentConfirmed: true,
	}

	m.loc.On("GetLocation", mock.Anything, int64(1)).Return(hubLocation(), nil)
	m.loc.On("MissingSeats", mock.Anything, int64(1), []string{"A1"}).Return([]string{}, nil)
	m.repo.On("FindUserOverlapping", mock.Anything, int64(1), int64(1), mock.Anything, mock.Anything).Return([]Booking{existing}, nil)

	_, err := svc.Create(context.Background(), 1, CreateRequest{
		LocationID: 1, Seats: []string{"A1"}, StartAt: start, EndAt: end,
		PaymentMethod: payment.MethodCreditCard,
	})
	assert.ErrorIs(t, err, ErrUserOverlap)

	m.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreate_PaymentSetupFailureReleasesBooking(t *testing.T) {
	svc, m := newTestService(t)

	start := baseTime.Add(24 * time.Hour)
	end := start.Add(4 * time.Hour)

	m.loc.On("GetLocation", mock.Anything, int64(1)).Return(hubLocation(), nil)
	m.loc.On("MissingSeats", mock.Anything, int64(1), []string{"A1"}).Return([]string{}, nil)
	m.repo.On("FindUserOverlapping", mock.Anything, int64(1), int64(1), mock.Anything, mock.Anything).Return([]Booking{}, nil)
	m.repo.On("FindOverlapping", mock.Anything, int64(1), start, end, int64(0)).Return([]Booking{}, nil)
	m.repo.On("Create", mock.Anything, mock.Anything).Return(&Booking{ID: 100, UserID: 1}, nil)

	m.payments.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("payments down"))
	m.repo.On("Cancel", mock.Anything, int64(100), "payment setup failed").Return(true, nil)

	_, err := svc.Create(context.Background(), 1, CreateRequest{
		LocationID: 1, Seats: []string{"A1"}, StartAt: start, EndAt: end,
		PaymentMethod: payment.MethodCreditCard,
	})
	require.Error(t, err)

	// The pending booking must not keep holding its seats.
	m.repo.AssertCalled(t, "Cancel", mock.Anything, int64(100), "payment setup failed")
}

func TestCreate_PromoAndCreditStackIntoLedger(t *testing.T) {
	svc, m := newTestService(t)

	start := baseTime.Add(24 * time.Hour)
	end := start.Add(4 * time.Hour)
	promoID := int64(3)

	m.loc.On("GetLocation", mock.Anything, int64(1)).Return(hubLocation(), nil)
	m.loc.On("MissingSeats", mock.Anything, int64(1), []string{"A1"}).Return([]string{}, nil)
	m.repo.On("FindUserOverlapping", mock.Anything, int64(1), int64(1), mock.Anything, mock.Anything).Return([]Booking{}, nil)
	m.repo.On("FindOverlapping", mock.Anything, int64(1), start, end, int64(0)).Return([]Booking{}, nil)

	// 4 hours at 10/hour for one person: gross 40, promo takes 20%.
	m.promos.On("Validate", mock.Anything, promoID, start, end).Return(
		&promo.PromoCode{ID: promoID, Active: true, DiscountType: promo.TypePercentage, Value: dec("20")}, nil)

	m.repo.On("Create", mock.Anything, mock.AnythingOfType("*booking.Booking")).Return(
		&Booking{ID: 100, UserID: 1, LocationID: 1, Seats: []string{"A1"}, StartAt: start, EndAt: end, Status: StatusPendingPayment}, nil)

	m.ledger.On("Append", mock.Anything, mock.MatchedBy(func(e *ledger.Entry) bool {
		return e.DiscountType == ledger.DiscountPromoCode &&
			e.ActionType == ledger.ActionOriginalBooking &&
			e.Amount.Equal(dec("8")) &&
			e.BookingID == 100 &&
			e.SourceID != nil && *e.SourceID == "3"
	})).Return(nil)

	// Credit request of 5 against the 32 still owed.
	m.wallet.On("Consume", mock.Anything, int64(1), int64(100), decEq("5"), ledger.ActionOriginalBooking).Return(
		&wallet.ConsumeResult{AmountConsumed: dec("5"), Remainder: decimal.Zero, GrantsDrained: 1}, nil)

	// Subtotal 27 plus the 5% card fee.
	m.payments.On("Create", mock.Anything, mock.MatchedBy(func(p *payment.Payment) bool {
		return p.Amount.Equal(dec("28.35")) && p.UserID == 1
	})).Return(&payment.Payment{ID: 9}, nil)
	m.repo.On("FinalizeAmounts", mock.Anything, int64(100), decEq("28.35"), decEq("1.35"), int64(9)).Return(nil)

	m.repo.On("GetByID", mock.Anything, int64(100)).Return(
		&Booking{ID: 100, TotalAmount: dec("28.35"), ProcessingFee: dec("1.35")}, nil)

	got, err := svc.Create(context.Background(), 1, CreateRequest{
		LocationID:    1,
		Seats:         []string{"A1"},
		StartAt:       start,
		EndAt:         end,
		PaymentMethod: payment.MethodCreditCard,
		PromoCodeID:   &promoID,
		CreditAmount:  dec("5"),
	})
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.Equal(dec("28.35")))

	m.ledger.AssertNumberOfCalls(t, "Append", 1)
	m.repo.AssertExpectations(t)
}

func TestCreate_PromoLedgerFailureDropsDiscount(t *testing.T) {
	svc, m := newTestService(t)

	start := baseTime.Add(24 * time.Hour)
	end := start.Add(4 * time.Hour)
	promoID := int64(3)

	m.loc.On("GetLocation", mock.Anything, int64(1)).Return(hubLocation(), nil)
	m.loc.On("MissingSeats", mock.Anything, int64(1), []string{"A1"}).Return([]string{}, nil)
	m.repo.On("FindUserOverlapping", mock.Anything, int64(1), int64(1), mock.Anything, mock.Anything).Return([]Booking{}, nil)
	m.repo.On("FindOverlapping", mock.Anything, int64(1), start, end, int64(0)).Return([]Booking{}, nil)
	m.promos.On("Validate", mock.Anything, promoID, start, end).Return(
		&promo.PromoCode{ID: promoID, Active: true, DiscountType: promo.TypePercentage, Value: dec("20")}, nil)
	m.repo.On("Create", mock.Anything, mock.Anything).Return(&Booking{ID: 100, UserID: 1}, nil)

	m.ledger.On("Append", mock.Anything, mock.Anything).Return(errors.New("ledger down"))
	m.repo.On("ClearPromo", mock.Anything, int64(100)).Return(nil)

	// The booking is charged in full: gross 40 plus the card fee.
	m.payments.On("Create", mock.Anything, mock.MatchedBy(func(p *payment.Payment) bool {
		return p.Amount.Equal(dec("42"))
	})).Return(&payment.Payment{ID: 9}, nil)
	m.repo.On("FinalizeAmounts", mock.Anything, int64(100), decEq("42"), decEq("2"), int64(9)).Return(nil)
	m.repo.On("GetByID", mock.Anything, int64(100)).Return(&Booking{ID: 100}, nil)

	_, err := svc.Create(context.Background(), 1, CreateRequest{
		LocationID:    1,
		Seats:         []string{"A1"},
		StartAt:       start,
		EndAt:         end,
		PaymentMethod: payment.MethodCreditCard,
		PromoCodeID:   &promoID,
	})
	require.NoError(t, err)

	m.repo.AssertCalled(t, "ClearPromo", mock.Anything, int64(100))
}

// Tracks every discount through create and confirmation and checks the books
// close: what the stay was worth, minus what the user actually pays net of the
// processing fee, must equal the sum of the ledger entries.
func TestBookingLifecycle_LedgerReconcilesAgainstTotals(t *testing.T) {
	svc, m := newTestService(t)

	start := baseTime.Add(24 * time.Hour)
	end := start.Add(4 * time.Hour)
	promoID := int64(3)
	passID := int64(42)
	paymentID := int64(9)

	// 4 hours at 10/hour for one person.
	totalCost := dec("40")
	ledgerTotal := decimal.Zero
	totalAmount := decimal.Zero
	processingFee := decimal.Zero

	stored := &Booking{
		ID: 100, Ref: "BK-RECON001", UserID: 1, LocationID: 1,
		Seats: []string{"A1"}, PartySize: 1, StartAt: start, EndAt: end,
		Status: StatusPendingPayment, TotalCost: totalCost,
		PaymentMethod: payment.MethodCreditCard,
		PromoCodeID:   &promoID, PassID: &passID, PaymentID: &paymentID,
	}

	m.loc.On("GetLocation", mock.Anything, int64(1)).Return(hubLocation(), nil)
	m.loc.On("MissingSeats", mock.Anything, int64(1), []string{"A1"}).Return([]string{}, nil)
	m.repo.On("FindUserOverlapping", mock.Anything, int64(1), int64(1), mock.Anything, mock.Anything).Return([]Booking{}, nil)
	m.repo.On("FindOverlapping", mock.Anything, int64(1), start, end, int64(0)).Return([]Booking{}, nil)
	m.promos.On("Validate", mock.Anything, promoID, start, end).Return(
		&promo.PromoCode{ID: promoID, Active: true, DiscountType: promo.TypePercentage, Value: dec("20")}, nil)
	m.repo.On("Create", mock.Anything, mock.Anything).Return(stored, nil)
	m.repo.On("GetByID", mock.Anything, int64(100)).Return(stored, nil)

	m.ledger.On("Append", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		ledgerTotal = ledgerTotal.Add(args.Get(1).(*ledger.Entry).Amount)
	}).Return(nil)

	// The wallet writes its own credit entry; mirror its contract here.
	m.wallet.On("Consume", mock.Anything, int64(1), int64(100), decEq("5"), ledger.ActionOriginalBooking).
		Run(func(mock.Arguments) { ledgerTotal = ledgerTotal.Add(dec("5")) }).
		Return(&wallet.ConsumeResult{AmountConsumed: dec("5"), Remainder: decimal.Zero, GrantsDrained: 1}, nil)

	m.payments.On("Create", mock.Anything, mock.Anything).Return(&payment.Payment{ID: paymentID}, nil)
	m.repo.On("FinalizeAmounts", mock.Anything, int64(100), mock.Anything, mock.Anything, paymentID).
		Run(func(args mock.Arguments) {
			totalAmount = args.Get(2).(decimal.Decimal)
			processingFee = args.Get(3).(decimal.Decimal)
		}).Return(nil)

	m.repo.On("MarkPaymentConfirmed", mock.Anything, int64(100)).Return(true, nil)
	m.payments.On("MarkConfirmed", mock.Anything, paymentID).Return(true, nil)
	m.promos.On("RecordUsage", mock.Anything, promoID).Return(nil)

	// The pass covers two of the four booked hours.
	m.passes.On("GetEntitlement", mock.Anything, passID).Return(
		&pass.Entitlement{ID: passID, UserID: 1, PassTypeID: 7, RemainingCount: 3}, nil)
	m.passes.On("GetType", mock.Anything, int64(7)).Return(
		&pass.PassType{ID: 7, Name: "Half Day", AllowanceHours: decimal.NewFromInt(2)}, nil)
	token := &pass.CompensationToken{PassID: passID, PrevStatus: pass.StatusActive, UsageID: uuid.New()}
	m.passes.On("Consume", mock.Anything, int64(1), passID, int64(100), mock.Anything).Return(token, nil)

	m.repo.On("ApplyDiscountToTotal", mock.Anything, int64(100), mock.Anything).
		Run(func(args mock.Arguments) {
			totalAmount = totalAmount.Sub(args.Get(2).(decimal.Decimal))
		}).Return(nil)

	m.users.On("GetByID", mock.Anything, int64(1)).Return(&user.User{ID: 1, Email: "a@b.c"}, nil)
	m.notifier.On("SendBookingConfirmation", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Create(context.Background(), 1, CreateRequest{
		LocationID:    1,
		Seats:         []string{"A1"},
		StartAt:       start,
		EndAt:         end,
		PaymentMethod: payment.MethodCreditCard,
		PromoCodeID:   &promoID,
		CreditAmount:  dec("5"),
	})
	require.NoError(t, err)

	_, err = svc.ConfirmPayment(context.Background(), 1, 100)
	require.NoError(t, err)

	// promo 8 + credit 5 + pass 20
	assert.True(t, ledgerTotal.Equal(dec("33")), "ledger total %s", ledgerTotal)

	netPaid := totalAmount.Sub(processingFee)
	assert.True(t, ledgerTotal.Equal(totalCost.Sub(netPaid)),
		"ledger %s does not reconcile: total cost %s, net paid %s", ledgerTotal, totalCost, netPaid)
}

func confirmedBooking() *Booking {
	start := baseTime.Add(24 * time.Hour)
	return &Booking{
		ID:               100,
		Ref:              "BK-TEST0001",
		UserID:           1,
		LocationID:       1,
		Seats:            []string{"A1"},
		PartySize:        1,
		StartAt:          start,
		EndAt:            start.Add(4 * time.Hour),
		Status:           StatusConfirmed,
		PaymentConfirmed: true,
		PaymentMethod:    payment.MethodCreditCard,
	}
}

func TestConfirmPayment_Idempotent(t *testing.T) {
	svc, m := newTestService(t)

	m.repo.On("GetByID", mock.Anything, int64(100)).Return(confirmedBooking(), nil)

	got, err := svc.ConfirmPayment(context.Background(), 1, 100)
	require.NoError(t, err)
	assert.True(t, got.PaymentConfirmed)

	m.repo.AssertNotCalled(t, "MarkPaymentConfirmed", mock.Anything, mock.Anything)
	m.ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestConfirmPayment_RejectsNonOwner(t *testing.T) {
	svc, m := newTestService(t)

	b := confirmedBooking()
	b.Status = StatusPendingPayment
	b.PaymentConfirmed = false
	m.repo.On("GetByID", mock.Anything, int64(100)).Return(b, nil)

	_, err := svc.ConfirmPayment(context.Background(), 9, 100)
	assert.ErrorIs(t, err, ErrNotOwner)

	m.repo.AssertNotCalled(t, "MarkPaymentConfirmed", mock.Anything, mock.Anything)
}

func TestConfirmReschedulePayment_RejectsNonOwner(t *testing.T) {
	svc, m := newTestService(t)

	b := confirmedBooking()
	owed := dec("21")
	b.PendingRescheduleOwed = &owed
	m.repo.On("GetByID", mock.Anything, int64(100)).Return(b, nil)

	_, err := svc.ConfirmReschedulePayment(context.Background(), 9, 100)
	assert.ErrorIs(t, err, ErrNotOwner)

	m.repo.AssertNotCalled(t, "SettleReschedule", mock.Anything, mock.Anything)
}

func TestConfirmPayment_ConsumesAttachedPassOnce(t *testing.T) {
	svc, m := newTestService(t)

	passID := int64(42)
	paymentID := int64(7)
	b := confirmedBooking()
	b.Status = StatusPendingPayment
	b.PaymentConfirmed = false
	b.PassID = &passID
	b.PaymentID = &paymentID

	m.repo.On("GetByID", mock.Anything, int64(100)).Return(b, nil)
	m.repo.On("MarkPaymentConfirmed", mock.Anything, int64(100)).Return(true, nil)
	m.payments.On("MarkConfirmed", mock.Anything, paymentID).Return(true, nil)

	m.passes.On("GetEntitlement", mock.Anything, passID).Return(
		&pass.Entitlement{ID: passID, UserID: 1, PassTypeID: 7, RemainingCount: 3}, nil)
	m.passes.On("GetType", mock.Anything, int64(7)).Return(
		&pass.PassType{ID: 7, Name: "Day Pass", AllowanceHours: decimal.NewFromInt(8)}, nil)
	m.loc.On("GetLocation", mock.Anything, int64(1)).Return(hubLocation(), nil)

	// Four booked hours fit inside the eight-hour allowance.
	token := &pass.CompensationToken{PassID: passID, PrevStatus: pass.StatusActive, UsageID: uuid.New()}
	m.passes.On("Consume", mock.Anything, int64(1), passID, int64(100), mock.MatchedBy(func(min *int) bool {
		return min != nil && *min == 240
	})).Return(token, nil)

	m.ledger.On("Append", mock.Anything, mock.MatchedBy(func(e *ledger.Entry) bool {
		return e.DiscountType == ledger.DiscountPass &&
			e.ActionType == ledger.ActionOriginalBooking &&
			e.Amount.Equal(dec("40")) &&
			e.SourceID != nil && *e.SourceID == "42"
	})).Return(nil)
	m.repo.On("ApplyDiscountToTotal", mock.Anything, int64(100), decEq("40")).Return(nil)

	m.users.On("GetByID", mock.Anything, int64(1)).Return(&user.User{ID: 1, Name: "Ada", Email: "ada@example.com"}, nil)
	m.notifier.On("SendBookingConfirmation", mock.Anything, "ada@example.com", "Ada", "Riverside Hub",
		b.StartAt, b.EndAt, mock.Anything).Return(nil)

	_, err := svc.ConfirmPayment(context.Background(), 1, 100)
	require.NoError(t, err)

	m.ledger.AssertNumberOfCalls(t, "Append", 1)
	m.passes.AssertNumberOfCalls(t, "Consume", 1)
	m.passes.AssertNotCalled(t, "Compensate", mock.Anything, mock.Anything)
}

func TestConfirmPayment_PassLedgerFailureCompensates(t *testing.T) {
	svc, m := newTestService(t)

	passID := int64(42)
	b := confirmedBooking()
	b.Status = StatusPendingPayment
	b.PaymentConfirmed = false
	b.PassID = &passID

	m.repo.On("GetByID", mock.Anything, int64(100)).Return(b, nil)
	m.repo.On("MarkPaymentConfirmed", mock.Anything, int64(100)).Return(true, nil)

	m.passes.On("GetEntitlement", mock.Anything, passID).Return(
		&pass.Entitlement{ID: passID, UserID: 1, PassTypeID: 7, RemainingCount: 1}, nil)
	m.passes.On("GetType", mock.Anything, int64(7)).Return(
		&pass.PassType{ID: 7, AllowanceHours: decimal.NewFromInt(8)}, nil)
	m.loc.On("GetLocation", mock.Anything, int64(1)).Return(hubLocation(), nil)

	token := &pass.CompensationToken{PassID: passID, PrevStatus: pass.StatusActive, UsageID: uuid.New()}
	m.passes.On("Consume", mock.Anything, int64(1), passID, int64(100), mock.Anything).Return(token, nil)

	m.ledger.On("Append", mock.Anything, mock.Anything).Return(errors.New("ledger down"))
	m.passes.On("Compensate", mock.Anything, token).Return(nil)

	m.users.On("GetByID", mock.Anything, int64(1)).Return(&user.User{ID: 1, Email: "a@b.c"}, nil)
	m.notifier.On("SendBookingConfirmation", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything).Return(nil)

	// The booking still confirms at full price.
	_, err := svc.ConfirmPayment(context.Background(), 1, 100)
	require.NoError(t, err)

	m.passes.AssertCalled(t, "Compensate", mock.Anything, token)
	m.repo.AssertNotCalled(t, "ApplyDiscountToTotal", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmPayment_LostRaceLeavesEffectsToWinner(t *testing.T) {
	svc, m := newTestService(t)

	passID := int64(42)
	b := confirmedBooking()
	b.Status = StatusPendingPayment
	b.PaymentConfirmed = false
	b.PassID = &passID

	m.repo.On("GetByID", mock.Anything, int64(100)).Return(b, nil)
	m.repo.On("MarkPaymentConfirmed", mock.Anything, int64(100)).Return(false, nil)

	_, err := svc.ConfirmPayment(context.Background(), 1, 100)
	require.NoError(t, err)

	m.passes.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestReschedule_OnlyOnce(t *testing.T) {
	svc, m := newTestService(t)

	b := confirmedBooking()
	b.RescheduleCount = 1
	m.repo.On("GetByID", mock.Anything, int64(100)).Return(b, nil)

	start := baseTime.Add(48 * time.Hour)
	_, err := svc.Reschedule(context.Background(), 1, 100, RescheduleRequest{
		StartAt: start, EndAt: start.Add(4 * time.Hour),
	})
	assert.ErrorIs(t, err, ErrAlreadyRescheduled)
}

func TestReschedule_LongerWindowCreatesPendingCharge(t *testing.T) {
	svc, m := newTestService(t)

	b := confirmedBooking()
	newStart := baseTime.Add(48 * time.Hour)
	newEnd := newStart.Add(6 * time.Hour)

	m.repo.On("GetByID", mock.Anything, int64(100)).Return(b, nil)
	m.repo.On("FindOverlapping", mock.Anything, int64(1), newStart, newEnd, int64(100)).Return([]Booking{}, nil)
	m.loc.On("GetLocation", mock.Anything, int64(1)).Return(hubLocation(), nil)
	m.repo.On("ApplySchedule", mock.Anything, int64(100), newStart, newEnd, []string{"A1"}).Return(true, nil)

	// Two extra hours at 10/hour: delta 20, card fee 1, owed 21.
	m.payments.On("Create", mock.Anything, mock.MatchedBy(func(p *payment.Payment) bool {
		return p.Amount.Equal(dec("21"))
	})).Return(&payment.Payment{ID: 11}, nil)
	m.repo.On("SetPendingReschedule", mock.Anything, int64(100), decEq("21"), decEq("1"), int64(11)).Return(nil)

	_, err := svc.Reschedule(context.Background(), 1, 100, RescheduleRequest{StartAt: newStart, EndAt: newEnd})
	require.NoError(t, err)

	m.repo.AssertExpectations(t)
}

func TestReschedule_ShorterWindowIsFree(t *testing.T) {
	svc, m := newTestService(t)

	b := confirmedBooking()
	newStart := baseTime.Add(48 * time.Hour)
	newEnd := newStart.Add(2 * time.Hour)

	m.repo.On("GetByID", mock.Anything, int64(100)).Return(b, nil)
	m.repo.On("FindOverlapping", mock.Anything, int64(1), newStart, newEnd, int64(100)).Return([]Booking{}, nil)
	m.loc.On("GetLocation", mock.Anything, int64(1)).Return(hubLocation(), nil)
	m.repo.On("ApplySchedule", mock.Anything, int64(100), newStart, newEnd, []string{"A1"}).Return(true, nil)

	_, err := svc.Reschedule(context.Background(), 1, 100, RescheduleRequest{StartAt: newStart, EndAt: newEnd})
	require.NoError(t, err)

	m.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.repo.AssertNotCalled(t, "SetPendingReschedule", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReschedule_ConflictFlagsSeatSelection(t *testing.T) {
	svc, m := newTestService(t)

	b := confirmedBooking()
	newStart := baseTime.Add(48 * time.Hour)
	newEnd := newStart.Add(4 * time.Hour)

	m.repo.On("GetByID", mock.Anything, int64(100)).Return(b, nil)
	m.repo.On("FindOverlapping", mock.Anything, int64(1), newStart, newEnd, int64(100)).Return([]Booking{
		{ID: 200, Seats: []string{"A1"}, PaymentConfirmed: true},
	}, nil)

	_, err := svc.Reschedule(context.Background(), 1, 100, RescheduleRequest{StartAt: newStart, EndAt: newEnd})
	require.Error(t, err)

	var conflict *SeatConflictError
	require.ErrorAs(t, err, &conflict)
	// The caller kept the old seats, so picking new ones may resolve it.
	assert.True(t, conflict.RequiresSeatSelection)
}

func TestConfirmReschedulePayment_NothingPending(t *testing.T) {
	svc, m := newTestService(t)

	m.repo.On("GetByID", mock.Anything, int64(100)).Return(confirmedBooking(), nil)

	_, err := svc.ConfirmReschedulePayment(context.Background(), 1, 100)
	require.NoError(t, err)

	m.repo.AssertNotCalled(t, "SettleReschedule", mock.Anything, mock.Anything)
}

func TestExtend_ChecksOnlyTheAddedTail(t *testing.T) {
	svc, m := newTestService(t)

	b := confirmedBooking()
	newEnd := b.EndAt.Add(2 * time.Hour)

	m.repo.On("GetByID", mock.Anything, int64(100)).Return(b, nil)
	m.repo.On("FindOverlapping", mock.Anything, int64(1), b.EndAt, newEnd, int64(100)).Return([]Booking{}, nil)
	m.loc.On("GetLocation", mock.Anything, int64(1)).Return(hubLocation(), nil)

	m.payments.On("Create", mock.Anything, mock.MatchedBy(func(p *payment.Payment) bool {
		return p.Amount.Equal(dec("21"))
	})).Return(&payment.Payment{ID: 12}, nil)

	m.repo.On("InsertExtension", mock.Anything, mock.MatchedBy(func(ext *Extension) bool {
		return ext.BookingID == 100 &&
			ext.NewEndAt.Equal(newEnd) &&
			ext.Cost.Equal(dec("20")) &&
			ext.Fee.Equal(dec("1")) &&
			ext.Status == ExtensionPending
	})).Return(&Extension{ID: 5, BookingID: 100, NewEndAt: newEnd, Status: ExtensionPending}, nil)

	ext, err := svc.Extend(context.Background(), 1, 100, ExtendRequest{NewEndAt: newEnd})
	require.NoError(t, err)
	assert.Equal(t, int64(5), ext.ID)
}

func TestExtend_TailConflict(t *testing.T) {
	svc, m := newTestService(t)

	b := confirmedBooking()
	newEnd := b.EndAt.Add(2 * time.Hour)

	m.repo.On("GetByID", mock.Anything, int64(100)).Return(b, nil)
	m.repo.On("FindOverlapping", mock.Anything, int64(1), b.EndAt, newEnd, int64(100)).Return([]Booking{
		{ID: 300, Seats: []string{"A1"}, PaymentConfirmed: false},
	}, nil)

	_, err := svc.Extend(context.Background(), 1, 100, ExtendRequest{NewEndAt: newEnd})

	var conflict *SeatConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 1, conflict.PendingCount)
	m.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestConfirmExtensionPayment_Idempotent(t *testing.T) {
	svc, m := newTestService(t)

	b := confirmedBooking()
	m.repo.On("GetByID", mock.Anything, int64(100)).Return(b, nil)
	m.repo.On("GetExtension", mock.Anything, int64(5)).Return(
		&Extension{ID: 5, BookingID: 100, Status: ExtensionConfirmed}, nil)

	_, err := svc.ConfirmExtensionPayment(context.Background(), 1, 100, 5, decimal.Zero)
	require.NoError(t, err)

	m.repo.AssertNotCalled(t, "MarkExtensionConfirmed", mock.Anything, mock.Anything)
	m.repo.AssertNotCalled(t, "ApplyExtension", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmExtensionPayment_WrongBooking(t *testing.T) {
	svc, m := newTestService(t)

	m.repo.On("GetByID", mock.Anything, int64(100)).Return(confirmedBooking(), nil)
	m.repo.On("GetExtension", mock.Anything, int64(5)).Return(
		&Extension{ID: 5, BookingID: 999, Status: ExtensionPending}, nil)

	_, err := svc.ConfirmExtensionPayment(context.Background(), 1, 100, 5, decimal.Zero)
	require.Error(t, err)
}

func TestConfirmExtensionPayment_CreditReducesCharge(t *testing.T) {
	svc, m := newTestService(t)

	b := confirmedBooking()
	paymentID := int64(12)
	newEnd := b.EndAt.Add(4 * time.Hour)

	m.repo.On("GetByID", mock.Anything, int64(100)).Return(b, nil)
	m.repo.On("GetExtension", mock.Anything, int64(5)).Return(
		&Extension{ID: 5, BookingID: 100, OldEndAt: b.EndAt, NewEndAt: newEnd,
			Cost: dec("40"), Fee: dec("2"), Status: ExtensionPending, PaymentID: &paymentID}, nil)
	m.repo.On("FindOverlapping", mock.Anything, int64(1), b.EndAt, newEnd, int64(100)).Return([]Booking{}, nil)
	m.repo.On("MarkExtensionConfirmed", mock.Anything, int64(5)).Return(true, nil)
	m.payments.On("MarkConfirmed", mock.Anything, paymentID).Return(true, nil)

	m.wallet.On("Consume", mock.Anything, int64(1), int64(100), decEq("10"), ledger.ActionExtension).Return(
		&wallet.ConsumeResult{AmountConsumed: dec("10"), Remainder: decimal.Zero, GrantsDrained: 1}, nil)

	// The booking carries cost 40 plus fee 2 minus the 10 the wallet took,
	// matching the credit entry the wallet wrote.
	m.repo.On("ApplyExtension", mock.Anything, int64(100), newEnd, decEq("32")).Return(nil)

	m.users.On("GetByID", mock.Anything, int64(1)).Return(&user.User{ID: 1, Email: "a@b.c"}, nil)
	m.loc.On("GetLocation", mock.Anything, int64(1)).Return(hubLocation(), nil)
	m.notifier.On("SendExtensionConfirmation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, newEnd).Return(nil)

	_, err := svc.ConfirmExtensionPayment(context.Background(), 1, 100, 5, dec("10"))
	require.NoError(t, err)

	m.repo.AssertExpectations(t)
}

func TestConfirmExtensionPayment_TailBookedSinceQuote(t *testing.T) {
	svc, m := newTestService(t)

	b := confirmedBooking()
	newEnd := b.EndAt.Add(2 * time.Hour)

	m.repo.On("GetByID", mock.Anything, int64(100)).Return(b, nil)
	m.repo.On("GetExtension", mock.Anything, int64(5)).Return(
		&Extension{ID: 5, BookingID: 100, OldEndAt: b.EndAt, NewEndAt: newEnd,
			Cost: dec("20"), Fee: dec("1"), Status: ExtensionPending}, nil)
	// Someone else took the tail while this extension sat pending.
	m.repo.On("FindOverlapping", mock.Anything, int64(1), b.EndAt, newEnd, int64(100)).Return([]Booking{
		{ID: 300, Seats: []string{"A1"}, PaymentConfirmed: true},
	}, nil)

	_, err := svc.ConfirmExtensionPayment(context.Background(), 1, 100, 5, decimal.Zero)

	var conflict *SeatConflictError
	require.ErrorAs(t, err, &conflict)
	m.repo.AssertNotCalled(t, "MarkExtensionConfirmed", mock.Anything, mock.Anything)
	m.repo.AssertNotCalled(t, "ApplyExtension", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyPass_RejectsConfirmedBooking(t *testing.T) {
	svc, m := newTestService(t)

	m.repo.On("GetByID", mock.Anything, int64(100)).Return(confirmedBooking(), nil)

	_, err := svc.ApplyPass(context.Background(), 1, 100, 42)
	assert.ErrorIs(t, err, ErrAlreadyConfirmed)
}

func TestApplyPass_RejectsForeignPass(t *testing.T) {
	svc, m := newTestService(t)

	b := confirmedBooking()
	b.Status = StatusPendingPayment
	b.PaymentConfirmed = false

	m.repo.On("GetByID", mock.Anything, int64(100)).Return(b, nil)
	m.passes.On("GetEntitlement", mock.Anything, int64(42)).Return(
		&pass.Entitlement{ID: 42, UserID: 9}, nil)

	_, err := svc.ApplyPass(context.Background(), 1, 100, 42)
	assert.ErrorIs(t, err, pass.ErrNotOwner)
	m.repo.AssertNotCalled(t, "SetPass", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancel_AlreadyCancelled(t *testing.T) {
	svc, m := newTestService(t)

	b := confirmedBooking()
	b.Status = StatusCancelled
	m.repo.On("GetByID", mock.Anything, int64(100)).Return(b, nil)

	_, err := svc.Cancel(context.Background(), 1, 100, "changed plans")
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
	m.repo.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetOwned_RejectsOtherUsers(t *testing.T) {
	svc, m := newTestService(t)

	m.repo.On("GetByID", mock.Anything, int64(100)).Return(confirmedBooking(), nil)

	_, err := svc.Cancel(context.Background(), 9, 100, "not mine")
	assert.ErrorIs(t, err, ErrNotOwner)
}
