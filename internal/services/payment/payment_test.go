package payment

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/coinsight/coinsight-bot/internal/cache"
	"github.com/coinsight/coinsight-bot/internal/models"
)

// MockRepository реализует интерфейс payment.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GrantPaid(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) GetUserLanguage(ctx context.Context, userID int64) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

// MockPublisher реализует интерфейс payment.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishPaymentConfirmed(message models.PaymentConfirmation) error {
	args := m.Called(message)
	return args.Error(0)
}

func newTestService(repo *MockRepository, pub *MockPublisher) (*Service, *cache.Entitlements) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	entCache := cache.NewEntitlements()
	return New(repo, entCache, pub, logger, "ar"), entCache
}

func TestProcessEvent_IgnoresUnfinished(t *testing.T) {
	repo := new(MockRepository)
	pub := new(MockPublisher)
	svc, entCache := newTestService(repo, pub)

	result, err := svc.ProcessEvent(context.Background(), models.PaymentEvent{
		PaymentStatus: "waiting",
		OrderID:       "42",
	})

	require.NoError(t, err)
	assert.Equal(t, ResultIgnored, result)
	assert.False(t, entCache.Get(42).Paid)
	repo.AssertNotCalled(t, "GrantPaid", mock.Anything, mock.Anything)
	pub.AssertNotCalled(t, "PublishPaymentConfirmed", mock.Anything)
}

func TestProcessEvent_FirstFinishedUpgradesAndNotifiesOnce(t *testing.T) {
	repo := new(MockRepository)
	pub := new(MockPublisher)
	svc, entCache := newTestService(repo, pub)

	repo.On("GrantPaid", mock.Anything, int64(42)).Return(true, nil)
	repo.On("GetUserLanguage", mock.Anything, int64(42)).Return("en", nil)
	pub.On("PublishPaymentConfirmed", mock.MatchedBy(func(m models.PaymentConfirmation) bool {
		return m.UserID == 42 && m.Text == confirmationTexts["en"]
	})).Return(nil).Once()

	result, err := svc.ProcessEvent(context.Background(), models.PaymentEvent{
		PaymentStatus: models.StatusFinished,
		OrderID:       "42",
	})

	require.NoError(t, err)
	assert.Equal(t, ResultUpgraded, result)
	assert.True(t, entCache.Get(42).Paid, "cache must be updated write-through")
	pub.AssertExpectations(t)
}

func TestProcessEvent_DuplicateDeliveryNoSecondNotification(t *testing.T) {
	repo := new(MockRepository)
	pub := new(MockPublisher)
	svc, _ := newTestService(repo, pub)

	// Повторная доставка: вставка конфликтует
	repo.On("GrantPaid", mock.Anything, int64(42)).Return(false, nil)

	result, err := svc.ProcessEvent(context.Background(), models.PaymentEvent{
		PaymentStatus: models.StatusFinished,
		OrderID:       "42",
	})

	require.NoError(t, err)
	assert.Equal(t, ResultDuplicate, result)
	pub.AssertNotCalled(t, "PublishPaymentConfirmed", mock.Anything)
}

func TestProcessEvent_StoreFailurePropagates(t *testing.T) {
	repo := new(MockRepository)
	pub := new(MockPublisher)
	svc, entCache := newTestService(repo, pub)

	repo.On("GrantPaid", mock.Anything, int64(42)).Return(false, errors.New("db down"))

	_, err := svc.ProcessEvent(context.Background(), models.PaymentEvent{
		PaymentStatus: models.StatusFinished,
		OrderID:       "42",
	})

	require.Error(t, err, "store failure must surface so the provider retries")
	assert.False(t, entCache.Get(42).Paid)
	pub.AssertNotCalled(t, "PublishPaymentConfirmed", mock.Anything)
}

func TestProcessEvent_InvalidOrderID(t *testing.T) {
	cases := []struct {
		name    string
		orderID string
	}{
		{"нечисловой идентификатор", "not-a-number"},
		{"переполнение int64", "99999999999999999999"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(MockRepository)
			pub := new(MockPublisher)
			svc, _ := newTestService(repo, pub)

			_, err := svc.ProcessEvent(context.Background(), models.PaymentEvent{
				PaymentStatus: models.StatusFinished,
				OrderID:       tc.orderID,
			})

			require.ErrorIs(t, err, ErrMalformedOrderID)
			repo.AssertNotCalled(t, "GrantPaid", mock.Anything, mock.Anything)
		})
	}
}

func TestProcessEvent_NotificationFailureDoesNotRollBack(t *testing.T) {
	repo := new(MockRepository)
	pub := new(MockPublisher)
	svc, entCache := newTestService(repo, pub)

	repo.On("GrantPaid", mock.Anything, int64(42)).Return(true, nil)
	repo.On("GetUserLanguage", mock.Anything, int64(42)).Return("ar", nil)
	pub.On("PublishPaymentConfirmed", mock.Anything).Return(errors.New("broker down"))

	result, err := svc.ProcessEvent(context.Background(), models.PaymentEvent{
		PaymentStatus: models.StatusFinished,
		OrderID:       "42",
	})

	require.NoError(t, err, "notification is best-effort, entitlement must stand")
	assert.Equal(t, ResultUpgraded, result)
	assert.True(t, entCache.Get(42).Paid)
}

func TestProcessEvent_UnknownLanguageFallsBack(t *testing.T) {
	repo := new(MockRepository)
	pub := new(MockPublisher)
	svc, _ := newTestService(repo, pub)

	repo.On("GrantPaid", mock.Anything, int64(42)).Return(true, nil)
	repo.On("GetUserLanguage", mock.Anything, int64(42)).Return("", nil)
	pub.On("PublishPaymentConfirmed", mock.MatchedBy(func(m models.PaymentConfirmation) bool {
		return m.Text == confirmationTexts["ar"]
	})).Return(nil).Once()

	_, err := svc.ProcessEvent(context.Background(), models.PaymentEvent{
		PaymentStatus: models.StatusFinished,
		OrderID:       "42",
	})

	require.NoError(t, err)
	pub.AssertExpectations(t)
}
