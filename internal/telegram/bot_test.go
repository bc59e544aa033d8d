package telegram

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/coinsight/coinsight-bot/internal/models"
	"github.com/coinsight/coinsight-bot/internal/paymentprovider"
	"github.com/coinsight/coinsight-bot/internal/services/entitlement"
)

// fakeAPI записывает отправленные сообщения.
type fakeAPI struct {
	sent []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) sentTexts() []string {
	var out []string
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

// fakeSessions хранит сессии в памяти.
type fakeSessions struct {
	data map[int64]models.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{data: make(map[int64]models.Session)}
}

func (f *fakeSessions) Get(_ context.Context, userID int64) (models.Session, bool, error) {
	s, ok := f.data[userID]
	return s, ok, nil
}

func (f *fakeSessions) Set(_ context.Context, userID int64, session models.Session) error {
	f.data[userID] = session
	return nil
}

// MockGate реализует интерфейс telegram.Gate
type MockGate struct {
	mock.Mock
}

func (m *MockGate) MayUseFeature(userID int64) entitlement.Decision {
	args := m.Called(userID)
	return args.Get(0).(entitlement.Decision)
}

func (m *MockGate) ConsumeTrial(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGate) ResetTrials(ctx context.Context, callerID int64) (int64, error) {
	args := m.Called(ctx, callerID)
	return args.Get(0).(int64), args.Error(1)
}

// MockAnalyzer реализует интерфейс telegram.Analyzer
type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, symbol, language string) (string, error) {
	args := m.Called(ctx, symbol, language)
	return args.String(0), args.Error(1)
}

// MockInvoices реализует интерфейс telegram.InvoiceCreator
type MockInvoices struct {
	mock.Mock
}

func (m *MockInvoices) CreateInvoice(ctx context.Context, req paymentprovider.CreateInvoiceRequest) (*paymentprovider.CreateInvoiceResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.CreateInvoiceResponse), args.Error(1)
}

// MockUsers реализует интерфейс telegram.UserRepository
type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) UpsertUser(ctx context.Context, userID int64, language string) error {
	args := m.Called(ctx, userID, language)
	return args.Error(0)
}

func (m *MockUsers) SetUserLanguage(ctx context.Context, userID int64, language string) error {
	args := m.Called(ctx, userID, language)
	return args.Error(0)
}

type testBot struct {
	bot      *Bot
	api      *fakeAPI
	gate     *MockGate
	analyzer *MockAnalyzer
	invoices *MockInvoices
	users    *MockUsers
	sessions *fakeSessions
}

func newTestBot() *testBot {
	tb := &testBot{
		api:      &fakeAPI{},
		gate:     new(MockGate),
		analyzer: new(MockAnalyzer),
		invoices: new(MockInvoices),
		users:    new(MockUsers),
		sessions: newFakeSessions(),
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tb.bot = New(tb.api, tb.gate, tb.analyzer, tb.invoices, tb.users, tb.sessions,
		logger, "ar", 10, "usd", "https://bot.example/api/v1/payments/webhook")
	return tb
}

func textMessage(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}
}

func TestStart_RegistersUserAndSendsWelcome(t *testing.T) {
	tb := newTestBot()
	tb.users.On("UpsertUser", mock.Anything, int64(7), "ar").Return(nil)

	tb.bot.handleMessage(context.Background(), textMessage(7, "/start"))

	tb.users.AssertExpectations(t)
	require.Len(t, tb.api.sent, 1)
	msg := tb.api.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, welcomeText, msg.Text)
	assert.NotNil(t, msg.ReplyMarkup, "welcome must carry the language keyboard")
	assert.Equal(t, models.StageInitial, tb.sessions.data[7].Stage)
}

func TestLanguageCallback_SetsLanguage(t *testing.T) {
	tb := newTestBot()
	tb.users.On("SetUserLanguage", mock.Anything, int64(7), "en").Return(nil)

	tb.bot.handleCallback(context.Background(), &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: 7},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 7}},
		Data:    "lang:en",
	})

	tb.users.AssertExpectations(t)
	assert.Equal(t, "en", tb.sessions.data[7].Language)
	assert.Equal(t, models.StageAwaitingSymbol, tb.sessions.data[7].Stage)
	assert.Contains(t, tb.api.sentTexts(), texts["ask_symbol"]["en"])
}

func TestCallback_WithoutMessageIgnored(t *testing.T) {
	tb := newTestBot()

	// Callback от inline-сообщения приходит без исходного сообщения
	require.NotPanics(t, func() {
		tb.bot.handleCallback(context.Background(), &tgbotapi.CallbackQuery{
			ID:   "cb2",
			From: &tgbotapi.User{ID: 7},
			Data: "lang:en",
		})
	})

	tb.users.AssertNotCalled(t, "SetUserLanguage", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, tb.api.sentTexts())
}

func TestSymbol_PaidUserGetsAnalysis(t *testing.T) {
	tb := newTestBot()
	tb.sessions.data[7] = models.Session{Language: "en", Stage: models.StageAwaitingSymbol}
	tb.gate.On("MayUseFeature", int64(7)).Return(entitlement.Decision{Allowed: true, Reason: entitlement.ReasonPaid})
	tb.analyzer.On("Analyze", mock.Anything, "BTC", "en").Return("BTC report", nil)

	tb.bot.handleMessage(context.Background(), textMessage(7, "btc"))

	assert.Contains(t, tb.api.sentTexts(), "BTC report")
	assert.Equal(t, "BTC", tb.sessions.data[7].LastSymbol)
	tb.gate.AssertNotCalled(t, "ConsumeTrial", mock.Anything, mock.Anything)
}

func TestSymbol_TrialConsumedBeforeAnalysis(t *testing.T) {
	tb := newTestBot()
	tb.gate.On("MayUseFeature", int64(7)).Return(entitlement.Decision{Allowed: true, Reason: entitlement.ReasonTrial})
	tb.gate.On("ConsumeTrial", mock.Anything, int64(7)).Return(true, nil)
	tb.analyzer.On("Analyze", mock.Anything, "ETH", "ar").Return("ETH report", nil)

	tb.bot.handleMessage(context.Background(), textMessage(7, "ETH"))

	sent := tb.api.sentTexts()
	assert.Contains(t, sent, texts["trial_notice"]["ar"])
	assert.Contains(t, sent, "ETH report")
	tb.gate.AssertExpectations(t)
}

func TestSymbol_TrialMarkFailureDoesNotServe(t *testing.T) {
	tb := newTestBot()
	tb.gate.On("MayUseFeature", int64(7)).Return(entitlement.Decision{Allowed: true, Reason: entitlement.ReasonTrial})
	tb.gate.On("ConsumeTrial", mock.Anything, int64(7)).Return(false, errors.New("db down"))

	tb.bot.handleMessage(context.Background(), textMessage(7, "BTC"))

	// Без долговечной отметки результат не выдаётся
	tb.analyzer.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything, mock.Anything)
	assert.Contains(t, tb.api.sentTexts(), texts["analysis_failed"]["ar"])
}

func TestSymbol_ConcurrentLoserOfferedPayment(t *testing.T) {
	tb := newTestBot()
	tb.gate.On("MayUseFeature", int64(7)).Return(entitlement.Decision{Allowed: true, Reason: entitlement.ReasonTrial})
	tb.gate.On("ConsumeTrial", mock.Anything, int64(7)).Return(false, nil)
	tb.invoices.On("CreateInvoice", mock.Anything, mock.MatchedBy(func(r paymentprovider.CreateInvoiceRequest) bool {
		return r.OrderID == "7"
	})).Return(&paymentprovider.CreateInvoiceResponse{InvoiceURL: "https://pay.example/inv"}, nil)

	tb.bot.handleMessage(context.Background(), textMessage(7, "BTC"))

	tb.analyzer.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything, mock.Anything)
	assert.Contains(t, tb.api.sentTexts(), texts["payment_required"]["ar"])
	assert.Equal(t, models.StageAwaitingPayment, tb.sessions.data[7].Stage)
}

func TestSymbol_ExhaustedUserOfferedInvoice(t *testing.T) {
	tb := newTestBot()
	tb.sessions.data[7] = models.Session{Language: "en", Stage: models.StageAwaitingSymbol}
	tb.gate.On("MayUseFeature", int64(7)).Return(entitlement.Decision{Allowed: false, Reason: entitlement.ReasonPaymentRequired})
	tb.invoices.On("CreateInvoice", mock.Anything, mock.Anything).
		Return(&paymentprovider.CreateInvoiceResponse{InvoiceURL: "https://pay.example/inv"}, nil)

	tb.bot.handleMessage(context.Background(), textMessage(7, "BTC"))

	assert.Contains(t, tb.api.sentTexts(), texts["payment_required"]["en"])
}

func TestSymbol_InvoiceFailure(t *testing.T) {
	tb := newTestBot()
	tb.gate.On("MayUseFeature", int64(7)).Return(entitlement.Decision{Allowed: false, Reason: entitlement.ReasonPaymentRequired})
	tb.invoices.On("CreateInvoice", mock.Anything, mock.Anything).
		Return(nil, errors.New("provider down"))

	tb.bot.handleMessage(context.Background(), textMessage(7, "BTC"))

	assert.Contains(t, tb.api.sentTexts(), texts["invoice_failed"]["ar"])
}

func TestReset_OperatorGetsConfirmation(t *testing.T) {
	tb := newTestBot()
	tb.gate.On("ResetTrials", mock.Anything, int64(99)).Return(int64(5), nil)

	tb.bot.handleMessage(context.Background(), textMessage(99, "/reset"))

	require.Len(t, tb.api.sentTexts(), 1)
	assert.Contains(t, tb.api.sentTexts()[0], "5")
}

func TestReset_NonOperatorIgnored(t *testing.T) {
	tb := newTestBot()
	tb.gate.On("ResetTrials", mock.Anything, int64(7)).Return(int64(0), entitlement.ErrNotOperator)

	tb.bot.handleMessage(context.Background(), textMessage(7, "/reset"))

	assert.Empty(t, tb.api.sentTexts(), "non-operator reset must be silently ignored")
}
