// Package telegram реализует диалоговый слой бота: приветствие, выбор
// языка, приём тикера и выдачу отчёта с учётом прав доступа. Слой не
// принимает решений о правах: решение выносит шлюз доступа, а выдача
// оплаченного состояния происходит только через webhook провайдера.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/coinsight/coinsight-bot/internal/lib/sl"
	"github.com/coinsight/coinsight-bot/internal/models"
	"github.com/coinsight/coinsight-bot/internal/paymentprovider"
	"github.com/coinsight/coinsight-bot/internal/services/entitlement"
)

// API определяет используемое ботом подмножество Telegram Bot API.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Gate определяет шлюз доступа к платным функциям.
type Gate interface {
	MayUseFeature(userID int64) entitlement.Decision
	ConsumeTrial(ctx context.Context, userID int64) (bool, error)
	ResetTrials(ctx context.Context, callerID int64) (int64, error)
}

// Analyzer строит отчёт по тикеру криптовалюты.
type Analyzer interface {
	Analyze(ctx context.Context, symbol, language string) (string, error)
}

// InvoiceCreator создаёт счёт на оплату у платёжного провайдера.
type InvoiceCreator interface {
	CreateInvoice(ctx context.Context, req paymentprovider.CreateInvoiceRequest) (*paymentprovider.CreateInvoiceResponse, error)
}

// UserRepository определяет методы хранилища пользователей.
type UserRepository interface {
	UpsertUser(ctx context.Context, userID int64, language string) error
	SetUserLanguage(ctx context.Context, userID int64, language string) error
}

// SessionStore хранит состояние диалога.
type SessionStore interface {
	Get(ctx context.Context, userID int64) (models.Session, bool, error)
	Set(ctx context.Context, userID int64, session models.Session) error
}

// Bot обрабатывает входящие обновления Telegram.
type Bot struct {
	api             API
	gate            Gate
	analyzer        Analyzer
	invoices        InvoiceCreator
	users           UserRepository
	sessions        SessionStore
	log             *slog.Logger
	defaultLanguage string
	priceAmount     float64
	priceCurrency   string
	callbackURL     string
}

// New создает Bot со всеми зависимостями диалогового слоя.
func New(api API, gate Gate, analyzer Analyzer, invoices InvoiceCreator,
	users UserRepository, sessions SessionStore, log *slog.Logger,
	defaultLanguage string, priceAmount float64, priceCurrency, callbackURL string) *Bot {
	return &Bot{
		api:             api,
		gate:            gate,
		analyzer:        analyzer,
		invoices:        invoices,
		users:           users,
		sessions:        sessions,
		log:             log,
		defaultLanguage: defaultLanguage,
		priceAmount:     priceAmount,
		priceCurrency:   priceCurrency,
		callbackURL:     callbackURL,
	}
}

// Run обрабатывает обновления до отмены контекста.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			b.log.Info("bot update loop stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			switch {
			case update.Message != nil:
				b.handleMessage(ctx, update.Message)
			case update.CallbackQuery != nil:
				b.handleCallback(ctx, update.CallbackQuery)
			}
		}
	}
}

var languageKeyboard = tgbotapi.NewInlineKeyboardMarkup(
	tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🇸🇦 العربية", "lang:ar"),
		tgbotapi.NewInlineKeyboardButtonData("🇬🇧 English", "lang:en"),
	),
)

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	const op = "telegram.handleMessage"
	userID := message.From.ID
	chatID := message.Chat.ID
	log := b.log.With(slog.String("op", op), slog.Int64("user_id", userID))

	switch {
	case message.Text == "/start":
		b.handleStart(ctx, userID, chatID, log)
	case message.Text == "/reset":
		b.handleReset(ctx, userID, chatID, log)
	case message.Text != "":
		b.handleSymbol(ctx, userID, chatID, strings.ToUpper(strings.TrimSpace(message.Text)), log)
	}
}

func (b *Bot) handleStart(ctx context.Context, userID, chatID int64, log *slog.Logger) {
	if err := b.users.UpsertUser(ctx, userID, b.defaultLanguage); err != nil {
		log.Error("failed to upsert user", sl.Err(err))
	}
	session := models.Session{Language: b.defaultLanguage, Stage: models.StageInitial}
	if err := b.sessions.Set(ctx, userID, session); err != nil {
		log.Error("failed to save session", sl.Err(err))
	}

	msg := tgbotapi.NewMessage(chatID, welcomeText)
	msg.ReplyMarkup = languageKeyboard
	b.send(msg, log)
}

// handleReset выполняет административный сброс пробных периодов.
// Команда от любого, кроме оператора, игнорируется без ответа.
func (b *Bot) handleReset(ctx context.Context, userID, chatID int64, log *slog.Logger) {
	count, err := b.gate.ResetTrials(ctx, userID)
	if err != nil {
		if errors.Is(err, entitlement.ErrNotOperator) {
			log.Warn("reset command from non-operator ignored")
			return
		}
		log.Error("failed to reset trials", sl.Err(err))
		b.send(tgbotapi.NewMessage(chatID, "❌ reset failed"), log)
		return
	}
	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("✅ trials reset: %d", count)), log)
}

func (b *Bot) handleSymbol(ctx context.Context, userID, chatID int64, symbol string, log *slog.Logger) {
	session := b.session(ctx, userID, log)

	decision := b.gate.MayUseFeature(userID)
	switch decision.Reason {
	case entitlement.ReasonPaid:
		b.serveAnalysis(ctx, userID, chatID, symbol, session, log)
	case entitlement.ReasonTrial:
		// Попытка расходуется до выдачи результата: упавший после
		// отметки анализ не возвращает попытку
		consumed, err := b.gate.ConsumeTrial(ctx, userID)
		if err != nil {
			log.Error("failed to consume trial", sl.Err(err))
			b.send(tgbotapi.NewMessage(chatID, text("analysis_failed", session.Language)), log)
			return
		}
		if !consumed {
			// Конкурентный запрос успел первым
			b.offerPayment(ctx, userID, chatID, session, log)
			return
		}
		b.send(tgbotapi.NewMessage(chatID, text("trial_notice", session.Language)), log)
		b.serveAnalysis(ctx, userID, chatID, symbol, session, log)
	default:
		b.offerPayment(ctx, userID, chatID, session, log)
	}
}

func (b *Bot) serveAnalysis(ctx context.Context, userID, chatID int64, symbol string, session models.Session, log *slog.Logger) {
	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf(text("analyzing", session.Language), symbol)), log)

	report, err := b.analyzer.Analyze(ctx, symbol, session.Language)
	if err != nil {
		log.Error("analysis failed", sl.Err(err), slog.String("symbol", symbol))
		b.send(tgbotapi.NewMessage(chatID, text("analysis_failed", session.Language)), log)
		return
	}
	b.send(tgbotapi.NewMessage(chatID, report), log)

	session.Stage = models.StageAwaitingSymbol
	session.LastSymbol = symbol
	if err := b.sessions.Set(ctx, userID, session); err != nil {
		log.Error("failed to save session", sl.Err(err))
	}
}

// offerPayment создаёт счёт у провайдера и отправляет ссылку на оплату.
// order_id счёта равен числовому идентификатору пользователя: по нему
// webhook свяжет подтверждение с пользователем.
func (b *Bot) offerPayment(ctx context.Context, userID, chatID int64, session models.Session, log *slog.Logger) {
	invoice, err := b.invoices.CreateInvoice(ctx, paymentprovider.CreateInvoiceRequest{
		PriceAmount:    b.priceAmount,
		PriceCurrency:  b.priceCurrency,
		OrderID:        strconv.FormatInt(userID, 10),
		OrderDesc:      "crypto analysis access",
		IPNCallbackURL: b.callbackURL,
	})
	if err != nil {
		log.Error("failed to create invoice", sl.Err(err))
		b.send(tgbotapi.NewMessage(chatID, text("invoice_failed", session.Language)), log)
		return
	}

	msg := tgbotapi.NewMessage(chatID, text("payment_required", session.Language))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(text("pay_button", session.Language), invoice.InvoiceURL),
		),
	)
	b.send(msg, log)

	session.Stage = models.StageAwaitingPayment
	if err := b.sessions.Set(ctx, userID, session); err != nil {
		log.Error("failed to save session", sl.Err(err))
	}
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	const op = "telegram.handleCallback"
	userID := callback.From.ID
	log := b.log.With(slog.String("op", op), slog.Int64("user_id", userID))

	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		log.Error("failed to answer callback", sl.Err(err))
	}

	// Для inline-сообщений Telegram не передаёт исходное сообщение
	if callback.Message == nil {
		log.Warn("callback without source message ignored")
		return
	}
	chatID := callback.Message.Chat.ID

	language, ok := strings.CutPrefix(callback.Data, "lang:")
	if !ok {
		log.Warn("unknown callback data", slog.String("data", callback.Data))
		return
	}
	if _, known := texts["ask_symbol"][language]; !known {
		log.Warn("unsupported language", slog.String("language", language))
		return
	}

	if err := b.users.SetUserLanguage(ctx, userID, language); err != nil {
		log.Error("failed to set user language", sl.Err(err))
	}

	session := b.session(ctx, userID, log)
	session.Language = language
	session.Stage = models.StageAwaitingSymbol
	if err := b.sessions.Set(ctx, userID, session); err != nil {
		log.Error("failed to save session", sl.Err(err))
	}

	b.send(tgbotapi.NewMessage(chatID, text("ask_symbol", language)), log)
}

// session возвращает сессию пользователя или новую с языком по умолчанию.
func (b *Bot) session(ctx context.Context, userID int64, log *slog.Logger) models.Session {
	session, found, err := b.sessions.Get(ctx, userID)
	if err != nil {
		log.Error("failed to load session", sl.Err(err))
	}
	if !found || session.Language == "" {
		session.Language = b.defaultLanguage
	}
	if session.Stage == "" {
		session.Stage = models.StageInitial
	}
	return session
}

func (b *Bot) send(c tgbotapi.Chattable, log *slog.Logger) {
	if _, err := b.api.Send(c); err != nil {
		log.Error("failed to send message", sl.Err(err))
	}
}
