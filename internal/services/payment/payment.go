// Package payment реализует обработку событий платёжного провайдера.
// Единственная атомарная единица истины — вставка в таблицу оплативших;
// обновление зеркала и уведомление строго следуют за успешной вставкой
// и выполняются только тем вызовом, который её произвёл.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/coinsight/coinsight-bot/internal/cache"
	"github.com/coinsight/coinsight-bot/internal/lib/sl"
	"github.com/coinsight/coinsight-bot/internal/metrics"
	"github.com/coinsight/coinsight-bot/internal/models"
)

// ErrMalformedOrderID возвращается, когда order_id события не является
// корректным числовым идентификатором пользователя. Повтор доставки
// такого события бессмыслен: дефект в самом теле, а не в обработке.
var ErrMalformedOrderID = errors.New("malformed order id")

// Result — исход обработки одного события.
type Result string

const (
	// ResultIgnored — статус события не "finished", состояние не менялось.
	ResultIgnored Result = "ignored"
	// ResultUpgraded — событие впервые перевело пользователя в оплаченное состояние.
	ResultUpgraded Result = "upgraded"
	// ResultDuplicate — повторная доставка, вставка конфликтовала, эффекта нет.
	ResultDuplicate Result = "duplicate"
)

// Repository определяет методы хранилища, нужные обработчику платежей.
type Repository interface {
	// GrantPaid выдаёт оплаченное состояние; true — вставку выполнил этот вызов.
	GrantPaid(ctx context.Context, userID int64) (bool, error)
	// GetUserLanguage возвращает язык пользователя или пустую строку.
	GetUserLanguage(ctx context.Context, userID int64) (string, error)
}

// Publisher отправляет подтверждение оплаты в очередь уведомлений.
type Publisher interface {
	PublishPaymentConfirmed(message models.PaymentConfirmation) error
}

// Service реализует обработку платёжных событий.
type Service struct {
	repo            Repository
	cache           *cache.Entitlements
	publisher       Publisher
	log             *slog.Logger
	defaultLanguage string
}

// New создает Service обработки платежей.
func New(repo Repository, entCache *cache.Entitlements, publisher Publisher, log *slog.Logger, defaultLanguage string) *Service {
	return &Service{
		repo:            repo,
		cache:           entCache,
		publisher:       publisher,
		log:             log,
		defaultLanguage: defaultLanguage,
	}
}

// Тексты подтверждения оплаты по языку пользователя.
var confirmationTexts = map[string]string{
	"ar": "✅ تم تأكيد الدفع! أصبح لديك الآن وصول كامل إلى تحليلات العملات الرقمية.",
	"en": "✅ Payment confirmed! You now have full access to crypto analysis.",
}

// ProcessEvent применяет проверенное событие провайдера.
// Для статуса, отличного от "finished", состояние не меняется.
// Для "finished" выполняется идемпотентное повышение прав: при повторной
// доставке вставка конфликтует и уведомление не отправляется повторно.
func (s *Service) ProcessEvent(ctx context.Context, event models.PaymentEvent) (Result, error) {
	const op = "services.payment.ProcessEvent"
	log := s.log.With(slog.String("op", op), slog.String("order_id", event.OrderID))

	if event.PaymentStatus != models.StatusFinished {
		log.Info("payment event ignored", slog.String("status", event.PaymentStatus))
		return ResultIgnored, nil
	}

	// order_id по соглашению равен числовому идентификатору пользователя
	userID, err := strconv.ParseInt(event.OrderID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%s: order id %q: %w", op, event.OrderID, ErrMalformedOrderID)
	}

	upgraded, err := s.repo.GrantPaid(ctx, userID)
	if err != nil {
		// Ошибка хранилища видна вызывающему: webhook ответит 5xx,
		// провайдер повторит доставку
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !upgraded {
		log.Info("duplicate finished event, no effect", slog.Int64("user_id", userID))
		return ResultDuplicate, nil
	}

	// Зеркало обновляется сразу после фиксации записи, тем же путём исполнения
	s.cache.SetPaid(userID)
	metrics.EntitlementUpgrades.Inc()
	log.Info("user upgraded to paid", slog.Int64("user_id", userID))

	s.notify(ctx, userID, log)
	return ResultUpgraded, nil
}

// notify отправляет ровно одно подтверждение для первого применения
// события. Ошибка доставки логируется и проглатывается: уведомление
// вспомогательно, откат выданных прав недопустим.
func (s *Service) notify(ctx context.Context, userID int64, log *slog.Logger) {
	language, err := s.repo.GetUserLanguage(ctx, userID)
	if err != nil {
		log.Warn("failed to load user language, using default", sl.Err(err))
		language = s.defaultLanguage
	}
	text, ok := confirmationTexts[language]
	if !ok {
		text = confirmationTexts[s.defaultLanguage]
		if text == "" {
			text = confirmationTexts["en"]
		}
	}

	message := models.PaymentConfirmation{UserID: userID, Text: text}
	if err := s.publisher.PublishPaymentConfirmed(message); err != nil {
		log.Error("failed to publish payment confirmation", sl.Err(err))
		return
	}
	metrics.NotificationsPublished.Inc()
	log.Info("payment confirmation published", slog.Int64("user_id", userID))
}
