// Package entitlement реализует бизнес-логику доступа к платным функциям:
// решение "обслужить / пробный период / отказать", долговечную отметку
// израсходованной пробной попытки и административный сброс.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coinsight/coinsight-bot/internal/cache"
	"github.com/coinsight/coinsight-bot/internal/metrics"
	"github.com/coinsight/coinsight-bot/internal/models"
)

// ErrNotOperator возвращается при попытке сброса не оператором.
var ErrNotOperator = errors.New("caller is not the configured operator")

// Причины решения о доступе.
type Reason string

const (
	ReasonPaid            Reason = "paid"
	ReasonTrial           Reason = "trial"
	ReasonPaymentRequired Reason = "payment_required"
)

// Decision — ответ на запрос платной функции.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Repository определяет методы хранилища, нужные шлюзу доступа.
type Repository interface {
	// ConsumeTrial помечает пробный период израсходованным; true — отметку поставил этот вызов.
	ConsumeTrial(ctx context.Context, userID int64) (bool, error)
	// ResetTrials очищает все отметки пробных периодов.
	ResetTrials(ctx context.Context) (int64, error)
	// ListEntitlements возвращает полный снимок прав.
	ListEntitlements(ctx context.Context) ([]models.Entitlement, error)
}

// Service реализует шлюз доступа поверх хранилища и локального зеркала.
type Service struct {
	repo       Repository
	cache      *cache.Entitlements
	log        *slog.Logger
	operatorID int64
}

// New создает Service и прогревает зеркало прав из хранилища.
func New(ctx context.Context, repo Repository, entCache *cache.Entitlements, log *slog.Logger, operatorID int64) (*Service, error) {
	const op = "services.entitlement.New"

	entries, err := repo.ListEntitlements(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	entCache.WarmUp(entries)
	log.Info("entitlement cache warmed up", slog.Int("entries", entCache.Len()))

	return &Service{
		repo:       repo,
		cache:      entCache,
		log:        log,
		operatorID: operatorID,
	}, nil
}

// MayUseFeature решает, можно ли обслужить запрос платной функции.
// Читает только зеркало: горячий путь не обращается к базе данных.
func (s *Service) MayUseFeature(userID int64) Decision {
	e := s.cache.Get(userID)
	switch {
	case e.Paid:
		return Decision{Allowed: true, Reason: ReasonPaid}
	case e.TrialConsumed:
		return Decision{Allowed: false, Reason: ReasonPaymentRequired}
	default:
		return Decision{Allowed: true, Reason: ReasonTrial}
	}
}

// ConsumeTrial долговечно помечает пробный период израсходованным до
// выдачи результата пользователю. Возвращает true, если попытку получил
// именно этот вызов: из двух конкурентных запросов одного пользователя
// вставку выполняет ровно один, второй наблюдает конфликт и получает отказ.
func (s *Service) ConsumeTrial(ctx context.Context, userID int64) (bool, error) {
	const op = "services.entitlement.ConsumeTrial"

	consumed, err := s.repo.ConsumeTrial(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	// Зеркало обновляет только путь, зафиксировавший запись
	s.cache.SetTrialConsumed(userID)
	if consumed {
		metrics.TrialsConsumed.Inc()
		s.log.Info("trial consumed", slog.Int64("user_id", userID))
	}
	return consumed, nil
}

// ResetTrials выполняет административный сброс пробных периодов.
// Разрешён только настроенному оператору; любая другая личность
// получает отказ без изменения состояния.
func (s *Service) ResetTrials(ctx context.Context, callerID int64) (int64, error) {
	const op = "services.entitlement.ResetTrials"

	if callerID != s.operatorID {
		s.log.Warn("trial reset rejected", slog.Int64("caller_id", callerID))
		return 0, fmt.Errorf("%s: %w", op, ErrNotOperator)
	}

	count, err := s.repo.ResetTrials(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	s.cache.ResetTrials()
	s.log.Info("trials reset by operator", slog.Int64("operator_id", callerID), slog.Int64("cleared", count))
	return count, nil
}
