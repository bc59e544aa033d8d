// Package notificationsender собирает процесс доставки уведомлений:
// потребитель очереди подтверждений оплаты и отправка в чат пользователя.
package notificationsender

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/coinsight/coinsight-bot/internal/config"
	"github.com/coinsight/coinsight-bot/internal/rabbitmq"
	notifierservice "github.com/coinsight/coinsight-bot/internal/services/notifier"
	"github.com/coinsight/coinsight-bot/internal/telegram"
)

type App struct {
	conn            *amqp.Connection
	ch              *amqp.Channel
	notifierService *notifierservice.Service
	logger          *slog.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}

	queues := rabbitmq.GetNotificationQueues()
	ch, err := rabbitmq.SetupChannel(conn, queues)
	if err != nil {
		conn.Close()
		return nil, err
	}

	notifier, err := telegram.NewNotifier(cfg.BotToken)
	if err != nil {
		conn.Close()
		return nil, err
	}
	notifierService := notifierservice.New(notifier, logger)

	return &App{
		conn:            conn,
		ch:              ch,
		notifierService: notifierService,
		logger:          logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.PaymentConfirmedQueue, a.notifierService.SendPaymentConfirmation)
	if err != nil {
		a.logger.Error("failed to start payment confirmation consumer", slog.Any("err", err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("notification sender shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	return nil
}
