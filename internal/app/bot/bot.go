package bot

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/streadway/amqp"

	"github.com/coinsight/coinsight-bot/internal/analyzer"
	"github.com/coinsight/coinsight-bot/internal/cache"
	"github.com/coinsight/coinsight-bot/internal/config"
	"github.com/coinsight/coinsight-bot/internal/migrations"
	"github.com/coinsight/coinsight-bot/internal/paymentprovider"
	"github.com/coinsight/coinsight-bot/internal/rabbitmq"
	entitlementservice "github.com/coinsight/coinsight-bot/internal/services/entitlement"
	paymentservice "github.com/coinsight/coinsight-bot/internal/services/payment"
	"github.com/coinsight/coinsight-bot/internal/sessions"
	"github.com/coinsight/coinsight-bot/internal/storage/repository"
	"github.com/coinsight/coinsight-bot/internal/telegram"
)

// App объединяет HTTP-сервер вебхуков и диалоговый цикл бота.
type App struct {
	server   *http.Server
	api      *tgbotapi.BotAPI
	bot      *telegram.Bot
	conn     *amqp.Connection
	ch       *amqp.Channel
	db       *repository.Storage
	sessions *sessions.Store
	logger   *slog.Logger
}

// New собирает все зависимости основного процесса.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	sessionStore, err := sessions.New(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	// Зеркало прав прогревается из хранилища до приёма трафика
	entCache := cache.NewEntitlements()
	entitlementService, err := entitlementservice.New(ctx, db, entCache, logger, cfg.OperatorID)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		conn.Close()
		return nil, err
	}
	publisher := rabbitmq.NewPaymentConfirmationPublisher(ch)

	paymentService := paymentservice.New(db, entCache, publisher, logger, cfg.DefaultLanguage)
	providerClient := paymentprovider.NewClient(cfg.APIKey, cfg.Payment.Timeout)
	groqClient := analyzer.New(cfg.GroqAPIKey, cfg.GroqModel, cfg.GroqURL, cfg.GroqTimeout)

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	logger.Info("authorized on telegram", slog.String("username", api.Self.UserName))

	chatBot := telegram.New(api, entitlementService, groqClient, providerClient,
		db, sessionStore, logger, cfg.DefaultLanguage,
		cfg.PriceAmount, cfg.PriceCurrency, cfg.CallbackURL)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, paymentService, db, cfg.IPNSecret)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:   srv,
		api:      api,
		bot:      chatBot,
		conn:     conn,
		ch:       ch,
		db:       db,
		sessions: sessionStore,
		logger:   logger,
	}, nil
}

// Run запускает цикл обновлений бота и HTTP-сервер,
// завершает оба по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := a.api.GetUpdatesChan(updateConfig)
	go a.bot.Run(ctx, updates)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down gracefully")
		a.api.StopReceivingUpdates()
		err := a.server.Shutdown(timeoutCtx)
		if closeErr := a.ch.Close(); closeErr != nil {
			a.logger.Error("failed to close channel", slog.Any("err", closeErr))
		}
		if closeErr := a.conn.Close(); closeErr != nil {
			a.logger.Error("failed to close connection", slog.Any("err", closeErr))
		}
		if closeErr := a.sessions.Close(); closeErr != nil {
			a.logger.Error("failed to close sessions store", slog.Any("err", closeErr))
		}
		a.db.DB.Close()
		return err
	}
}
