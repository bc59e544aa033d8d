// Package bot предоставляет сборку основного процесса: HTTP-сервер
// платёжных вебхуков и диалоговый цикл Telegram.
package bot

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/coinsight/coinsight-bot/internal/http/handlers/health"
	"github.com/coinsight/coinsight-bot/internal/http/handlers/payment/paymentwebhook"
	"github.com/coinsight/coinsight-bot/internal/http/middlewarectx"
	paymentservice "github.com/coinsight/coinsight-bot/internal/services/payment"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, paymentService *paymentservice.Service, checker health.ReadinessChecker, ipnSecret string) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(logger))
		// Подлинность вебхука гарантирует подпись тела, не аутентификация
		r.Post("/payments/webhook", paymentwebhook.New(logger, paymentService, ipnSecret).ServeHTTP)
		r.Get("/health", health.New(logger, checker).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
