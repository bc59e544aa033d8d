// Package paymentwebhook реализует приём IPN‑уведомлений платёжного провайдера.
// Подпись проверяется над сырыми байтами тела до любого разбора JSON:
// неподписанное или неверно подписанное тело не интерпретируется вовсе.
package paymentwebhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/coinsight/coinsight-bot/internal/http/response"
	"github.com/coinsight/coinsight-bot/internal/lib/sl"
	"github.com/coinsight/coinsight-bot/internal/metrics"
	"github.com/coinsight/coinsight-bot/internal/models"
	"github.com/coinsight/coinsight-bot/internal/services/payment"
)

// SignatureHeader — заголовок с HMAC‑подписью тела уведомления.
const SignatureHeader = "x-nowpayments-sig"

// Service определяет обработку проверенного платёжного события.
type Service interface {
	ProcessEvent(ctx context.Context, event models.PaymentEvent) (payment.Result, error)
}

// Handler принимает вебхуки платёжного провайдера.
type Handler struct {
	log       *slog.Logger
	service   Service
	ipnSecret string
}

// New создает Handler приёма вебхуков.
func New(log *slog.Logger, service Service, ipnSecret string) *Handler {
	return &Handler{
		log:       log,
		service:   service,
		ipnSecret: ipnSecret,
	}
}

// verifySignature проверяет HMAC‑SHA512 подпись сырого тела.
// Сравнение выполняется за постоянное время.
func (h *Handler) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(h.ipnSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ServeHTTP обрабатывает POST /api/v1/payments/webhook.
//
// @Summary      Приём IPN‑уведомления платёжного провайдера
// @Description  Проверяет HMAC‑подпись тела, применяет событие идемпотентно
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        x-nowpayments-sig  header  string  true  "HMAC-SHA512 подпись тела (hex)"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.ErrorResponse
// @Failure      401  {object}  response.ErrorResponse
// @Failure      500  {object}  response.ErrorResponse
// @Router       /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.paymentwebhook"
	log := h.log.With(slog.String("op", op))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		metrics.WebhookEvents.WithLabelValues("rejected_payload").Inc()
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to read request body"))
		return
	}
	defer r.Body.Close()

	// Без настроенного секрета ни одна подпись не может считаться
	// подлинной: запрос отклоняется до вычисления HMAC
	if h.ipnSecret == "" {
		log.Error("ipn secret is not configured, rejecting webhook")
		metrics.WebhookEvents.WithLabelValues("rejected_signature").Inc()
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	signature := r.Header.Get(SignatureHeader)
	if signature == "" || !h.verifySignature(body, signature) {
		log.Error("invalid or missing webhook signature")
		metrics.WebhookEvents.WithLabelValues("rejected_signature").Inc()
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	var event models.PaymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		metrics.WebhookEvents.WithLabelValues("rejected_payload").Inc()
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := validator.New().Struct(event); err != nil {
		var validateErr validator.ValidationErrors
		errors.As(err, &validateErr)
		log.Error("invalid webhook payload", sl.Err(err))
		metrics.WebhookEvents.WithLabelValues("rejected_payload").Inc()
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(validateErr))
		return
	}

	result, err := h.service.ProcessEvent(r.Context(), event)
	if err != nil {
		// Дефектное тело повтором не исправить: отвечаем 4xx,
		// чтобы провайдер не зациклился на повторной доставке
		if errors.Is(err, payment.ErrMalformedOrderID) {
			log.Error("malformed order id in webhook payload", sl.Err(err))
			metrics.WebhookEvents.WithLabelValues("rejected_payload").Inc()
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid request body"))
			return
		}
		// 5xx заставляет провайдера повторить доставку; повтор безопасен
		log.Error("failed to process payment event", sl.Err(err))
		metrics.WebhookEvents.WithLabelValues("failed").Inc()
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to process event"))
		return
	}

	metrics.WebhookEvents.WithLabelValues(string(result)).Inc()
	log.Info("webhook processed",
		slog.String("status", event.PaymentStatus),
		slog.String("result", string(result)))
	render.JSON(w, r, response.StatusOKWithData(map[string]string{"result": string(result)}))
}
