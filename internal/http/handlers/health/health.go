// Package health реализует проверку готовности сервиса.
package health

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/coinsight/coinsight-bot/internal/http/response"
	"github.com/coinsight/coinsight-bot/internal/lib/sl"
)

// ReadinessChecker проверяет готовность зависимостей сервиса.
type ReadinessChecker interface {
	Ready() error
}

type Handler struct {
	log     *slog.Logger
	checker ReadinessChecker
}

func New(log *slog.Logger, checker ReadinessChecker) *Handler {
	return &Handler{
		log:     log,
		checker: checker,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	if err := h.checker.Ready(); err != nil {
		h.log.Error("readiness check failed", sl.Err(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("not ready"))
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"status": "ok",
	}))
}
