// Package health отдаёт состояние сервиса и его хранилища.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/todo-subscription/internal/http/response"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/apperr"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/sl"
)

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler отвечает на запросы проверки здоровья.
type Handler struct {
	log     *slog.Logger
	db      Pinger
	timeout time.Duration
}

// New создает новый Handler.
func New(log *slog.Logger, db Pinger) *Handler {
	return &Handler{
		log:     log,
		db:      db,
		timeout: 2 * time.Second,
	}
}

// ServeHTTP godoc
// @Summary Проверка здоровья
// @Tags Health
// @Produce  json
// @Success 200 {object} response.Response
// @Failure 500 {object} response.ErrorResponse
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.log.Error("database is not reachable", slog.String("op", op), sl.Err(err))
		response.RenderError(w, r, apperr.Wrap(apperr.Unavailable, "database unavailable", err))
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"status": "ok",
	}))
}
