// Package activate реализует HTTP-обработчик оплаты подписки.
//
// Handler открывает текущему пользователю окно подписки на один календарный месяц
// и возвращает дату его окончания.
package activate

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/todo-subscription/internal/http/middlewarectx"
	"github.com/magabrotheeeer/todo-subscription/internal/http/response"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/apperr"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/sl"
)

// Service описывает активацию подписки.
type Service interface {
	Activate(ctx context.Context, userID string) (time.Time, error)
}

// Handler управляет запросами на активацию подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Result — тело успешного ответа.
type Result struct {
	Message          string    `json:"message" example:"Subscription successful"`
	SubscriptionEnds time.Time `json:"subscriptionEnds"`
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Оформить подписку
// @Description Открывает окно подписки на один календарный месяц от текущего момента. Повторный вызов заменяет окно.
// @Tags Subscription
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=Result}
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища"
// @Router /subscription [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.activate"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		log.Error("user id not found in context")
		response.RenderError(w, r, apperr.New(apperr.Unauthenticated, "Unauthorized"))
		return
	}

	ends, err := h.service.Activate(r.Context(), userID)
	if err != nil {
		log.Error("failed to activate subscription", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(Result{
		Message:          "Subscription successful",
		SubscriptionEnds: ends,
	}))
}
