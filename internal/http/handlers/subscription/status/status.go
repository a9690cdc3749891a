// Package status реализует HTTP-обработчик чтения статуса подписки.
//
// Чтение выполняет ленивую сверку: если окно подписки закончилось,
// отмена записывается в хранилище до ответа.
package status

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
	"github.com/magabrotheeeer/todo-subscription/internal/models"
)

// Service описывает сверку подписки.
type Service interface {
	Reconcile(ctx context.Context, userID string) (models.SubscriptionStatus, error)
}

// Handler управляет запросами статуса подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Result — тело успешного ответа.
type Result struct {
	Message          string     `json:"message" example:"Subscription successful"`
	IsSubscribed     bool       `json:"isSubscribed"`
	SubscriptionEnds *time.Time `json:"subscriptionEnds"`
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Статус подписки
// @Description Возвращает сверенный статус подписки. Истёкшая подписка снимается при чтении.
// @Tags Subscription
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=Result}
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища"
// @Router /subscription [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.status"
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

	st, err := h.service.Reconcile(r.Context(), userID)
	if err != nil {
		log.Error("failed to get subscription", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	msg := "Subscription successful"
	if st.State == models.StateExpired {
		msg = "Subscription expired"
	}
	render.JSON(w, r, response.StatusOKWithData(Result{
		Message:          msg,
		IsSubscribed:     st.IsSubscribed,
		SubscriptionEnds: st.SubscriptionEnds,
	}))
}
