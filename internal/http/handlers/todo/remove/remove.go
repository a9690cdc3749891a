// Package remove реализует HTTP-обработчик удаления задачи.
//
// Удалить можно только свою задачу: чужая даёт 403, отсутствующая 404.
package remove

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/todo-subscription/internal/http/middlewarectx"
	"github.com/magabrotheeeer/todo-subscription/internal/http/response"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/apperr"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/sl"
)

// Service описывает удаление задачи.
type Service interface {
	Delete(ctx context.Context, id, requesterID string) error
}

// Handler управляет запросами на удаление задач.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Result — тело успешного ответа.
type Result struct {
	Message string `json:"message" example:"Todo deleted successfully"`
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Удалить задачу
// @Description Удаляет задачу текущего пользователя без возможности восстановления.
// @Tags Todos
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID задачи"
// @Success 200 {object} response.Response{data=Result}
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Задача принадлежит другому пользователю"
// @Failure 404 {object} response.ErrorResponse "Задача не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища"
// @Router /todos/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.todo.remove"
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

	id := chi.URLParam(r, "id")
	if id == "" {
		response.RenderError(w, r, apperr.New(apperr.InvalidArgument, "id is required"))
		return
	}

	if err := h.service.Delete(r.Context(), id, userID); err != nil {
		log.Info("failed to delete todo", slog.String("todo_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(Result{Message: "Todo deleted successfully"}))
}
