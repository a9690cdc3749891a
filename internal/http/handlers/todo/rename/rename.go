// Package rename реализует HTTP-обработчик переименования задачи.
package rename

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/todo-subscription/internal/http/middlewarectx"
	"github.com/magabrotheeeer/todo-subscription/internal/http/response"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/apperr"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/sl"
	"github.com/magabrotheeeer/todo-subscription/internal/models"
)

// Service описывает переименование задачи.
type Service interface {
	Rename(ctx context.Context, id, requesterID, title string) (*models.Todo, error)
}

// Handler управляет запросами на переименование задач.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Result — тело успешного ответа.
type Result struct {
	Message string       `json:"message" example:"Todo updated successfully"`
	Todo    *models.Todo `json:"todo"`
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Переименовать задачу
// @Description Меняет название задачи текущего пользователя.
// @Tags Todos
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID задачи"
// @Param request body models.TodoRequest true "Новое название"
// @Success 200 {object} response.Response{data=Result}
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Задача принадлежит другому пользователю"
// @Failure 404 {object} response.ErrorResponse "Задача не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища"
// @Router /todos/{id} [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.todo.rename"
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

	var req models.TodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		response.RenderError(w, r, apperr.Wrap(apperr.InvalidArgument, "invalid request body", err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationError(verrs))
			return
		}
		response.RenderError(w, r, apperr.Wrap(apperr.InvalidArgument, "invalid request body", err))
		return
	}

	todo, err := h.service.Rename(r.Context(), id, userID, req.Title)
	if err != nil {
		log.Info("failed to rename todo", slog.String("todo_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(Result{
		Message: "Todo updated successfully",
		Todo:    todo,
	}))
}
