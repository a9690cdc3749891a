// Package create реализует HTTP-обработчик создания задачи.
//
// Handler принимает JSON с названием, валидирует его и создаёт задачу текущего
// пользователя. Пользователь без подписки получает 403, если лимит исчерпан.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/todo-subscription/internal/http/middlewarectx"
	"github.com/magabrotheeeer/todo-subscription/internal/http/response"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/apperr"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/sl"
	"github.com/magabrotheeeer/todo-subscription/internal/models"
)

// Service описывает создание задачи.
type Service interface {
	Create(ctx context.Context, ownerID, title string) (*models.Todo, error)
}

// Handler управляет HTTP-запросами на создание задач.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Result — тело успешного ответа.
type Result struct {
	Message string       `json:"message" example:"Todo created successfully"`
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
// @Summary Создать задачу
// @Description Создаёт задачу текущего пользователя. Без подписки можно держать не больше трёх задач.
// @Tags Todos
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.TodoRequest true "Название задачи"
// @Success 201 {object} response.Response{data=Result}
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Лимит задач исчерпан"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища"
// @Router /todos [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.todo.create"
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

	var req models.TodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		response.RenderError(w, r, apperr.Wrap(apperr.InvalidArgument, "invalid request body", err))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationError(verrs))
			return
		}
		response.RenderError(w, r, apperr.Wrap(apperr.InvalidArgument, "invalid request body", err))
		return
	}

	todo, err := h.service.Create(r.Context(), userID, req.Title)
	if err != nil {
		log.Info("failed to create todo", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(Result{
		Message: "Todo created successfully",
		Todo:    todo,
	}))
}
