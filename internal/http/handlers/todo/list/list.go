// Package list реализует HTTP-обработчик постраничного списка задач.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/todo-subscription/internal/http/middlewarectx"
	"github.com/magabrotheeeer/todo-subscription/internal/http/response"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/apperr"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/sl"
	"github.com/magabrotheeeer/todo-subscription/internal/models"
	"github.com/magabrotheeeer/todo-subscription/internal/services/todo"
)

// Service описывает выборку задач.
type Service interface {
	List(ctx context.Context, ownerID string, page int, search string) (*models.TodoPage, error)
}

// Handler управляет запросами списка задач.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список задач
// @Description Возвращает страницу задач текущего пользователя, от новых к старым. Поиск по подстроке без учёта регистра.
// @Tags Todos
// @Produce  json
// @Security BearerAuth
// @Param page query int false "Номер страницы, с 1"
// @Param search query string false "Подстрока в названии"
// @Success 200 {object} response.Response{data=models.TodoPage}
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища"
// @Router /todos [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.todo.list"
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

	q := r.URL.Query()
	page := todo.ParsePage(q.Get("page"))
	search := q.Get("search")

	result, err := h.service.List(r.Context(), userID, page, search)
	if err != nil {
		log.Error("failed to list todos", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Debug("todos listed", slog.Int("count", len(result.Items)), slog.Int("page", page))
	render.JSON(w, r, response.StatusOKWithData(result))
}
