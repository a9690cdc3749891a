// Package todo содержит бизнес-логику задач: создание с проверкой лимита,
// удаление и переименование с проверкой владельца, постраничный поиск.
package todo

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/todo-subscription/internal/lib/apperr"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/clock"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/sl"
	"github.com/magabrotheeeer/todo-subscription/internal/metrics"
	"github.com/magabrotheeeer/todo-subscription/internal/models"
	"github.com/magabrotheeeer/todo-subscription/internal/services/quota"
	"github.com/magabrotheeeer/todo-subscription/internal/storage"
)

// PageSize — число задач на странице.
const PageSize = 10

// MaxTitleLength — максимальная длина названия в символах.
const MaxTitleLength = 255

// TodoRepository определяет методы хранилища задач.
type TodoRepository interface {
	// CountTodos считает задачи владельца, подходящие под поиск.
	CountTodos(ctx context.Context, ownerID, search string) (int, error)
	// ListTodos возвращает страницу задач владельца.
	ListTodos(ctx context.Context, filter models.TodoFilter) ([]*models.Todo, error)
	// CreateTodo вставляет задачу.
	CreateTodo(ctx context.Context, todo *models.Todo) error
	// CreateTodoGuarded вставляет задачу под блокировкой владельца, если allow разрешает.
	CreateTodoGuarded(ctx context.Context, todo *models.Todo, allow func(count int) bool) error
	// GetTodo возвращает задачу по ID.
	GetTodo(ctx context.Context, id string) (*models.Todo, error)
	// DeleteTodo удаляет задачу владельца.
	DeleteTodo(ctx context.Context, id, ownerID string) error
	// UpdateTodoTitle меняет название задачи владельца.
	UpdateTodoTitle(ctx context.Context, id, ownerID, title string) (*models.Todo, error)
}

// Reconciler возвращает сверенный статус подписки.
type Reconciler interface {
	Reconcile(ctx context.Context, userID string) (models.SubscriptionStatus, error)
}

// Options настраивают Service.
type Options struct {
	Policy quota.Policy
	// Atomic включает проверку лимита и вставку в одной транзакции.
	// Без него счётчик читается отдельно и параллельные запросы могут превысить лимит.
	Atomic bool
}

// Service реализует операции над задачами.
type Service struct {
	repo    TodoRepository
	subs    Reconciler
	opts    Options
	clock   clock.Clock
	newID   func() (string, error)
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewService создаёт Service.
func NewService(repo TodoRepository, subs Reconciler, opts Options, clk clock.Clock, m *metrics.Metrics, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		subs:    subs,
		opts:    opts,
		clock:   clk,
		newID:   newTodoID,
		metrics: m,
		log:     log,
	}
}

func newTodoID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// CanMutate сообщает, может ли requesterID менять или удалять задачу.
func CanMutate(todo *models.Todo, requesterID string) bool {
	return requesterID != "" && todo.OwnedBy(requesterID)
}

// ParsePage разбирает номер страницы. Пустое, нечисловое или меньшее единицы значение даёт 1.
func ParsePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// TotalPages — число страниц для total задач.
func TotalPages(total int) int {
	return (total + PageSize - 1) / PageSize
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperr.New(apperr.InvalidArgument, "Title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", apperr.New(apperr.InvalidArgument, "Title is too long")
	}
	return title, nil
}

// Create создаёт задачу владельца ownerID. Подписка владельца сверяется до подсчёта,
// поэтому только что истёкшая подписка уже не снимает лимит.
func (s *Service) Create(ctx context.Context, ownerID, title string) (*models.Todo, error) {
	const op = "todo.Create"
	log := s.log.With(slog.String("op", op), sl.UserID(ownerID))

	title, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}

	status, err := s.subs.Reconcile(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	id, err := s.newID()
	if err != nil {
		log.Error("failed to generate todo id", sl.Err(err))
		return nil, apperr.Wrap(apperr.Unavailable, "Error while creating todo", err)
	}
	todo := &models.Todo{
		ID:        id,
		Title:     title,
		UserID:    ownerID,
		CreatedAt: s.clock.Now().UTC().Truncate(time.Microsecond),
	}

	if s.opts.Atomic {
		err = s.repo.CreateTodoGuarded(ctx, todo, func(count int) bool {
			return s.opts.Policy.CanCreate(status, count)
		})
	} else {
		err = s.createAdvisory(ctx, status, todo)
	}
	if err != nil {
		return nil, s.mapCreateErr(log, err)
	}

	s.metrics.TodosCreated.Inc()
	log.Info("todo created", slog.String("todo_id", todo.ID))
	return todo, nil
}

func (s *Service) createAdvisory(ctx context.Context, status models.SubscriptionStatus, todo *models.Todo) error {
	count, err := s.repo.CountTodos(ctx, todo.UserID, "")
	if err != nil {
		return err
	}
	if !s.opts.Policy.CanCreate(status, count) {
		return storage.ErrQuotaExceeded
	}
	return s.repo.CreateTodo(ctx, todo)
}

func (s *Service) mapCreateErr(log *slog.Logger, err error) error {
	switch {
	case errors.Is(err, storage.ErrQuotaExceeded):
		s.metrics.QuotaRejections.Inc()
		log.Info("todo quota exceeded")
		return apperr.Wrap(apperr.QuotaExceeded, s.opts.Policy.Message(), err)
	case errors.Is(err, storage.ErrUserNotFound):
		return apperr.Wrap(apperr.NotFound, "User not found", err)
	default:
		log.Error("failed to create todo", sl.Err(err))
		return apperr.Wrap(apperr.Unavailable, "Error while creating todo", err)
	}
}

// Delete удаляет задачу. Чужую задачу удалить нельзя.
func (s *Service) Delete(ctx context.Context, id, requesterID string) error {
	const op = "todo.Delete"
	log := s.log.With(slog.String("op", op), sl.UserID(requesterID), slog.String("todo_id", id))

	if _, err := s.owned(ctx, log, id, requesterID); err != nil {
		return err
	}

	if err := s.repo.DeleteTodo(ctx, id, requesterID); err != nil {
		if errors.Is(err, storage.ErrTodoNotFound) {
			return apperr.Wrap(apperr.NotFound, "Todo not found", err)
		}
		log.Error("failed to delete todo", sl.Err(err))
		return apperr.Wrap(apperr.Unavailable, "Error deleting todo", err)
	}

	s.metrics.TodosDeleted.Inc()
	log.Info("todo deleted")
	return nil
}

// Rename меняет название задачи с той же проверкой владельца, что и Delete.
func (s *Service) Rename(ctx context.Context, id, requesterID, title string) (*models.Todo, error) {
	const op = "todo.Rename"
	log := s.log.With(slog.String("op", op), sl.UserID(requesterID), slog.String("todo_id", id))

	title, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}
	if _, err = s.owned(ctx, log, id, requesterID); err != nil {
		return nil, err
	}

	todo, err := s.repo.UpdateTodoTitle(ctx, id, requesterID, title)
	if err != nil {
		if errors.Is(err, storage.ErrTodoNotFound) {
			return nil, apperr.Wrap(apperr.NotFound, "Todo not found", err)
		}
		log.Error("failed to rename todo", sl.Err(err))
		return nil, apperr.Wrap(apperr.Unavailable, "Error updating todo", err)
	}
	return todo, nil
}

func (s *Service) owned(ctx context.Context, log *slog.Logger, id, requesterID string) (*models.Todo, error) {
	todo, err := s.repo.GetTodo(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrTodoNotFound) {
			return nil, apperr.Wrap(apperr.NotFound, "Todo not found", err)
		}
		log.Error("failed to get todo", sl.Err(err))
		return nil, apperr.Wrap(apperr.Unavailable, "Error getting todo", err)
	}
	if !CanMutate(todo, requesterID) {
		log.Warn("ownership check failed", slog.String("owner_id", todo.UserID))
		return nil, apperr.New(apperr.Forbidden, "Forbidden")
	}
	return todo, nil
}

// List возвращает страницу page задач владельца, чьё название содержит search
// без учёта регистра. Задачи идут от новых к старым.
func (s *Service) List(ctx context.Context, ownerID string, page int, search string) (*models.TodoPage, error) {
	const op = "todo.List"
	log := s.log.With(slog.String("op", op), sl.UserID(ownerID))

	if page < 1 {
		page = 1
	}

	total, err := s.repo.CountTodos(ctx, ownerID, search)
	if err != nil {
		log.Error("failed to count todos", sl.Err(err))
		return nil, apperr.Wrap(apperr.Unavailable, "Error in getting todos", err)
	}

	items := []*models.Todo{}
	offset := (page - 1) * PageSize
	if offset < total {
		items, err = s.repo.ListTodos(ctx, models.TodoFilter{
			OwnerID: ownerID,
			Search:  search,
			Limit:   PageSize,
			Offset:  offset,
		})
		if err != nil {
			log.Error("failed to list todos", sl.Err(err))
			return nil, apperr.Wrap(apperr.Unavailable, "Error in getting todos", err)
		}
	}

	return &models.TodoPage{
		Items:       items,
		CurrentPage: page,
		TotalPages:  TotalPages(total),
	}, nil
}
