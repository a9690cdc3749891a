// Package provisioning создаёт запись пользователя по событию провайдера идентичности.
package provisioning

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/todo-subscription/internal/lib/apperr"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/sl"
	"github.com/magabrotheeeer/todo-subscription/internal/metrics"
	"github.com/magabrotheeeer/todo-subscription/internal/models"
	"github.com/magabrotheeeer/todo-subscription/internal/storage"
)

// Источники события создания пользователя.
const (
	SourceWebhook = "webhook"
	SourceQueue   = "queue"
)

// UserCreator сохраняет нового пользователя.
type UserCreator interface {
	CreateUser(ctx context.Context, user models.User) (bool, error)
}

// UserCacheInvalidator сбрасывает снимок пользователя в кеше.
type UserCacheInvalidator interface {
	InvalidateUser(ctx context.Context, id string) error
}

// Service создаёт пользователей ровно один раз на идентификатор.
type Service struct {
	repo     UserCreator
	cache    UserCacheInvalidator
	validate *validator.Validate
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// NewService создаёт Service. cache может быть nil.
func NewService(repo UserCreator, cache UserCacheInvalidator, m *metrics.Metrics, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		validate: validator.New(),
		metrics:  m,
		log:      log,
	}
}

// Provision создаёт пользователя без подписки. Повторная доставка того же
// идентификатора не является ошибкой; created=false в этом случае.
func (s *Service) Provision(ctx context.Context, req models.ProvisionRequest, source string) (bool, error) {
	const op = "provisioning.Provision"
	req.ID = strings.TrimSpace(req.ID)
	req.Email = strings.TrimSpace(req.Email)
	log := s.log.With(slog.String("op", op), sl.UserID(req.ID), slog.String("source", source))

	if err := s.validate.Struct(req); err != nil {
		log.Warn("invalid provisioning request", sl.Err(err))
		return false, apperr.Wrap(apperr.InvalidArgument, "id and email are required", err)
	}

	created, err := s.repo.CreateUser(ctx, models.User{ID: req.ID, Email: req.Email})
	if err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			log.Warn("email already belongs to another user")
			return false, apperr.Wrap(apperr.InvalidArgument, "email already registered", err)
		}
		log.Error("failed to create user", sl.Err(err))
		return false, apperr.Wrap(apperr.Unavailable, "Error creating user", err)
	}

	if created {
		if s.cache != nil {
			if err := s.cache.InvalidateUser(ctx, req.ID); err != nil {
				log.Warn("failed to invalidate cached user", sl.Err(err))
			}
		}
		s.metrics.UsersProvisioned.WithLabelValues(source).Inc()
		log.Info("user provisioned")
	} else {
		log.Info("user already provisioned")
	}
	return created, nil
}
