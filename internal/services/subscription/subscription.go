// Package subscription управляет полями подписки пользователя: активирует
// подписку и лениво сверяет её окно с текущим временем.
//
// Фонового планировщика нет. Истёкшая подписка остаётся записанной как активная,
// пока кто-нибудь не прочитает статус; сверка при чтении выполняет запись отмены.
package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/todo-subscription/internal/events"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/apperr"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/clock"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/month"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/sl"
	"github.com/magabrotheeeer/todo-subscription/internal/metrics"
	"github.com/magabrotheeeer/todo-subscription/internal/models"
	"github.com/magabrotheeeer/todo-subscription/internal/storage"
)

// UserRepository определяет методы хранилища для полей подписки.
type UserRepository interface {
	// GetUser возвращает пользователя по ID.
	GetUser(ctx context.Context, id string) (*models.User, error)
	// ActivateSubscription записывает новое окно подписки.
	ActivateSubscription(ctx context.Context, id string, ends time.Time) error
	// ExpireSubscription снимает подписку, если окно закончилось до now.
	ExpireSubscription(ctx context.Context, id string, now time.Time) (bool, error)
}

// UserCache описывает кеш снимков пользователей.
type UserCache interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	SetUser(ctx context.Context, user *models.User, now time.Time) error
	InvalidateUser(ctx context.Context, id string) error
}

// Manager реализует активацию и сверку подписки.
type Manager struct {
	repo    UserRepository
	cache   UserCache
	pub     events.Publisher
	clock   clock.Clock
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewManager создаёт Manager. cache может быть nil, тогда каждое чтение идёт в хранилище.
func NewManager(repo UserRepository, cache UserCache, pub events.Publisher, clk clock.Clock, m *metrics.Metrics, log *slog.Logger) *Manager {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Manager{
		repo:    repo,
		cache:   cache,
		pub:     pub,
		clock:   clk,
		metrics: m,
		log:     log,
	}
}

// Activate открывает окно подписки на один календарный месяц от текущего момента.
// Предыдущее окно не продлевается, а заменяется.
func (m *Manager) Activate(ctx context.Context, userID string) (time.Time, error) {
	const op = "subscription.Activate"
	log := m.log.With(slog.String("op", op), sl.UserID(userID))

	now := m.clock.Now()
	ends := month.Next(now)

	if err := m.repo.ActivateSubscription(ctx, userID, ends); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return time.Time{}, apperr.Wrap(apperr.NotFound, "User not found", err)
		}
		log.Error("failed to activate subscription", sl.Err(err))
		return time.Time{}, apperr.Wrap(apperr.Unavailable, "failed to activate subscription", err)
	}

	m.invalidate(ctx, log, userID)
	m.metrics.SubscriptionActivated.Inc()
	m.publish(ctx, log, events.NewSubscriptionEvent(events.SubscriptionActivated, userID, &ends, now))

	log.Info("subscription activated", slog.Time("subscription_ends", ends))
	return ends, nil
}

// Reconcile возвращает эффективный статус подписки. Если окно закончилось строго
// раньше текущего момента, отмена записывается в хранилище и возвращается
// состояние StateExpired. Повторная сверка уже снятой подписки ничего не пишет.
func (m *Manager) Reconcile(ctx context.Context, userID string) (models.SubscriptionStatus, error) {
	const op = "subscription.Reconcile"
	log := m.log.With(slog.String("op", op), sl.UserID(userID))

	now := m.clock.Now()
	user, err := m.load(ctx, log, userID, now)
	if err != nil {
		return models.SubscriptionStatus{}, err
	}

	if !user.SubscriptionExpired(now) {
		return models.StatusOf(user), nil
	}

	expired, err := m.repo.ExpireSubscription(ctx, userID, now)
	if err != nil {
		log.Error("failed to expire subscription", sl.Err(err))
		return models.SubscriptionStatus{}, apperr.Wrap(apperr.Unavailable, "failed to reconcile subscription", err)
	}
	m.invalidate(ctx, log, userID)

	if !expired {
		// Окно успели продлить между чтением и записью.
		fresh, err := m.repo.GetUser(ctx, userID)
		if err != nil {
			return models.SubscriptionStatus{}, m.mapLoadErr(log, err)
		}
		return models.StatusOf(fresh), nil
	}

	m.metrics.SubscriptionExpired.Inc()
	m.publish(ctx, log, events.NewSubscriptionEvent(events.SubscriptionExpired, userID, nil, now))
	log.Info("subscription expired")

	return models.SubscriptionStatus{
		IsSubscribed:     false,
		SubscriptionEnds: nil,
		State:            models.StateExpired,
	}, nil
}

func (m *Manager) load(ctx context.Context, log *slog.Logger, userID string, now time.Time) (*models.User, error) {
	if m.cache != nil {
		cached, err := m.cache.GetUser(ctx, userID)
		if err != nil {
			log.Warn("failed to read user from cache", sl.Err(err))
		}
		if cached != nil {
			return cached, nil
		}
	}

	user, err := m.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, m.mapLoadErr(log, err)
	}

	// Кешируются только действующие подписки. Снимок без подписки мог быть прочитан
	// до параллельной активации и пережил бы её сброс кеша.
	if m.cache != nil && cacheable(user, now) {
		if err := m.cache.SetUser(ctx, user, now); err != nil {
			log.Warn("failed to cache user", sl.Err(err))
		}
	}
	return user, nil
}

func cacheable(user *models.User, now time.Time) bool {
	return user.IsSubscribed && user.SubscriptionEnds != nil && !user.SubscriptionExpired(now)
}

func (m *Manager) mapLoadErr(log *slog.Logger, err error) error {
	if errors.Is(err, storage.ErrUserNotFound) {
		return apperr.Wrap(apperr.NotFound, "User not found", err)
	}
	log.Error("failed to get user", sl.Err(err))
	return apperr.Wrap(apperr.Unavailable, "failed to get user", err)
}

func (m *Manager) invalidate(ctx context.Context, log *slog.Logger, userID string) {
	if m.cache == nil {
		return
	}
	if err := m.cache.InvalidateUser(ctx, userID); err != nil {
		log.Warn("failed to invalidate cached user", sl.Err(err))
	}
}

func (m *Manager) publish(ctx context.Context, log *slog.Logger, e events.SubscriptionEvent) {
	if err := m.pub.PublishSubscription(ctx, e); err != nil {
		log.Warn("failed to publish subscription event", slog.String("type", string(e.Type)), sl.Err(err))
	}
}
