// Package provisioner потребляет события создания пользователей из RabbitMQ.
package provisioner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/todo-subscription/internal/cache"
	"github.com/magabrotheeeer/todo-subscription/internal/config"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/apperr"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/sl"
	"github.com/magabrotheeeer/todo-subscription/internal/metrics"
	"github.com/magabrotheeeer/todo-subscription/internal/migrations"
	"github.com/magabrotheeeer/todo-subscription/internal/models"
	"github.com/magabrotheeeer/todo-subscription/internal/services/provisioning"
	"github.com/magabrotheeeer/todo-subscription/internal/storage"
)

// Provisioner создаёт пользователя по запросу.
type Provisioner interface {
	Provision(ctx context.Context, req models.ProvisionRequest, source string) (bool, error)
}

// App читает очередь provisioning_queue.
type App struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	db      *storage.Storage
	cache   *cache.Cache
	queue   string
	workers int
	handler rabbitmq.Handler
	logger  *slog.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "provisioner.New"

	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("%s: rabbitmq url is empty", op)
	}

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQ.Exchange, []rabbitmq.QueueConfig{
		{QueueName: cfg.RabbitMQ.ProvisioningQueue, RoutingKey: cfg.RabbitMQ.ProvisioningKey},
	})
	if err != nil {
		conn.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		redis       *cache.Cache
		invalidator provisioning.UserCacheInvalidator
	)
	if cfg.Redis.Address != "" {
		redis, err = cache.InitServer(ctx, cfg.Redis)
		if err != nil {
			_ = ch.Close()
			_ = conn.Close()
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		invalidator = cache.NewUserCache(redis, cfg.Redis.UserTTL)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	service := provisioning.NewService(db, invalidator, m, logger)

	return &App{
		conn:    conn,
		ch:      ch,
		db:      db,
		cache:   redis,
		queue:   cfg.RabbitMQ.ProvisioningQueue,
		workers: cfg.RabbitMQ.Workers,
		handler: NewHandler(service, logger),
		logger:  logger,
	}, nil
}

// NewHandler возвращает обработчик сообщения {"id", "email"}. Некорректный JSON и
// невалидные данные отклоняются без повтора, сбой хранилища возвращает сообщение в очередь.
func NewHandler(service Provisioner, logger *slog.Logger) rabbitmq.Handler {
	return func(ctx context.Context, body []byte) error {
		const op = "provisioner.Handle"
		log := logger.With(slog.String("op", op))

		var req models.ProvisionRequest
		if err := json.Unmarshal(body, &req); err != nil {
			log.Warn("failed to unmarshal provisioning message", sl.Err(err))
			return fmt.Errorf("%s: %w: %w", op, rabbitmq.ErrPermanent, err)
		}

		if _, err := service.Provision(ctx, req, provisioning.SourceQueue); err != nil {
			if !apperr.IsRetryable(err) {
				return fmt.Errorf("%s: %w: %w", op, rabbitmq.ErrPermanent, err)
			}
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}
}

func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, a.queue, a.workers, a.logger, a.handler)
	if err != nil {
		a.logger.Error("failed to start provisioning consumer", slog.String("queue", a.queue), sl.Err(err))
		a.close()
		return err
	}
	a.logger.Info("provisioning consumer started", slog.String("queue", a.queue))

	<-ctx.Done()
	a.logger.Info("Provisioner shutting down gracefully")
	a.close()
	return nil
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
}
