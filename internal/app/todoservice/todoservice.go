package todoservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/todo-subscription/internal/cache"
	"github.com/magabrotheeeer/todo-subscription/internal/config"
	"github.com/magabrotheeeer/todo-subscription/internal/events"
	"github.com/magabrotheeeer/todo-subscription/internal/grpc/server"
	"github.com/magabrotheeeer/todo-subscription/internal/http/middlewarectx"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/clock"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/jwt"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/signature"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/sl"
	"github.com/magabrotheeeer/todo-subscription/internal/metrics"
	"github.com/magabrotheeeer/todo-subscription/internal/migrations"
	"github.com/magabrotheeeer/todo-subscription/internal/services/provisioning"
	"github.com/magabrotheeeer/todo-subscription/internal/services/quota"
	"github.com/magabrotheeeer/todo-subscription/internal/services/subscription"
	"github.com/magabrotheeeer/todo-subscription/internal/services/todo"
	"github.com/magabrotheeeer/todo-subscription/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// App — HTTP API и gRPC-сервер проверки здоровья.
type App struct {
	server   *http.Server
	health   *server.HealthServer
	grpcAddr string
	logger   *slog.Logger
	db       *storage.Storage
	cache    *cache.Cache
	amqpConn *amqp.Connection
	amqpCh   *amqp.Channel
	limiters *middlewarectx.Limiters
	limits   config.RateLimit
}

// New подключает хранилище, применяет миграции и собирает сервисы.
// Redis и RabbitMQ необязательны: пустой адрес отключает кеш и публикацию событий.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "todoservice.New"

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	app := &App{
		grpcAddr: cfg.GRPCServer.Address,
		logger:   logger,
		db:       db,
	}

	var (
		userCache   subscription.UserCache
		invalidator provisioning.UserCacheInvalidator
	)
	if cfg.Redis.Address != "" {
		app.cache, err = cache.InitServer(ctx, cfg.Redis)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users := cache.NewUserCache(app.cache, cfg.Redis.UserTTL)
		userCache, invalidator = users, users
	} else {
		logger.Info("redis address is empty, user cache disabled")
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.RabbitMQ.URL != "" {
		app.amqpConn, err = rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.amqpCh, err = rabbitmq.SetupChannel(app.amqpConn, cfg.RabbitMQ.Exchange, nil)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		publisher = events.NewAMQPPublisher(app.amqpCh, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.EventsRoutingKey)
	} else {
		logger.Info("rabbitmq url is empty, subscription events disabled")
	}

	verifier, err := signature.NewVerifier(cfg.Webhook.Secret, cfg.Webhook.Tolerance)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)
	clk := clock.Real{}

	subscriptions := subscription.NewManager(db, userCache, publisher, clk, m, logger)
	todos := todo.NewService(db, subscriptions, todo.Options{
		Policy: quota.New(cfg.Quota.FreeLimit),
		Atomic: cfg.Quota.Enforcement == config.QuotaAtomic,
	}, clk, m, logger)

	limiters := middlewarectx.NewLimiters(cfg.RateLimit.RPS, cfg.RateLimit.Burst, clk)
	app.limiters, app.limits = limiters, cfg.RateLimit

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Subscriptions:  subscriptions,
		Todos:          todos,
		Provisioning:   provisioning.NewService(db, invalidator, m, logger),
		Tokens:         jwt.NewJWTMaker(cfg.Auth.JWTSecretKey, cfg.Auth.TokenTTL, cfg.Auth.Issuer),
		Verifier:       verifier,
		Limiters:       limiters,
		DB:             db,
		Metrics:        m,
		Registry:       registry,
		Clock:          clk,
		RequestTimeout: cfg.HTTPServer.Timeout,
	})

	app.server = &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}
	app.health = server.NewHealthServer(db, cfg.GRPCServer.HealthInterval, logger)

	return app, nil
}

// Run запускает серверы и блокирует до отмены ctx или ошибки одного из них.
func (a *App) Run(ctx context.Context) error {
	const op = "todoservice.Run"

	lis, err := net.Listen("tcp", a.grpcAddr)
	if err != nil {
		a.close()
		return fmt.Errorf("%s: %w", op, err)
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.health.Watch(watchCtx)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.limiters.RunSweeper(watchCtx, a.limits.SweepInterval, a.limits.IdleTTL, a.logger)
	}()

	errCh := make(chan error, 2)
	go func() {
		a.logger.Info("gRPC health server starting on", slog.String("address", a.grpcAddr))
		if err := a.health.Serve(lis); err != nil {
			errCh <- fmt.Errorf("%s: grpc: %w", op, err)
		}
	}()
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- fmt.Errorf("%s: http: %w", op, err)
		}
	}()

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
	}

	timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.logger.Info("shutting down HTTP server gracefully")
	if err := a.server.Shutdown(timeoutCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("%s: %w", op, err)
	}
	a.health.Stop()
	stopWatch()
	wg.Wait()
	a.close()

	return runErr
}

func (a *App) close() {
	if a.amqpCh != nil {
		if err := a.amqpCh.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.amqpConn != nil {
		if err := a.amqpConn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
