// Package main Todo Subscription API
//
// @title           Todo Subscription API
// @version         1.0
// @description     API задач с бесплатным лимитом и месячной подпиской
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/magabrotheeeer/todo-subscription/internal/app/todoservice"
	"github.com/magabrotheeeer/todo-subscription/internal/config"
	"github.com/magabrotheeeer/todo-subscription/internal/grpc/client"
	"github.com/magabrotheeeer/todo-subscription/internal/grpc/server"
)

func main() {
	cfg := config.MustLoad()
	logger := setupLogger(cfg.Env)

	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		os.Exit(healthcheck(cfg, logger))
	}

	logger.Info("starting todo-service", slog.String("env", cfg.Env))
	logger.Debug("config loaded", slog.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := todoservice.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize app", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("app stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("todo-service stopped gracefully")
}

// healthcheck опрашивает gRPC health запущенного сервиса. Используется в HEALTHCHECK контейнера.
func healthcheck(cfg *config.Config, logger *slog.Logger) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	hc, err := client.NewHealthClient(cfg.GRPCServer.Address)
	if err != nil {
		logger.Error("failed to create health client", slog.Any("err", err))
		return 1
	}
	defer hc.Close()

	ok, err := hc.Serving(ctx, server.ServiceName)
	if err != nil {
		logger.Error("health check failed", slog.Any("err", err))
		return 1
	}
	if !ok {
		logger.Warn("service is not serving")
		return 1
	}
	return 0
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case config.EnvLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case config.EnvDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}
