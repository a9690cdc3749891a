package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/todo-subscription/internal/app/provisioner"
	"github.com/magabrotheeeer/todo-subscription/internal/config"
)

func main() {
	cfg := config.MustLoad()
	logger := setupLogger(cfg.Env)

	logger.Info("starting provisioner", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := provisioner.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize provisioner app", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("provisioner app stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("provisioner app stopped gracefully")
}

func setupLogger(env string) *slog.Logger {
	if env == config.EnvLocal {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
