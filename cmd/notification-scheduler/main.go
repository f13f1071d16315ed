// Command notification-scheduler публикует напоминания по заметкам в очередь писем.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/magabrotheeeer/datesantiere/internal/app/scheduler"
	"github.com/magabrotheeeer/datesantiere/internal/config"
	"github.com/magabrotheeeer/datesantiere/internal/lib/sl"
)

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()
	logger := sl.SetupLogger(cfg.Env)

	logger.Info("starting notification-scheduler", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := scheduler.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize notification-scheduler", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("notification-scheduler stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("notification-scheduler stopped gracefully")
}
