// Command script-runner выполняет служебные скрипты, поставленные в очередь администратором.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/magabrotheeeer/datesantiere/internal/app/scriptrunner"
	"github.com/magabrotheeeer/datesantiere/internal/config"
	"github.com/magabrotheeeer/datesantiere/internal/lib/sl"
)

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()
	logger := sl.SetupLogger(cfg.Env)

	logger.Info("starting script-runner", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := scriptrunner.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize script-runner", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("script-runner stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("script-runner stopped gracefully")
}
