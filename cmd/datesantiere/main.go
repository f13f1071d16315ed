// Package main DateSantiere API
//
// @title           DateSantiere API
// @version         1.0
// @description     API каталога строительных объектов Румынии: карточки, тарифы, оплата и администрирование
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.email  support@datesantiere.ro

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
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	_ "github.com/magabrotheeeer/datesantiere/docs"
	"github.com/magabrotheeeer/datesantiere/internal/app/datesantiere"
	"github.com/magabrotheeeer/datesantiere/internal/config"
	"github.com/magabrotheeeer/datesantiere/internal/lib/sl"
)

func main() {
	// .env необязателен, переменные окружения могут быть заданы снаружи.
	_ = godotenv.Load()
	cfg := config.MustLoad()
	logger := sl.SetupLogger(cfg.Env)

	logger.Info("starting datesantiere", slog.String("env", cfg.Env))
	logger.Debug("config loaded", slog.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := datesantiere.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("datesantiere stopped gracefully")
}
