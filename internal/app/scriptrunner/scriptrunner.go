// Package scriptrunner собирает исполнитель служебных скриптов из очереди.
package scriptrunner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/datesantiere/internal/config"
	"github.com/magabrotheeeer/datesantiere/internal/lib/sl"
	"github.com/magabrotheeeer/datesantiere/internal/metrics"
	"github.com/magabrotheeeer/datesantiere/internal/rabbitmq"
	"github.com/magabrotheeeer/datesantiere/internal/services/scripts"
	"github.com/magabrotheeeer/datesantiere/internal/storage"
)

// App приложение исполнителя скриптов.
type App struct {
	executor       *scripts.Executor
	db             *storage.Storage
	conn           *amqp.Connection
	ch             *amqp.Channel
	registry       *prometheus.Registry
	metricsAddress string
	logger         *slog.Logger
}

// New подключается к базе и брокеру.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQ, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.ScriptQueues())
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	reg := prometheus.NewRegistry()
	executor := scripts.NewExecutor(cfg.ScriptsDir, cfg.ScriptTimeout, db, logger, metrics.New(reg))

	return &App{
		executor:       executor,
		db:             db,
		conn:           conn,
		ch:             ch,
		registry:       reg,
		metricsAddress: cfg.MetricsAddress,
		logger:         logger,
	}, nil
}

// Run обрабатывает задания до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	handle := func(body []byte) error {
		return a.executor.HandleJob(ctx, body)
	}
	if err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.QueueScriptRun, a.logger, handle); err != nil {
		a.logger.Error("failed to start consumer", slog.String("queue", rabbitmq.QueueScriptRun), sl.Err(err))
		a.close()
		return err
	}

	err := metrics.Serve(ctx, a.metricsAddress, a.registry, a.logger)

	a.logger.Info("script runner shutting down gracefully")
	a.close()
	return err
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
}
