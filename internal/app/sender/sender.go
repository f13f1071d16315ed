// Package sender собирает отправитель писем: читает очереди уведомлений и отправляет письма по SMTP.
package sender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/datesantiere/internal/config"
	"github.com/magabrotheeeer/datesantiere/internal/lib/sl"
	"github.com/magabrotheeeer/datesantiere/internal/lib/smtp"
	"github.com/magabrotheeeer/datesantiere/internal/metrics"
	"github.com/magabrotheeeer/datesantiere/internal/rabbitmq"
	senderservice "github.com/magabrotheeeer/datesantiere/internal/services/sender"
)

// App приложение отправителя писем.
type App struct {
	conn           *amqp.Connection
	ch             *amqp.Channel
	senderService  *senderservice.Service
	registry       *prometheus.Registry
	metricsAddress string
	logger         *slog.Logger
}

// New подключается к брокеру и готовит SMTP-транспорт.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQ, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	reg := prometheus.NewRegistry()
	transport := smtp.NewTransport(cfg.SMTP, logger)
	senderService := senderservice.New(transport, cfg.PublicURL, logger, metrics.New(reg))

	return &App{
		conn:           conn,
		ch:             ch,
		senderService:  senderService,
		registry:       reg,
		metricsAddress: cfg.MetricsAddress,
		logger:         logger,
	}, nil
}

// Run запускает потребителей очередей и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	handlers := map[string]func([]byte) error{
		rabbitmq.QueueAlarm:         a.senderService.SendAlarm,
		rabbitmq.QueuePasswordReset: a.senderService.SendPasswordReset,
		rabbitmq.QueueContactReply:  a.senderService.SendContactReply,
	}
	for queue, handler := range handlers {
		if err := rabbitmq.ConsumerMessage(ctx, a.ch, queue, a.logger, handler); err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", queue), sl.Err(err))
			a.close()
			return err
		}
	}

	err := metrics.Serve(ctx, a.metricsAddress, a.registry, a.logger)

	a.logger.Info("sender service shutting down gracefully")
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
}
