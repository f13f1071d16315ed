// Package rabbitmq содержит подключение к RabbitMQ, объявление очередей, публикацию и потребление сообщений.
package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/datesantiere/internal/config"
	"github.com/magabrotheeeer/datesantiere/internal/lib/sl"
)

// Connect подключается к брокеру. Воркеры стартуют раньше брокера в docker-compose,
// поэтому неудачная попытка повторяется до RabbitMQMaxRetries раз с паузой RabbitMQRetryDelay.
func Connect(ctx context.Context, cfg config.RabbitMQ, log *slog.Logger) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	attempts := max(cfg.RabbitMQMaxRetries, 1)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var conn *amqp.Connection
		conn, err = amqp.Dial(cfg.RabbitMQURL)
		if err == nil {
			log.Info("connected to RabbitMQ", slog.Int("attempt", attempt))
			return conn, nil
		}
		log.Warn("RabbitMQ is not reachable",
			slog.Int("attempt", attempt),
			slog.Int("of", attempts),
			sl.Err(err))
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(cfg.RabbitMQRetryDelay):
		}
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}
