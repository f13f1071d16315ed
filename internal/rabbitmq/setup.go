package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// Exchange общий direct-обменник приложения.
const Exchange = "datesantiere"

// Ключи маршрутизации.
const (
	KeyAlarm         = "alarm"
	KeyPasswordReset = "password_reset"
	KeyContactReply  = "contact_reply"
	KeyScriptRun     = "script_run"
)

// Имена очередей.
const (
	QueueAlarm         = "notifications.alarm"
	QueuePasswordReset = "notifications.password_reset"
	QueueContactReply  = "notifications.contact_reply"
	QueueScriptRun     = "scripts.run"
)

// QueueConfig очередь и ключ, которым она привязана к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// NotificationQueues очереди, которые обслуживает отправитель писем.
func NotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueueAlarm, RoutingKey: KeyAlarm},
		{QueueName: QueuePasswordReset, RoutingKey: KeyPasswordReset},
		{QueueName: QueueContactReply, RoutingKey: KeyContactReply},
	}
}

// ScriptQueues очереди исполнителя скриптов.
func ScriptQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueueScriptRun, RoutingKey: KeyScriptRun},
	}
}

// AllQueues все очереди приложения. API объявляет их, чтобы публикации не терялись до старта воркеров.
func AllQueues() []QueueConfig {
	return append(NotificationQueues(), ScriptQueues()...)
}

// SetupChannel открывает канал, объявляет обменник и привязывает очереди.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			q.QueueName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}

		err = ch.QueueBind(
			q.QueueName,
			q.RoutingKey,
			Exchange,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
