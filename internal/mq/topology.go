package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	// ExchangeEvents — доменные события (topic): task.assigned,
	// step.completed, process.completed, process.rejected,
	// signature.completed, signature.pending.
	ExchangeEvents Exchange = "processo.events"

	// ExchangeAudit — записи аудита (direct).
	ExchangeAudit Exchange = "processo.audit"
)

// Queues — имена очередей.
const (
	// QueueNotifications — все доменные события для сервиса уведомлений.
	QueueNotifications Queue = "events.notifications"

	// QueueAudit — лента аудита для сервиса отчётности.
	QueueAudit Queue = "audit.records"
)

// Routing keys.
const (
	RoutingKeyTaskAssigned       RoutingKey = "task.assigned"
	RoutingKeyStepCompleted      RoutingKey = "step.completed"
	RoutingKeyProcessCompleted   RoutingKey = "process.completed"
	RoutingKeyProcessRejected    RoutingKey = "process.rejected"
	RoutingKeySignatureCompleted RoutingKey = "signature.completed"
	RoutingKeySignaturePending   RoutingKey = "signature.pending"
	RoutingKeyAudit              RoutingKey = "record"
)

// SetupTopology декларирует exchanges, очереди и привязки.
// Идемпотентна: повторный вызов на живом брокере ничего не меняет.
func SetupTopology(conn *Connection) error {
	return conn.WithChannel(func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		return bindQueues(ch)
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeEvents, "topic"},
		{ExchangeAudit, "direct"},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	queues := []Queue{QueueNotifications, QueueAudit}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q), // name
			true,      // durable
			false,     // delete when unused
			false,     // exclusive
			false,     // no-wait
			nil,       // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey string
		exchange   Exchange
	}{
		// Сервис уведомлений слушает все доменные события.
		{QueueNotifications, "#", ExchangeEvents},
		{QueueAudit, string(RoutingKeyAudit), ExchangeAudit},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),    // queue name
			b.routingKey,       // routing key
			string(b.exchange), // exchange
			false,              // no-wait
			nil,                // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}
