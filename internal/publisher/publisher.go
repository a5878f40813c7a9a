// Package publisher sends domain events to RabbitMQ.  Failures are logged and
// returned so callers can decide to carry on without them.
package publisher

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/loyalty-rewards/internal/logger"
	"github.com/iliyamo/loyalty-rewards/internal/queue"
)

// Publisher dials the broker per message.  Event volume is a handful per
// signup or deletion, so there is no connection pool.
type Publisher struct {
	url  string
	log  logger.Logger
	dial func(url string) (channel, func(), error)
}

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

func New(url string, log logger.Logger) *Publisher {
	return &Publisher{url: url, log: log, dial: dialAMQP}
}

func dialAMQP(url string) (channel, func(), error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return ch, func() { _ = ch.Close(); _ = conn.Close() }, nil
}

// Publish declares queueName (durable) and sends event as a persistent JSON
// message on the default exchange.
func (p *Publisher) Publish(ctx context.Context, queueName string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		p.log.Error().Err(err).Str("queue", queueName).Msg("rabbitmq: marshal event failed")
		return err
	}
	ch, closeFn, err := p.dial(p.url)
	if err != nil {
		p.log.Error().Err(err).Msg("rabbitmq: dial failed")
		return err
	}
	defer closeFn()

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		p.log.Error().Err(err).Str("queue", queueName).Msg("rabbitmq: queue declare failed")
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, msg); err != nil {
		p.log.Error().Err(err).Str("queue", queueName).Msg("rabbitmq: publish failed")
		return err
	}
	return nil
}

// OTPRequested publishes an otp.requested event.
func (p *Publisher) OTPRequested(ctx context.Context, ev queue.OTPRequestedEvent) error {
	return p.Publish(ctx, queue.OTPRequestedQueue, ev)
}

// AccountDeleted publishes an account.deleted event.
func (p *Publisher) AccountDeleted(ctx context.Context, ev queue.AccountDeletedEvent) error {
	return p.Publish(ctx, queue.AccountDeletedQueue, ev)
}
