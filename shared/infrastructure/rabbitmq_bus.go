package infrastructure

import (
	"context"
	"sync"
	"time"

	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/retry"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

var _ events.Bus = (*RabbitMQBus)(nil)

const (
	rabbitExchangeType = "topic"
	rabbitKeyHeader    = "x-order-id"
)

// RabbitMQConfig configures the RabbitMQ transport
type RabbitMQConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
	Prefetch int    `mapstructure:"prefetch"`
}

// RabbitMQBus publishes every channel to one topic exchange using the
// channel name as routing key. Each (group, channel) pair owns a durable
// queue named group+"."+channel. Deliveries are acknowledged once the handler
// succeeds and requeued when it fails.
type RabbitMQBus struct {
	config RabbitMQConfig
	conn   *amqp.Connection
	logger zerolog.Logger

	pubMu sync.Mutex
	pubCh *amqp.Channel

	mu        sync.Mutex
	consumers []*amqp.Channel
	wg        sync.WaitGroup
}

// NewRabbitMQBus dials the broker, retrying while it starts up, and declares
// the exchange
func NewRabbitMQBus(ctx context.Context, cfg RabbitMQConfig, logger zerolog.Logger) (*RabbitMQBus, error) {
	if cfg.Exchange == "" {
		cfg.Exchange = "saga"
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 16
	}
	logger = logger.With().Str("transport", "rabbitmq").Logger()

	dialRetry := retry.Config{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxTries:        5,
		MaxElapsedTime:  15 * time.Second,
	}

	conn, err := retry.Value(ctx, dialRetry, func() (*amqp.Connection, error) {
		conn, err := amqp.Dial(cfg.URL)
		if err != nil {
			logger.Warn().Err(err).Msg("rabbitmq not reachable yet")
		}
		return conn, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not connect to RabbitMQ")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "could not open channel")
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,       // name
		rabbitExchangeType, // type
		true,               // durable
		false,              // auto-deleted
		false,              // internal
		false,              // no-wait
		nil,                // arguments
	)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "could not declare exchange")
	}

	return &RabbitMQBus{
		config: cfg,
		conn:   conn,
		pubCh:  ch,
		logger: logger,
	}, nil
}

// Publish implements events.Publisher. A channel is not safe for concurrent
// publishing, so publishes are serialized.
func (b *RabbitMQBus) Publish(ctx context.Context, evts ...*events.Event) error {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	for _, event := range evts {
		body, err := event.ToJSON()
		if err != nil {
			return errors.Wrap(err, "failed to marshal event")
		}

		err = b.pubCh.PublishWithContext(ctx,
			b.config.Exchange,    // exchange
			event.Topic.String(), // routing key
			false,                // mandatory
			false,                // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    event.ID.String(),
				Timestamp:    event.Timestamp,
				Headers:      amqp.Table{rabbitKeyHeader: event.Key()},
				Body:         body,
			},
		)
		if err != nil {
			return errors.Wrapf(err, "failed to publish to %s", event.Topic)
		}
	}

	return nil
}

// Subscribe declares and binds the group's queue and starts consuming it.
// One consumer goroutine per queue keeps deliveries in queue order.
func (b *RabbitMQBus) Subscribe(ctx context.Context, topic events.Topic, group string, handler events.EventHandler) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return errors.Wrap(err, "could not open channel")
	}

	if err := ch.Qos(b.config.Prefetch, 0, false); err != nil {
		_ = ch.Close()
		return errors.Wrap(err, "could not set prefetch")
	}

	queue := group + "." + topic.String()
	q, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		_ = ch.Close()
		return errors.Wrap(err, "could not declare queue")
	}

	if err := ch.QueueBind(q.Name, topic.String(), b.config.Exchange, false, nil); err != nil {
		_ = ch.Close()
		return errors.Wrap(err, "could not bind queue")
	}

	deliveries, err := ch.Consume(
		q.Name, // queue
		"",     // consumer tag
		false,  // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		_ = ch.Close()
		return errors.Wrap(err, "could not start consume")
	}

	b.mu.Lock()
	b.consumers = append(b.consumers, ch)
	b.mu.Unlock()

	logger := b.logger.With().Str("queue", q.Name).Logger()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				b.deliver(ctx, logger, d, handler)
			}
		}
	}()

	return nil
}

func (b *RabbitMQBus) deliver(ctx context.Context, logger zerolog.Logger, d amqp.Delivery, handler events.EventHandler) {
	event, err := events.FromJSON(d.Body)
	if err != nil {
		logger.Warn().Err(err).Str("message_id", d.MessageId).Msg("dropping undecodable message")
		_ = d.Ack(false)
		return
	}

	if err := handler.Handle(ctx, event); err != nil {
		logger.Warn().Err(err).Str("order_id", event.Key()).Msg("handler failed, requeueing message")
		if nackErr := d.Nack(false, true); nackErr != nil {
			logger.Error().Err(nackErr).Msg("nack failed")
		}
		return
	}

	if err := d.Ack(false); err != nil {
		logger.Error().Err(err).Msg("ack failed")
	}
}

// Close closes every channel and the connection
func (b *RabbitMQBus) Close() error {
	b.mu.Lock()
	for _, ch := range b.consumers {
		_ = ch.Close()
	}
	b.consumers = nil
	b.mu.Unlock()

	b.wg.Wait()

	if err := b.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return errors.Wrap(err, "failed to close RabbitMQ connection")
	}
	return nil
}
