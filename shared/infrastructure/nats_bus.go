package infrastructure

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/draftea/order-saga/shared/events"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var _ events.Bus = (*NATSBus)(nil)

const natsKeyHeader = "Saga-Key"

// NATSConfig configures the JetStream transport
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Stream        string        `mapstructure:"stream"`
	SubjectPrefix string        `mapstructure:"subject_prefix"`
	AckWait       time.Duration `mapstructure:"ack_wait"`
}

// NATSBus publishes each channel on subject SubjectPrefix+channel of one
// stream. Consumer groups are durable queue subscriptions, acknowledged
// manually once the handler succeeds; a failed message is nak'ed and
// redelivered.
type NATSBus struct {
	config NATSConfig
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger zerolog.Logger

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewNATSBus connects to NATS and ensures the stream exists
func NewNATSBus(_ context.Context, cfg NATSConfig, logger zerolog.Logger) (*NATSBus, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Stream == "" {
		cfg.Stream = "SAGA"
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "saga."
	}
	if cfg.AckWait <= 0 {
		cfg.AckWait = 30 * time.Second
	}

	conn, err := nats.Connect(cfg.URL, nats.Name("order-saga"))
	if err != nil {
		return nil, errors.Wrap(err, "could not connect to NATS")
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "could not open JetStream context")
	}

	bus := &NATSBus{
		config: cfg,
		conn:   conn,
		js:     js,
		logger: logger.With().Str("transport", "nats").Logger(),
	}

	if err := bus.ensureStream(); err != nil {
		conn.Close()
		return nil, err
	}

	return bus, nil
}

func (b *NATSBus) ensureStream() error {
	_, err := b.js.StreamInfo(b.config.Stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) && !strings.Contains(err.Error(), "stream not found") {
		return errors.Wrap(err, "failed to look up stream")
	}

	_, err = b.js.AddStream(&nats.StreamConfig{
		Name:      b.config.Stream,
		Subjects:  []string{b.config.SubjectPrefix + ">"},
		Retention: nats.LimitsPolicy,
		Storage:   nats.FileStorage,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create stream")
	}
	return nil
}

// Publish implements events.Publisher. The event id is used as the
// JetStream message id, so republishing the same event is deduplicated.
func (b *NATSBus) Publish(ctx context.Context, evts ...*events.Event) error {
	for _, event := range evts {
		body, err := event.ToJSON()
		if err != nil {
			return errors.Wrap(err, "failed to marshal event")
		}

		msg := nats.NewMsg(b.subject(event.Topic))
		msg.Data = body
		msg.Header.Set(nats.MsgIdHdr, event.ID.String())
		msg.Header.Set(natsKeyHeader, event.Key())

		if _, err := b.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
			return errors.Wrapf(err, "failed to publish to %s", event.Topic)
		}
	}
	return nil
}

// Subscribe creates a durable queue subscription named group-channel.
// MaxAckPending of one keeps messages of a group in stream order.
func (b *NATSBus) Subscribe(ctx context.Context, topic events.Topic, group string, handler events.EventHandler) error {
	durable := group + "-" + topic.String()
	logger := b.logger.With().Str("topic", topic.String()).Str("group", group).Logger()

	sub, err := b.js.QueueSubscribe(b.subject(topic), durable, func(msg *nats.Msg) {
		b.deliver(ctx, logger, msg, handler)
	},
		nats.ManualAck(),
		nats.Durable(durable),
		nats.AckWait(b.config.AckWait),
		nats.MaxAckPending(1),
		nats.DeliverAll(),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to subscribe to %s", topic)
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return nil
}

func (b *NATSBus) deliver(ctx context.Context, logger zerolog.Logger, msg *nats.Msg, handler events.EventHandler) {
	if ctx.Err() != nil {
		return
	}

	event, err := events.FromJSON(msg.Data)
	if err != nil {
		logger.Warn().Err(err).Msg("dropping undecodable message")
		_ = msg.Term()
		return
	}

	if err := handler.Handle(ctx, event); err != nil {
		logger.Warn().Err(err).Str("order_id", event.Key()).Msg("handler failed, message will be redelivered")
		_ = msg.NakWithDelay(time.Second)
		return
	}

	if err := msg.Ack(); err != nil {
		logger.Error().Err(err).Msg("ack failed")
	}
}

func (b *NATSBus) subject(topic events.Topic) string {
	return b.config.SubjectPrefix + topic.String()
}

// Close drains every subscription and closes the connection
func (b *NATSBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		_ = sub.Drain()
	}
	b.subs = nil

	if err := b.conn.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		b.conn.Close()
		return errors.Wrap(err, "failed to drain NATS connection")
	}
	return nil
}
