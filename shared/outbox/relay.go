package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/retry"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// Entry is an outbound message written in the same transaction as the
// state change that produced it.
type Entry struct {
	ID        int64
	Event     *events.Event
	Attempts  int
	LastError string
	CreatedAt time.Time
}

// Store reads and acknowledges outbox entries. Pending must return entries
// in insertion order and skip entries marked dead.
type Store interface {
	Pending(ctx context.Context, limit int) ([]*Entry, error)
	MarkPublished(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	MarkDead(ctx context.Context, id int64, reason string) error
}

// Config of the relay. An entry that fails MaxAttempts flushes in a row is
// marked dead and reported on the dead-letter channel.
type Config struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	Retry        retry.Config  `mapstructure:"retry"`
}

func DefaultConfig() Config {
	return Config{
		PollInterval: 500 * time.Millisecond,
		BatchSize:    100,
		MaxAttempts:  10,
		Retry:        retry.DefaultConfig(),
	}
}

// Relay moves outbox entries onto the message bus
type Relay struct {
	store     Store
	publisher events.Publisher
	config    Config
	logger    zerolog.Logger

	flushMu sync.Mutex
	wake    chan struct{}
}

func NewRelay(store Store, publisher events.Publisher, config Config, logger zerolog.Logger) *Relay {
	defaults := DefaultConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	return &Relay{
		store:     store,
		publisher: publisher,
		config:    config,
		logger:    logger.With().Str("component", "outbox-relay").Logger(),
		wake:      make(chan struct{}, 1),
	}
}

// Notify wakes the relay without waiting for the next poll
func (r *Relay) Notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run polls until ctx is cancelled
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	r.logger.Info().Dur("poll_interval", r.config.PollInterval).Msg("outbox relay started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("outbox relay stopped")
			return
		case <-ticker.C:
		case <-r.wake:
		}

		if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error().Err(err).Msg("outbox flush failed")
		}
	}
}

// Flush makes one pass over pending entries and returns how many were
// published. Once an entry fails, later entries with the same key are held
// back so per-key order is kept.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	entries, err := r.store.Pending(ctx, r.config.BatchSize)
	if err != nil {
		return 0, errors.Wrap(err, "failed to load pending outbox entries")
	}

	published := 0
	blocked := make(map[string]bool)
	var firstErr error

	for _, entry := range entries {
		key := entry.Event.Key()
		if blocked[key] {
			continue
		}

		err := retry.Do(ctx, r.config.Retry, func() error {
			return r.publisher.Publish(ctx, entry.Event)
		})
		if err != nil {
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "failed to publish outbox entry %d", entry.ID)
			}

			attempts := entry.Attempts + 1
			if attempts >= r.config.MaxAttempts {
				if deadErr := r.bury(ctx, entry, err); deadErr != nil {
					return published, deadErr
				}
				continue
			}

			blocked[key] = true
			r.logger.Warn().Err(err).
				Int64("entry_id", entry.ID).
				Str("order_id", key).
				Str("topic", entry.Event.Topic.String()).
				Int("attempts", attempts).
				Msg("outbox publish failed")

			if markErr := r.store.MarkFailed(ctx, entry.ID, err.Error()); markErr != nil {
				return published, errors.Wrap(markErr, "failed to record outbox failure")
			}
			continue
		}

		if err := r.store.MarkPublished(ctx, entry.ID); err != nil {
			// the entry will be published again; consumers are idempotent
			return published, errors.Wrap(err, "failed to mark outbox entry published")
		}

		published++
		telemetry.RecordCounter(ctx, "outbox_published_total", "Outbox entries published", 1,
			attribute.String("topic", entry.Event.Topic.String()),
		)
		r.logger.Debug().
			Int64("entry_id", entry.ID).
			Str("order_id", key).
			Str("topic", entry.Event.Topic.String()).
			Msg("outbox entry published")
	}

	return published, firstErr
}

// bury gives up on entry. The dead letter is best effort; the entry is
// marked dead either way so it stops holding back the batch.
func (r *Relay) bury(ctx context.Context, entry *Entry, cause error) error {
	logger := r.logger.With().
		Int64("entry_id", entry.ID).
		Str("order_id", entry.Event.Key()).
		Str("topic", entry.Event.Topic.String()).
		Int("attempts", entry.Attempts+1).
		Logger()

	if entry.Event.Topic != events.TopicSagaDeadLetter {
		payload, err := entry.Event.MarshalPayload()
		if err != nil {
			payload = nil
		}
		letter := events.NewEvent(entry.Event.AggregateID, events.TopicSagaDeadLetter, events.DeadLetter{
			Channel: entry.Event.Topic.String(),
			Key:     entry.Event.Key(),
			EventID: entry.Event.ID.String(),
			Reason:  cause.Error(),
			Payload: payload,
		}).WithCorrelationID(entry.Event.CorrelationID)

		if err := r.publisher.Publish(ctx, letter); err != nil {
			logger.Error().Err(err).Msg("failed to publish outbox dead letter")
		}
	}

	if err := r.store.MarkDead(ctx, entry.ID, cause.Error()); err != nil {
		return errors.Wrap(err, "failed to mark outbox entry dead")
	}

	telemetry.RecordCounter(ctx, "outbox_dead_total", "Outbox entries given up on", 1,
		attribute.String("topic", entry.Event.Topic.String()),
	)
	logger.Error().Err(cause).Msg("outbox entry marked dead")
	return nil
}

// Drain flushes until nothing is left to publish or maxPasses is reached
func (r *Relay) Drain(ctx context.Context, maxPasses int) (int, error) {
	total := 0
	for i := 0; i < maxPasses; i++ {
		n, err := r.Flush(ctx)
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
	return total, nil
}
