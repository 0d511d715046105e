package application

import (
	"context"

	"github.com/draftea/order-saga/orchestrator-service/domain"
	"github.com/draftea/order-saga/shared/locker"
	"github.com/draftea/order-saga/shared/models"
	"github.com/draftea/order-saga/shared/retry"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// OutboxNotifier is told when new outbound messages were stored
type OutboxNotifier interface {
	Notify()
}

// mutation changes a loaded saga and reports what it did
type mutation func(saga *domain.OrderSaga) (domain.ResultOutcome, error)

// sagaUpdater runs read-modify-write cycles on one saga at a time. The
// orderId lock serializes handlers; the repository version check catches
// writers holding no lock.
type sagaUpdater struct {
	repository domain.SagaRepository
	locker     locker.Locker
	notifier   OutboxNotifier
	retry      retry.Config
	logger     zerolog.Logger
}

func newSagaUpdater(
	repository domain.SagaRepository,
	lock locker.Locker,
	notifier OutboxNotifier,
	retryConfig retry.Config,
	logger zerolog.Logger,
) *sagaUpdater {
	return &sagaUpdater{
		repository: repository,
		locker:     lock,
		notifier:   notifier,
		retry:      retryConfig,
		logger:     logger,
	}
}

func (u *sagaUpdater) update(ctx context.Context, orderID models.ID, fn mutation) (domain.ResultOutcome, error) {
	unlock, err := u.locker.Lock(ctx, orderID.String())
	if err != nil {
		return "", errors.Wrap(err, "failed to lock saga")
	}
	defer unlock()

	saga, err := retry.Value(ctx, u.retry, func() (*domain.OrderSaga, error) {
		return u.repository.FindByOrderID(ctx, orderID)
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to find saga")
	}
	if saga == nil {
		return "", errors.Wrapf(domain.ErrSagaNotFound, "order %s", orderID)
	}

	before := saga.Status

	outcome, err := fn(saga)
	if err != nil {
		return "", err
	}

	for _, event := range saga.Events() {
		telemetry.InjectEvent(ctx, event)
	}

	switch outcome {
	case domain.OutcomeApplied:
		err = u.persist(ctx, func() error { return u.repository.Save(ctx, saga) })
	case domain.OutcomeOrphaned:
		err = u.persist(ctx, func() error { return u.repository.Enqueue(ctx, saga.OrderID, saga.Events()...) })
	default:
		return outcome, nil
	}
	if err != nil {
		return "", err
	}

	u.notifier.Notify()

	logger := u.logger.With().
		Str("order_id", saga.OrderID.String()).
		Str("outcome", string(outcome)).
		Logger()

	if outcome == domain.OutcomeOrphaned {
		logger.Warn().Str("status", saga.Status.String()).Msg("late result compensated")
		return outcome, nil
	}

	for _, change := range saga.Changes() {
		logger.Info().
			Str("from", change.From.String()).
			Str("status", change.To.String()).
			Str("step", change.Step.String()).
			Str("trigger", string(change.Trigger)).
			Msg("saga transitioned")
	}

	if !before.IsTerminal() && saga.Status.IsTerminal() {
		telemetry.RecordSagaFinished(ctx, saga.Status.String(), saga.Timestamps.Age())
	}

	return outcome, nil
}

// persist retries transient store failures. A version conflict is returned
// at once so the message is redelivered and replayed on fresh state.
func (u *sagaUpdater) persist(ctx context.Context, write func() error) error {
	err := retry.Do(ctx, u.retry, func() error {
		err := write()
		if errors.Is(err, domain.ErrConcurrentUpdate) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		return errors.Wrap(err, "failed to save saga")
	}
	return nil
}
