package application

import (
	"context"
	"time"

	"github.com/draftea/order-saga/orchestrator-service/domain"
	"github.com/draftea/order-saga/shared/locker"
	"github.com/draftea/order-saga/shared/models"
	"github.com/draftea/order-saga/shared/retry"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// ReconcileConfig configures the sweep for sagas whose participant never
// answered
type ReconcileConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	StepTimeout time.Duration `mapstructure:"step_timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

func DefaultReconcileConfig() ReconcileConfig {
	return ReconcileConfig{
		Interval:    30 * time.Second,
		StepTimeout: 2 * time.Minute,
		MaxAttempts: 3,
	}
}

// ReconcileSagas use case. Stale sagas get their outstanding command issued
// again until MaxAttempts, then fail or are compensated.
type ReconcileSagas struct {
	sagaRepository domain.SagaRepository
	updater        *sagaUpdater
	config         ReconcileConfig
	logger         zerolog.Logger
}

// NewReconcileSagas creates a new ReconcileSagas use case
func NewReconcileSagas(
	sagaRepository domain.SagaRepository,
	lock locker.Locker,
	notifier OutboxNotifier,
	retryConfig retry.Config,
	config ReconcileConfig,
	logger zerolog.Logger,
) *ReconcileSagas {
	defaults := DefaultReconcileConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.StepTimeout <= 0 {
		config.StepTimeout = defaults.StepTimeout
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}

	logger = logger.With().Str("component", "reconciler").Logger()
	return &ReconcileSagas{
		sagaRepository: sagaRepository,
		updater:        newSagaUpdater(sagaRepository, lock, notifier, retryConfig, logger),
		config:         config,
		logger:         logger,
	}
}

// Execute makes one sweep and returns how many sagas it changed. A failure
// on one saga is logged and does not stop the sweep.
func (uc *ReconcileSagas) Execute(ctx context.Context) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "ReconcileSagas")
	defer span.End()

	cutoff := models.Now().Add(-uc.config.StepTimeout)

	stale, err := uc.sagaRepository.ListStale(ctx, domain.AwaitingParticipant(), cutoff)
	if err != nil {
		span.RecordError(err)
		return 0, errors.Wrap(err, "failed to list stale sagas")
	}

	changed := 0
	for _, candidate := range stale {
		if ctx.Err() != nil {
			return changed, ctx.Err()
		}

		outcome, err := uc.updater.update(ctx, candidate.OrderID, func(saga *domain.OrderSaga) (domain.ResultOutcome, error) {
			// A result may have arrived between listing and locking
			if !isAwaiting(saga.Status) || saga.Timestamps.UpdatedAt.After(cutoff) {
				return domain.OutcomeDuplicate, nil
			}
			if err := saga.HandleStepTimeout(uc.config.MaxAttempts); err != nil {
				return "", err
			}
			return domain.OutcomeApplied, nil
		})
		if err != nil {
			uc.logger.Error().Err(err).Str("order_id", candidate.OrderID.String()).Msg("failed to reconcile saga")
			continue
		}

		if outcome == domain.OutcomeApplied {
			changed++
		}
	}

	span.SetAttributes(attribute.Int("sagas.stale", len(stale)), attribute.Int("sagas.changed", changed))
	if changed > 0 {
		uc.logger.Info().Int("stale", len(stale)).Int("changed", changed).Msg("reconciliation sweep done")
	}

	return changed, nil
}

// Run sweeps every Interval until ctx is cancelled
func (uc *ReconcileSagas) Run(ctx context.Context) {
	ticker := time.NewTicker(uc.config.Interval)
	defer ticker.Stop()

	uc.logger.Info().
		Dur("interval", uc.config.Interval).
		Dur("step_timeout", uc.config.StepTimeout).
		Int("max_attempts", uc.config.MaxAttempts).
		Msg("reconciler started")

	for {
		select {
		case <-ctx.Done():
			uc.logger.Info().Msg("reconciler stopped")
			return
		case <-ticker.C:
			if _, err := uc.Execute(ctx); err != nil && ctx.Err() == nil {
				uc.logger.Error().Err(err).Msg("reconciliation sweep failed")
			}
		}
	}
}

func isAwaiting(status domain.SagaStatus) bool {
	for _, s := range domain.AwaitingParticipant() {
		if s == status {
			return true
		}
	}
	return false
}
