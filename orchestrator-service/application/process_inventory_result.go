package application

import (
	"context"

	"github.com/draftea/order-saga/orchestrator-service/domain"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/locker"
	"github.com/draftea/order-saga/shared/retry"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// ProcessInventoryResult use case. A reservation completes the saga; a
// failed one compensates the payment.
type ProcessInventoryResult struct {
	updater *sagaUpdater
	logger  zerolog.Logger
}

// NewProcessInventoryResult creates a new ProcessInventoryResult use case
func NewProcessInventoryResult(
	sagaRepository domain.SagaRepository,
	lock locker.Locker,
	notifier OutboxNotifier,
	retryConfig retry.Config,
	logger zerolog.Logger,
) *ProcessInventoryResult {
	return &ProcessInventoryResult{
		updater: newSagaUpdater(sagaRepository, lock, notifier, retryConfig, logger),
		logger:  logger,
	}
}

// Execute applies an inventory result to its saga
func (uc *ProcessInventoryResult) Execute(ctx context.Context, result *events.InventoryResult) (domain.ResultOutcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "ProcessInventoryResult")
	defer span.End()

	orderID, err := parseOrderID(result.OrderID)
	if err != nil {
		return "", err
	}
	span.SetAttributes(attribute.String("order_id", orderID.String()))

	outcome, err := uc.updater.update(ctx, orderID, func(saga *domain.OrderSaga) (domain.ResultOutcome, error) {
		return saga.RecordInventoryResult(*result)
	})
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	if outcome == domain.OutcomeDuplicate {
		uc.logger.Info().Str("order_id", orderID.String()).Bool("success", result.Success).Msg("duplicate inventory result ignored")
	}

	return outcome, nil
}
