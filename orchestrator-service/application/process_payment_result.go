package application

import (
	"context"

	"github.com/draftea/order-saga/orchestrator-service/domain"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/locker"
	"github.com/draftea/order-saga/shared/models"
	"github.com/draftea/order-saga/shared/retry"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// ProcessPaymentResult use case. A successful payment moves the saga on to
// inventory; a failed one ends it.
type ProcessPaymentResult struct {
	updater *sagaUpdater
	logger  zerolog.Logger
}

// NewProcessPaymentResult creates a new ProcessPaymentResult use case
func NewProcessPaymentResult(
	sagaRepository domain.SagaRepository,
	lock locker.Locker,
	notifier OutboxNotifier,
	retryConfig retry.Config,
	logger zerolog.Logger,
) *ProcessPaymentResult {
	return &ProcessPaymentResult{
		updater: newSagaUpdater(sagaRepository, lock, notifier, retryConfig, logger),
		logger:  logger,
	}
}

// Execute applies a payment result to its saga
func (uc *ProcessPaymentResult) Execute(ctx context.Context, result *events.PaymentResult) (domain.ResultOutcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "ProcessPaymentResult")
	defer span.End()

	orderID, err := parseOrderID(result.OrderID)
	if err != nil {
		return "", err
	}
	span.SetAttributes(attribute.String("order_id", orderID.String()))

	outcome, err := uc.updater.update(ctx, orderID, func(saga *domain.OrderSaga) (domain.ResultOutcome, error) {
		return saga.RecordPaymentResult(*result)
	})
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	if outcome == domain.OutcomeDuplicate {
		uc.logger.Info().Str("order_id", orderID.String()).Bool("success", result.Success).Msg("duplicate payment result ignored")
	}

	return outcome, nil
}

func parseOrderID(raw string) (models.ID, error) {
	if raw == "" {
		return "", errors.Wrap(domain.ErrInvalidResult, "orderId is required")
	}

	id, err := models.NewID(raw)
	if err != nil {
		return "", errors.Wrapf(domain.ErrInvalidResult, "invalid orderId %q", raw)
	}
	return id, nil
}
