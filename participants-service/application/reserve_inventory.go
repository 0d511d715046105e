package application

import (
	"context"
	"time"

	"github.com/draftea/order-saga/participants-service/domain"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
	"github.com/draftea/order-saga/shared/retry"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// ReserveInventory use case. Reserves stock and replies on
// inventory-reserved.
type ReserveInventory struct {
	decider   domain.Decider
	publisher events.Publisher
	latency   time.Duration
	retry     retry.Config
	logger    zerolog.Logger
}

// NewReserveInventory creates a new ReserveInventory use case
func NewReserveInventory(
	decider domain.Decider,
	publisher events.Publisher,
	latency time.Duration,
	retryConfig retry.Config,
	logger zerolog.Logger,
) *ReserveInventory {
	return &ReserveInventory{
		decider:   decider,
		publisher: publisher,
		latency:   latency,
		retry:     retryConfig,
		logger:    logger,
	}
}

// Execute executes the reserve inventory use case
func (uc *ReserveInventory) Execute(ctx context.Context, cmd *events.InventoryCommand) (*events.InventoryResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ReserveInventory")
	defer span.End()

	if cmd.OrderID == "" {
		return nil, errors.Wrap(domain.ErrInvalidCommand, "orderId is required")
	}
	span.SetAttributes(attribute.String("order_id", cmd.OrderID))

	uc.logger.Info().
		Str("order_id", cmd.OrderID).
		Str("product_id", cmd.ProductID).
		Int("quantity", cmd.Quantity).
		Msg("reserving inventory")

	if err := simulateWork(ctx, uc.latency); err != nil {
		return nil, err
	}

	result := &events.InventoryResult{
		OrderID: cmd.OrderID,
		Success: false,
		Message: domain.MessageInsufficientStock,
	}
	if uc.decider.Decide(ctx, cmd.OrderID) {
		result.ReservationID = models.GenerateUUID().String()
		result.Success = true
		result.Message = domain.MessageInventoryReserved
	}

	if err := publishResult(ctx, uc.publisher, uc.retry, cmd.OrderID, events.TopicInventoryReserved, result); err != nil {
		span.RecordError(err)
		return nil, err
	}

	uc.logger.Info().
		Str("order_id", cmd.OrderID).
		Bool("success", result.Success).
		Str("reservation_id", result.ReservationID).
		Msg("inventory result published")

	return result, nil
}
