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

// ProcessPayment use case. Charges the customer and replies on
// payment-processed.
type ProcessPayment struct {
	decider   domain.Decider
	publisher events.Publisher
	latency   time.Duration
	retry     retry.Config
	logger    zerolog.Logger
}

// NewProcessPayment creates a new ProcessPayment use case
func NewProcessPayment(
	decider domain.Decider,
	publisher events.Publisher,
	latency time.Duration,
	retryConfig retry.Config,
	logger zerolog.Logger,
) *ProcessPayment {
	return &ProcessPayment{
		decider:   decider,
		publisher: publisher,
		latency:   latency,
		retry:     retryConfig,
		logger:    logger,
	}
}

// Execute executes the process payment use case
func (uc *ProcessPayment) Execute(ctx context.Context, cmd *events.PaymentCommand) (*events.PaymentResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ProcessPayment")
	defer span.End()

	if cmd.OrderID == "" {
		return nil, errors.Wrap(domain.ErrInvalidCommand, "orderId is required")
	}
	span.SetAttributes(attribute.String("order_id", cmd.OrderID))

	uc.logger.Info().
		Str("order_id", cmd.OrderID).
		Str("customer_id", cmd.CustomerID).
		Float64("amount", cmd.Amount).
		Msg("processing payment")

	if err := simulateWork(ctx, uc.latency); err != nil {
		return nil, err
	}

	result := &events.PaymentResult{
		OrderID: cmd.OrderID,
		Success: false,
		Message: domain.MessageInsufficientFunds,
	}
	if uc.decider.Decide(ctx, cmd.OrderID) {
		result.PaymentID = models.GenerateUUID().String()
		result.Success = true
		result.Message = domain.MessagePaymentSuccessful
	}

	if err := publishResult(ctx, uc.publisher, uc.retry, cmd.OrderID, events.TopicPaymentProcessed, result); err != nil {
		span.RecordError(err)
		return nil, err
	}

	uc.logger.Info().
		Str("order_id", cmd.OrderID).
		Bool("success", result.Success).
		Str("payment_id", result.PaymentID).
		Msg("payment result published")

	return result, nil
}
