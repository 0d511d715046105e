package application

import (
	"context"
	"time"

	"github.com/draftea/order-saga/participants-service/domain"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// RefundPayment use case. Compensations send no reply.
type RefundPayment struct {
	latency time.Duration
	logger  zerolog.Logger
}

// NewRefundPayment creates a new RefundPayment use case
func NewRefundPayment(latency time.Duration, logger zerolog.Logger) *RefundPayment {
	return &RefundPayment{latency: latency, logger: logger}
}

// Execute executes the refund payment use case
func (uc *RefundPayment) Execute(ctx context.Context, cmd *events.CompensatePayment) error {
	ctx, span := telemetry.StartSpan(ctx, "RefundPayment")
	defer span.End()

	if cmd.OrderID == "" || cmd.PaymentID == "" {
		return errors.Wrap(domain.ErrInvalidCommand, "orderId and paymentId are required")
	}
	span.SetAttributes(attribute.String("order_id", cmd.OrderID))

	uc.logger.Warn().Str("order_id", cmd.OrderID).Str("payment_id", cmd.PaymentID).Msg("compensating payment")

	if err := simulateWork(ctx, uc.latency); err != nil {
		return err
	}

	telemetry.RecordCounter(ctx, "participant_compensations_total", "Compensations applied by participants", 1,
		attribute.String("kind", "payment"),
	)
	uc.logger.Info().Str("order_id", cmd.OrderID).Str("payment_id", cmd.PaymentID).Msg("payment refunded")

	return nil
}

// ReleaseInventory use case
type ReleaseInventory struct {
	latency time.Duration
	logger  zerolog.Logger
}

// NewReleaseInventory creates a new ReleaseInventory use case
func NewReleaseInventory(latency time.Duration, logger zerolog.Logger) *ReleaseInventory {
	return &ReleaseInventory{latency: latency, logger: logger}
}

// Execute executes the release inventory use case
func (uc *ReleaseInventory) Execute(ctx context.Context, cmd *events.CompensateInventory) error {
	ctx, span := telemetry.StartSpan(ctx, "ReleaseInventory")
	defer span.End()

	if cmd.OrderID == "" || cmd.ReservationID == "" {
		return errors.Wrap(domain.ErrInvalidCommand, "orderId and reservationId are required")
	}
	span.SetAttributes(attribute.String("order_id", cmd.OrderID))

	uc.logger.Warn().Str("order_id", cmd.OrderID).Str("reservation_id", cmd.ReservationID).Msg("compensating inventory")

	if err := simulateWork(ctx, uc.latency); err != nil {
		return err
	}

	telemetry.RecordCounter(ctx, "participant_compensations_total", "Compensations applied by participants", 1,
		attribute.String("kind", "inventory"),
	)
	uc.logger.Info().Str("order_id", cmd.OrderID).Str("reservation_id", cmd.ReservationID).Msg("inventory released")

	return nil
}
