package handlers

import (
	"context"

	"github.com/draftea/order-saga/participants-service/application"
	"github.com/draftea/order-saga/participants-service/domain"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Subscription groups. Each participant consumes its command and its
// compensation channel.
const (
	PaymentGroup   = "payment-service"
	InventoryGroup = "inventory-service"
)

// ParticipantEventHandlers consumes coordinator commands
type ParticipantEventHandlers struct {
	processPayment   *application.ProcessPayment
	reserveInventory *application.ReserveInventory
	refundPayment    *application.RefundPayment
	releaseInventory *application.ReleaseInventory
	logger           zerolog.Logger
}

// NewParticipantEventHandlers creates new participant event handlers
func NewParticipantEventHandlers(
	processPayment *application.ProcessPayment,
	reserveInventory *application.ReserveInventory,
	refundPayment *application.RefundPayment,
	releaseInventory *application.ReleaseInventory,
	logger zerolog.Logger,
) *ParticipantEventHandlers {
	return &ParticipantEventHandlers{
		processPayment:   processPayment,
		reserveInventory: reserveInventory,
		refundPayment:    refundPayment,
		releaseInventory: releaseInventory,
		logger:           logger,
	}
}

// Subscribe registers every participant channel on subscriber
func (h *ParticipantEventHandlers) Subscribe(ctx context.Context, subscriber events.Subscriber) error {
	subscriptions := []struct {
		topic events.Topic
		group string
	}{
		{events.TopicPaymentEvents, PaymentGroup},
		{events.TopicCompensatePayment, PaymentGroup},
		{events.TopicInventoryEvents, InventoryGroup},
		{events.TopicCompensateInventory, InventoryGroup},
	}

	for _, s := range subscriptions {
		if err := subscriber.Subscribe(ctx, s.topic, s.group, h); err != nil {
			return errors.Wrapf(err, "failed to subscribe to %s", s.topic)
		}
	}
	return nil
}

// Handle implements the events.EventHandler interface. Commands that can
// never be processed are logged and acknowledged.
func (h *ParticipantEventHandlers) Handle(ctx context.Context, event *events.Event) error {
	ctx = telemetry.ExtractEvent(ctx, event)

	var err error
	switch event.Topic {
	case events.TopicPaymentEvents:
		err = h.HandlePaymentCommand(ctx, event)
	case events.TopicInventoryEvents:
		err = h.HandleInventoryCommand(ctx, event)
	case events.TopicCompensatePayment:
		err = h.HandleCompensatePayment(ctx, event)
	case events.TopicCompensateInventory:
		err = h.HandleCompensateInventory(ctx, event)
	default:
		return nil
	}

	if errors.Is(err, domain.ErrInvalidCommand) {
		h.logger.Error().Err(err).
			Str("topic", event.Topic.String()).
			Str("event_id", event.ID.String()).
			Msg("command dropped")
		telemetry.RecordMessageHandled(ctx, event.Topic.String(), "dropped")
		return nil
	}
	if err != nil {
		telemetry.RecordMessageHandled(ctx, event.Topic.String(), "error")
		return err
	}

	telemetry.RecordMessageHandled(ctx, event.Topic.String(), "applied")
	return nil
}

// HandlePaymentCommand handles payment commands
func (h *ParticipantEventHandlers) HandlePaymentCommand(ctx context.Context, event *events.Event) error {
	var cmd events.PaymentCommand
	if err := parseCommand(event, &cmd); err != nil {
		return err
	}

	_, err := h.processPayment.Execute(ctx, &cmd)
	return err
}

// HandleInventoryCommand handles inventory commands
func (h *ParticipantEventHandlers) HandleInventoryCommand(ctx context.Context, event *events.Event) error {
	var cmd events.InventoryCommand
	if err := parseCommand(event, &cmd); err != nil {
		return err
	}

	_, err := h.reserveInventory.Execute(ctx, &cmd)
	return err
}

// HandleCompensatePayment handles refund commands
func (h *ParticipantEventHandlers) HandleCompensatePayment(ctx context.Context, event *events.Event) error {
	var cmd events.CompensatePayment
	if err := parseCommand(event, &cmd); err != nil {
		return err
	}

	return h.refundPayment.Execute(ctx, &cmd)
}

// HandleCompensateInventory handles release commands
func (h *ParticipantEventHandlers) HandleCompensateInventory(ctx context.Context, event *events.Event) error {
	var cmd events.CompensateInventory
	if err := parseCommand(event, &cmd); err != nil {
		return err
	}

	return h.releaseInventory.Execute(ctx, &cmd)
}

func parseCommand(event *events.Event, target interface{}) error {
	if err := event.UnmarshalPayload(target); err != nil {
		return errors.Wrapf(domain.ErrInvalidCommand, "failed to parse %s: %v", event.Topic, err)
	}
	return nil
}
