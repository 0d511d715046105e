package handlers

import (
	"context"

	"github.com/draftea/order-saga/orchestrator-service/application"
	"github.com/draftea/order-saga/orchestrator-service/domain"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ConsumerGroup is the subscription group of the coordinator
const ConsumerGroup = "orchestrator"

// SagaEventHandlers consumes participant results
type SagaEventHandlers struct {
	processPaymentResult   *application.ProcessPaymentResult
	processInventoryResult *application.ProcessInventoryResult
	deadLetters            events.Publisher
	logger                 zerolog.Logger
}

// NewSagaEventHandlers creates new saga event handlers. Results that can
// never be applied are published to the dead-letter channel through
// deadLetters.
func NewSagaEventHandlers(
	processPaymentResult *application.ProcessPaymentResult,
	processInventoryResult *application.ProcessInventoryResult,
	deadLetters events.Publisher,
	logger zerolog.Logger,
) *SagaEventHandlers {
	return &SagaEventHandlers{
		processPaymentResult:   processPaymentResult,
		processInventoryResult: processInventoryResult,
		deadLetters:            deadLetters,
		logger:                 logger,
	}
}

// Topics lists the channels the coordinator consumes
func (h *SagaEventHandlers) Topics() []events.Topic {
	return []events.Topic{events.TopicPaymentProcessed, events.TopicInventoryReserved}
}

// Subscribe registers the handlers on every consumed channel
func (h *SagaEventHandlers) Subscribe(ctx context.Context, subscriber events.Subscriber) error {
	for _, topic := range h.Topics() {
		if err := subscriber.Subscribe(ctx, topic, ConsumerGroup, h); err != nil {
			return errors.Wrapf(err, "failed to subscribe to %s", topic)
		}
	}
	return nil
}

// Handle implements the events.EventHandler interface. A returned error
// leaves the message for redelivery.
func (h *SagaEventHandlers) Handle(ctx context.Context, event *events.Event) error {
	ctx = telemetry.ExtractEvent(ctx, event)

	switch event.Topic {
	case events.TopicPaymentProcessed:
		return h.HandlePaymentResult(ctx, event)
	case events.TopicInventoryReserved:
		return h.HandleInventoryResult(ctx, event)
	default:
		h.logger.Warn().Str("topic", event.Topic.String()).Str("event_id", event.ID.String()).Msg("unexpected topic ignored")
		return nil
	}
}

// HandlePaymentResult handles payment participant replies
func (h *SagaEventHandlers) HandlePaymentResult(ctx context.Context, event *events.Event) error {
	var result events.PaymentResult
	if err := event.UnmarshalPayload(&result); err != nil {
		return h.deadLetter(ctx, event, errors.Wrap(err, "failed to parse payment result"))
	}

	outcome, err := h.processPaymentResult.Execute(ctx, &result)
	return h.finish(ctx, event, outcome, err)
}

// HandleInventoryResult handles inventory participant replies
func (h *SagaEventHandlers) HandleInventoryResult(ctx context.Context, event *events.Event) error {
	var result events.InventoryResult
	if err := event.UnmarshalPayload(&result); err != nil {
		return h.deadLetter(ctx, event, errors.Wrap(err, "failed to parse inventory result"))
	}

	outcome, err := h.processInventoryResult.Execute(ctx, &result)
	return h.finish(ctx, event, outcome, err)
}

func (h *SagaEventHandlers) finish(ctx context.Context, event *events.Event, outcome domain.ResultOutcome, err error) error {
	switch {
	case err == nil:
		telemetry.RecordMessageHandled(ctx, event.Topic.String(), string(outcome))
		return nil
	case errors.Is(err, domain.ErrSagaNotFound), errors.Is(err, domain.ErrInvalidResult):
		return h.deadLetter(ctx, event, err)
	default:
		telemetry.RecordMessageHandled(ctx, event.Topic.String(), "error")
		h.logger.Error().Err(err).
			Str("topic", event.Topic.String()).
			Str("order_id", event.Key()).
			Msg("failed to handle result")
		return err
	}
}

// deadLetter parks a message that can never be applied and acknowledges it
func (h *SagaEventHandlers) deadLetter(ctx context.Context, event *events.Event, cause error) error {
	payload, err := event.MarshalPayload()
	if err != nil {
		payload = nil
	}

	letter := events.NewEvent(event.AggregateID, events.TopicSagaDeadLetter, events.DeadLetter{
		Channel: event.Topic.String(),
		Key:     event.Key(),
		EventID: event.ID.String(),
		Reason:  cause.Error(),
		Payload: payload,
	}).WithCorrelationID(event.CorrelationID)
	telemetry.InjectEvent(ctx, letter)

	if err := h.deadLetters.Publish(ctx, letter); err != nil {
		return errors.Wrap(err, "failed to publish dead letter")
	}

	telemetry.RecordMessageHandled(ctx, event.Topic.String(), "dead_lettered")
	h.logger.Warn().Err(cause).
		Str("topic", event.Topic.String()).
		Str("order_id", event.Key()).
		Str("event_id", event.ID.String()).
		Msg("result dead-lettered")

	return nil
}
