package handlers

import (
	"context"
	"testing"

	"github.com/draftea/order-saga/participants-service/application"
	"github.com/draftea/order-saga/participants-service/domain"
	"github.com/draftea/order-saga/shared/events"
	sharedinfra "github.com/draftea/order-saga/shared/infrastructure"
	"github.com/draftea/order-saga/shared/logging"
	"github.com/draftea/order-saga/shared/models"
	"github.com/draftea/order-saga/shared/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandlers(bus events.Publisher, payments, inventory domain.Decider) *ParticipantEventHandlers {
	logger := logging.Nop()
	return NewParticipantEventHandlers(
		application.NewProcessPayment(payments, bus, 0, retry.NoRetry(), logger),
		application.NewReserveInventory(inventory, bus, 0, retry.NoRetry(), logger),
		application.NewRefundPayment(0, logger),
		application.NewReleaseInventory(0, logger),
		logger,
	)
}

func TestParticipantEventHandlers_RepliesOnResultChannels(t *testing.T) {
	ctx := context.Background()
	bus := sharedinfra.NewMemoryBus()
	handlers := newHandlers(bus, domain.FixedDecider(true), domain.FixedDecider(false))
	require.NoError(t, handlers.Subscribe(ctx, bus))

	orderID := models.GenerateUUID()

	require.NoError(t, bus.Publish(ctx,
		events.NewEvent(orderID, events.TopicPaymentEvents, events.PaymentCommand{OrderID: orderID.String(), CustomerID: "C1", Amount: 20}),
		events.NewEvent(orderID, events.TopicInventoryEvents, events.InventoryCommand{OrderID: orderID.String(), ProductID: "P1", Quantity: 2}),
	))

	payments := bus.HistoryFor(events.TopicPaymentProcessed)
	require.Len(t, payments, 1)
	var payment events.PaymentResult
	require.NoError(t, payments[0].UnmarshalPayload(&payment))
	assert.True(t, payment.Success)
	assert.Equal(t, orderID.String(), payment.OrderID)
	assert.Equal(t, orderID.String(), payments[0].Key())

	reservations := bus.HistoryFor(events.TopicInventoryReserved)
	require.Len(t, reservations, 1)
	var reservation events.InventoryResult
	require.NoError(t, reservations[0].UnmarshalPayload(&reservation))
	assert.False(t, reservation.Success)
	assert.Equal(t, "Insufficient stock", reservation.Message)
}

func TestParticipantEventHandlers_Compensations(t *testing.T) {
	ctx := context.Background()
	bus := sharedinfra.NewMemoryBus()
	handlers := newHandlers(bus, domain.FixedDecider(true), domain.FixedDecider(true))
	require.NoError(t, handlers.Subscribe(ctx, bus))

	orderID := models.GenerateUUID()
	require.NoError(t, bus.Publish(ctx,
		events.NewEvent(orderID, events.TopicCompensatePayment, events.CompensatePayment{OrderID: orderID.String(), PaymentID: "PAY1"}),
		events.NewEvent(orderID, events.TopicCompensateInventory, events.CompensateInventory{OrderID: orderID.String(), ReservationID: "RES1"}),
	))

	assert.Len(t, bus.History(), 2)
}

func TestParticipantEventHandlers_DropsUnparseableCommands(t *testing.T) {
	handlers := newHandlers(sharedinfra.NewMemoryBus(), domain.FixedDecider(true), domain.FixedDecider(true))

	event := events.NewEvent(models.GenerateUUID(), events.TopicPaymentEvents, []byte(`{"orderId":`))
	assert.NoError(t, handlers.Handle(context.Background(), event))

	missing := events.NewEvent(models.GenerateUUID(), events.TopicInventoryEvents, events.InventoryCommand{ProductID: "P1"})
	assert.NoError(t, handlers.Handle(context.Background(), missing))
}
