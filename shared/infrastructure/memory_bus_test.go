package infrastructure

import (
	"context"
	"testing"

	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/logging"
	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	received []*events.Event
	err      error
}

func (h *recordingHandler) Handle(_ context.Context, event *events.Event) error {
	h.received = append(h.received, event)
	return h.err
}

func TestMemoryBus_DeliversOncePerGroup(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus()

	orchestratorA := &recordingHandler{}
	orchestratorB := &recordingHandler{}
	auditor := &recordingHandler{}
	require.NoError(t, bus.Subscribe(ctx, events.TopicPaymentProcessed, "orchestrator", orchestratorA))
	require.NoError(t, bus.Subscribe(ctx, events.TopicPaymentProcessed, "orchestrator", orchestratorB))
	require.NoError(t, bus.Subscribe(ctx, events.TopicPaymentProcessed, "audit", auditor))

	orderID := models.GenerateUUID()
	first := events.NewEvent(orderID, events.TopicPaymentProcessed, events.PaymentResult{OrderID: orderID.String(), PaymentID: "PAY1", Success: true})
	second := events.NewEvent(orderID, events.TopicPaymentProcessed, events.PaymentResult{OrderID: orderID.String(), PaymentID: "PAY1", Success: true})

	require.NoError(t, bus.Publish(ctx, first, second))

	assert.Len(t, orchestratorA.received, 1)
	assert.Len(t, orchestratorB.received, 1)
	assert.Len(t, auditor.received, 2)
	assert.Equal(t, first.ID, orchestratorA.received[0].ID)
	assert.Equal(t, second.ID, orchestratorB.received[0].ID)
}

func TestMemoryBus_HistoryAndUnsubscribedTopics(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus()

	orderID := models.GenerateUUID()
	require.NoError(t, bus.Publish(ctx,
		events.NewEvent(orderID, events.TopicOrderEvents, events.OrderCreated{OrderID: orderID.String()}),
		events.NewEvent(orderID, events.TopicPaymentEvents, events.PaymentCommand{OrderID: orderID.String()}),
	))

	assert.Len(t, bus.History(), 2)
	require.Len(t, bus.HistoryFor(events.TopicPaymentEvents), 1)
	assert.Empty(t, bus.HistoryFor(events.TopicInventoryEvents))
}

func TestMemoryBus_HandlerErrorReachesPublisher(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus()

	failing := &recordingHandler{err: errors.New("store unavailable")}
	require.NoError(t, bus.Subscribe(ctx, events.TopicInventoryReserved, "orchestrator", failing))

	orderID := models.GenerateUUID()
	err := bus.Publish(ctx, events.NewEvent(orderID, events.TopicInventoryReserved, events.InventoryResult{OrderID: orderID.String()}))
	assert.ErrorContains(t, err, "store unavailable")
}

func TestMemoryBus_Closed(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus()
	require.NoError(t, bus.Close())

	assert.Error(t, bus.Publish(ctx, events.NewEvent(models.GenerateUUID(), events.TopicOrderEvents, nil)))
	assert.Error(t, bus.Subscribe(ctx, events.TopicOrderEvents, "g", &recordingHandler{}))
}

func TestNewBus(t *testing.T) {
	ctx := context.Background()

	bus, err := NewBus(ctx, BusConfig{Driver: BusDriverMemory}, logging.Nop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryBus{}, bus)

	_, err = NewBus(ctx, BusConfig{Driver: "kafka"}, logging.Nop())
	assert.ErrorContains(t, err, "unknown bus driver")
}
