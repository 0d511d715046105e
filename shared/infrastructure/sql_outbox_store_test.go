package infrastructure

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "outbox.db") + "?_time_format=sqlite"
	db, err := OpenDB(context.Background(), DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for _, stmt := range append(OutboxSchema(DriverSQLite), OutboxDeadSchema(DriverSQLite)...) {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return db
}

func insertEvents(t *testing.T, db *sqlx.DB, evts ...*events.Event) {
	t.Helper()
	tx, err := db.Beginx()
	require.NoError(t, err)
	require.NoError(t, InsertOutboxEvents(context.Background(), tx, evts))
	require.NoError(t, tx.Commit())
}

func TestSQLOutboxStore(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	store := NewSQLOutboxStore(db)

	orderID := models.GenerateUUID()
	first := events.NewEvent(orderID, events.TopicOrderEvents, events.OrderCreated{OrderID: orderID.String(), CustomerID: "C1", ProductID: "P1", Quantity: 2, Amount: 20})
	second := events.NewEvent(orderID, events.TopicPaymentEvents, events.PaymentCommand{OrderID: orderID.String(), CustomerID: "C1", Amount: 20}).
		WithCorrelationID(orderID)
	insertEvents(t, db, first, second)

	pending, err := store.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].Event.ID)
	assert.Equal(t, second.ID, pending[1].Event.ID)
	assert.Equal(t, orderID.String(), pending[1].Event.Key())
	assert.Equal(t, orderID, pending[1].Event.CorrelationID)

	var cmd events.PaymentCommand
	require.NoError(t, pending[1].Event.UnmarshalPayload(&cmd))
	assert.Equal(t, 20.0, cmd.Amount)

	require.NoError(t, store.MarkFailed(ctx, pending[0].ID, "broker unavailable"))
	pending, err = store.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, "broker unavailable", pending[0].LastError)

	require.NoError(t, store.MarkPublished(ctx, pending[0].ID))
	count, err := store.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	pending, err = store.Pending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].Event.ID)
}

func TestSQLOutboxStore_MarkDead(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	store := NewSQLOutboxStore(db)

	orderID := models.GenerateUUID()
	stuck := events.NewEvent(orderID, events.TopicCompensateInventory, events.CompensateInventory{OrderID: orderID.String(), ReservationID: "RES1"})
	healthy := events.NewEvent(models.GenerateUUID(), events.TopicPaymentEvents, events.PaymentCommand{CustomerID: "C1", Amount: 5})
	insertEvents(t, db, stuck, healthy)

	pending, err := store.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	require.NoError(t, store.MarkDead(ctx, pending[0].ID, "topic does not exist"))

	pending, err = store.Pending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, healthy.ID, pending[0].Event.ID)

	count, err := store.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var lastError string
	require.NoError(t, db.Get(&lastError, `SELECT last_error FROM saga_outbox WHERE event_id = ?`, stuck.ID.String()))
	assert.Equal(t, "topic does not exist", lastError)
}

func TestIsUniqueViolation(t *testing.T) {
	db := newSQLiteDB(t)
	evt := events.NewEvent(models.GenerateUUID(), events.TopicOrderEvents, events.OrderCreated{})
	insertEvents(t, db, evt)

	tx, err := db.Beginx()
	require.NoError(t, err)
	defer tx.Rollback()

	err = InsertOutboxEvents(context.Background(), tx, []*events.Event{evt})
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsUniqueViolation(nil))
}

func TestOpenDB_UnsupportedDriver(t *testing.T) {
	_, err := OpenDB(context.Background(), "mysql", "")
	assert.Error(t, err)
}
