package domain

import (
	"context"
	"time"

	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
)

// SagaRepository persists sagas together with their outbound messages.
// Every write stores the saga row and the saga's uncommitted events in one
// transaction, so a state change and its messages are never split.
type SagaRepository interface {
	// Create inserts a new saga. Returns ErrDuplicateOrder if the orderId exists.
	Create(ctx context.Context, saga *OrderSaga) error

	// Save updates an existing saga if its stored version still matches.
	// Returns ErrConcurrentUpdate otherwise.
	Save(ctx context.Context, saga *OrderSaga) error

	// Enqueue stores outbound messages for an order without touching its row.
	// Events whose id is already stored are skipped.
	Enqueue(ctx context.Context, orderID models.ID, evts ...*events.Event) error

	// FindByOrderID returns nil and no error when the saga does not exist
	FindByOrderID(ctx context.Context, orderID models.ID) (*OrderSaga, error)

	// List returns every saga, oldest first
	List(ctx context.Context) ([]*OrderSaga, error)

	// ListStale returns sagas in one of statuses not updated since olderThan
	ListStale(ctx context.Context, statuses []SagaStatus, olderThan time.Time) ([]*OrderSaga, error)
}
