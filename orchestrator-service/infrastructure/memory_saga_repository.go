package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/draftea/order-saga/orchestrator-service/domain"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
	"github.com/draftea/order-saga/shared/outbox"
	"github.com/pkg/errors"
)

var (
	_ domain.SagaRepository = (*MemorySagaRepository)(nil)
	_ outbox.Store          = (*MemorySagaRepository)(nil)
)

// MemorySagaRepository keeps sagas and their outbox in process memory.
// Stored sagas are copies, so callers never share state with the store.
type MemorySagaRepository struct {
	mu     sync.RWMutex
	sagas  map[models.ID]*domain.OrderSaga
	outbox []*memoryOutboxEntry
	nextID int64
}

type memoryOutboxEntry struct {
	entry     outbox.Entry
	published bool
	dead      bool
}

func NewMemorySagaRepository() *MemorySagaRepository {
	return &MemorySagaRepository{
		sagas: make(map[models.ID]*domain.OrderSaga),
	}
}

func (r *MemorySagaRepository) Create(_ context.Context, saga *domain.OrderSaga) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sagas[saga.OrderID]; ok {
		return errors.Wrap(domain.ErrDuplicateOrder, saga.OrderID.String())
	}

	r.store(saga)
	return nil
}

func (r *MemorySagaRepository) Save(_ context.Context, saga *domain.OrderSaga) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.sagas[saga.OrderID]
	if !ok || stored.Version.Value != saga.Version.Value {
		return errors.Wrapf(domain.ErrConcurrentUpdate, "order %s at version %d", saga.OrderID, saga.Version.Value)
	}

	r.store(saga)
	return nil
}

// Enqueue skips events whose id is already in the outbox
func (r *MemorySagaRepository) Enqueue(_ context.Context, _ models.ID, evts ...*events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[models.ID]bool, len(r.outbox))
	for _, e := range r.outbox {
		seen[e.entry.Event.ID] = true
	}

	var fresh []*events.Event
	for _, evt := range evts {
		if !seen[evt.ID] {
			seen[evt.ID] = true
			fresh = append(fresh, evt)
		}
	}

	r.appendOutbox(fresh)
	return nil
}

func (r *MemorySagaRepository) FindByOrderID(_ context.Context, orderID models.ID) (*domain.OrderSaga, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	saga, ok := r.sagas[orderID]
	if !ok {
		return nil, nil
	}
	return saga.Clone(), nil
}

func (r *MemorySagaRepository) List(_ context.Context) ([]*domain.OrderSaga, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sagas := make([]*domain.OrderSaga, 0, len(r.sagas))
	for _, saga := range r.sagas {
		sagas = append(sagas, saga.Clone())
	}

	sort.Slice(sagas, func(i, j int) bool {
		if sagas[i].Timestamps.CreatedAt.Equal(sagas[j].Timestamps.CreatedAt) {
			return sagas[i].OrderID < sagas[j].OrderID
		}
		return sagas[i].Timestamps.CreatedAt.Before(sagas[j].Timestamps.CreatedAt)
	})
	return sagas, nil
}

func (r *MemorySagaRepository) ListStale(_ context.Context, statuses []domain.SagaStatus, olderThan time.Time) ([]*domain.OrderSaga, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[domain.SagaStatus]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}

	var sagas []*domain.OrderSaga
	for _, saga := range r.sagas {
		if wanted[saga.Status] && saga.Timestamps.UpdatedAt.Before(olderThan) {
			sagas = append(sagas, saga.Clone())
		}
	}

	sort.Slice(sagas, func(i, j int) bool {
		return sagas[i].Timestamps.UpdatedAt.Before(sagas[j].Timestamps.UpdatedAt)
	})
	return sagas, nil
}

func (r *MemorySagaRepository) Pending(_ context.Context, limit int) ([]*outbox.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []*outbox.Entry
	for _, e := range r.outbox {
		if e.published || e.dead {
			continue
		}
		entry := e.entry
		entry.Event = e.entry.Event.Clone()
		entries = append(entries, &entry)
		if len(entries) == limit {
			break
		}
	}
	return entries, nil
}

func (r *MemorySagaRepository) MarkPublished(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.findEntry(id)
	if err != nil {
		return err
	}
	e.published = true
	e.entry.Attempts++
	return nil
}

func (r *MemorySagaRepository) MarkFailed(_ context.Context, id int64, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.findEntry(id)
	if err != nil {
		return err
	}
	e.entry.Attempts++
	e.entry.LastError = reason
	return nil
}

func (r *MemorySagaRepository) MarkDead(_ context.Context, id int64, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.findEntry(id)
	if err != nil {
		return err
	}
	e.dead = true
	e.entry.Attempts++
	e.entry.LastError = reason
	return nil
}

// Outbox returns every event ever enqueued, published or not, in order
func (r *MemorySagaRepository) Outbox() []*events.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	evts := make([]*events.Event, len(r.outbox))
	for i, e := range r.outbox {
		evts[i] = e.entry.Event
	}
	return evts
}

// store must be called with the write lock held
func (r *MemorySagaRepository) store(saga *domain.OrderSaga) {
	saga.Version = saga.Version.Next()
	r.appendOutbox(saga.Events())
	saga.ClearEvents()
	r.sagas[saga.OrderID] = saga.Clone()
}

func (r *MemorySagaRepository) appendOutbox(evts []*events.Event) {
	for _, evt := range evts {
		r.nextID++
		r.outbox = append(r.outbox, &memoryOutboxEntry{
			entry: outbox.Entry{
				ID:        r.nextID,
				Event:     evt,
				CreatedAt: evt.Timestamp,
			},
		})
	}
}

func (r *MemorySagaRepository) findEntry(id int64) (*memoryOutboxEntry, error) {
	for _, e := range r.outbox {
		if e.entry.ID == id {
			return e, nil
		}
	}
	return nil, errors.Errorf("outbox entry %d not found", id)
}
