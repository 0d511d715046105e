package infrastructure

import (
	"context"
	"sync"

	"github.com/draftea/order-saga/shared/events"
	"github.com/pkg/errors"
)

var _ events.Bus = (*MemoryBus)(nil)

type memoryGroup struct {
	handlers []events.EventHandler
	next     int
}

// MemoryBus is an in-process bus. Publish delivers synchronously, once per
// subscribed group, and returns the first handler error so the publisher can
// retry. Every published event is kept for inspection.
type MemoryBus struct {
	mu      sync.Mutex
	groups  map[events.Topic]map[string]*memoryGroup
	order   map[events.Topic][]string
	history []*events.Event
	closed  bool
}

// NewMemoryBus creates an empty MemoryBus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		groups: make(map[events.Topic]map[string]*memoryGroup),
		order:  make(map[events.Topic][]string),
	}
}

// Publish implements events.Publisher
func (b *MemoryBus) Publish(ctx context.Context, evts ...*events.Event) error {
	for _, event := range evts {
		handlers, err := b.record(event)
		if err != nil {
			return err
		}

		for _, handler := range handlers {
			if err := handler.Handle(ctx, event.Clone()); err != nil {
				return errors.Wrapf(err, "handler failed for %s", event.Topic)
			}
		}
	}
	return nil
}

// record appends event to the history and picks one handler per group
func (b *MemoryBus) record(event *events.Event) ([]events.EventHandler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errors.New("memory bus is closed")
	}

	b.history = append(b.history, event.Clone())

	var handlers []events.EventHandler
	for _, name := range b.order[event.Topic] {
		group := b.groups[event.Topic][name]
		handlers = append(handlers, group.handlers[group.next%len(group.handlers)])
		group.next++
	}
	return handlers, nil
}

// Subscribe implements events.Subscriber. Handlers sharing a group take
// turns.
func (b *MemoryBus) Subscribe(_ context.Context, topic events.Topic, group string, handler events.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.New("memory bus is closed")
	}

	groups, ok := b.groups[topic]
	if !ok {
		groups = make(map[string]*memoryGroup)
		b.groups[topic] = groups
	}

	g, ok := groups[group]
	if !ok {
		g = &memoryGroup{}
		groups[group] = g
		b.order[topic] = append(b.order[topic], group)
	}
	g.handlers = append(g.handlers, handler)

	return nil
}

// History returns every event published so far, in publish order
func (b *MemoryBus) History() []*events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*events.Event, len(b.history))
	copy(out, b.history)
	return out
}

// HistoryFor returns the events published on topic
func (b *MemoryBus) HistoryFor(topic events.Topic) []*events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []*events.Event
	for _, event := range b.history {
		if event.Topic == topic {
			out = append(out, event)
		}
	}
	return out
}

// Close rejects further publishes and subscriptions
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	return nil
}
