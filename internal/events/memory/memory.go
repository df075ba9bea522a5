// Package memory is an in-process event bus. The service publishes to it
// when no Redis stream is configured, and tests subscribe a Recorder.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/elektrokombinacija/warehouse-planner/internal/events"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("event bus closed")

// Bus delivers events synchronously to subscribers of a topic.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]events.Handler
	closed      bool
}

var _ events.Publisher = (*Bus)(nil)

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]events.Handler)}
}

// Publish calls every handler of the topic in subscription order and
// returns the first handler error.
func (b *Bus) Publish(ctx context.Context, topic string, e events.Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	handlers := make([]events.Handler, len(b.subscribers[topic]))
	copy(handlers, b.subscribers[topic])
	b.mu.RUnlock()

	var first error
	for _, h := range handlers {
		if err := h(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Subscribe adds a handler to a topic.
func (b *Bus) Subscribe(topic string, h events.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[topic] = append(b.subscribers[topic], h)
}

// Unsubscribe removes every handler of a topic.
func (b *Bus) Unsubscribe(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, topic)
}

// Close drops all subscriptions and rejects further publishes.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = make(map[string][]events.Handler)
	b.closed = true
	return nil
}

// Recorder is a handler that keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
}

// Handle records e.
func (r *Recorder) Handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Event, len(r.events))
	copy(out, r.events)
	return out
}
