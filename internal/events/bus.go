package events

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/tphakala/musicv-go/internal/errors"
	"github.com/tphakala/musicv-go/internal/logging"
)

// DefaultMaxDispatchDepth bounds re-entrant emission: a listener may emit
// further events, but once the nesting exceeds this depth the offending
// cascade is aborted.
const DefaultMaxDispatchDepth = 8

// Bus dispatches events synchronously to listeners in registration order.
// Listener invocation happens on whichever goroutine calls Emit; the bus
// itself starts no goroutines.
type Bus struct {
	mu        sync.RWMutex
	listeners map[Type][]Listener

	// Dispatch nesting counter. Cascaded emits run on the same stack, so
	// the value seen by a nested Emit reflects the cascade depth.
	depth    atomic.Int32
	maxDepth int32

	stats  BusStats
	logger *slog.Logger
}

// NewBus creates a bus with the given cascade bound. A maxDepth of zero or
// less selects DefaultMaxDispatchDepth.
func NewBus(maxDepth int) *Bus {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDispatchDepth
	}

	logger := logging.ForService("events")
	if logger == nil {
		logger = slog.Default().With("service", "events")
	}

	return &Bus{
		listeners: make(map[Type][]Listener),
		maxDepth:  int32(maxDepth),
		logger:    logger,
	}
}

// Subscribe registers a listener for the given event type. Listeners for a
// type are invoked in registration order.
func (b *Bus) Subscribe(eventType Type, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventType] = append(b.listeners[eventType], listener)
}

// SubscribeAll registers a listener for every event type emitted on the bus.
// Wildcard listeners run after type-specific ones.
func (b *Bus) SubscribeAll(listener Listener) {
	b.Subscribe(wildcardType, listener)
}

const wildcardType Type = "*"

// Emit dispatches the event to all listeners registered for its type, in
// registration order. A listener emitting further events is permitted until
// the cascade bound is exceeded, at which point only the offending cascade
// is aborted with an event-bus category error.
func (b *Bus) Emit(event Event) error {
	depth := b.depth.Add(1)
	defer b.depth.Add(-1)

	if depth > b.maxDepth {
		atomic.AddUint64(&b.stats.CascadesAborted, 1)
		return errors.Newf("event cascade exceeded max dispatch depth %d", b.maxDepth).
			Component("events").
			Category(errors.CategoryEventBus).
			Context("event_type", string(event.Type)).
			Context("depth", int(depth)).
			Build()
	}

	atomic.AddUint64(&b.stats.EventsEmitted, 1)

	b.mu.RLock()
	typed := b.listeners[event.Type]
	wildcard := b.listeners[wildcardType]
	listeners := make([]Listener, 0, len(typed)+len(wildcard))
	listeners = append(listeners, typed...)
	listeners = append(listeners, wildcard...)
	b.mu.RUnlock()

	for _, listener := range listeners {
		b.dispatch(event, listener)
	}

	return nil
}

// dispatch invokes one listener with panic recovery so a faulting listener
// cannot take down the emitting loop.
func (b *Bus) dispatch(event Event, listener Listener) {
	defer func() {
		if r := recover(); r != nil {
			atomic.AddUint64(&b.stats.ListenerPanics, 1)
			b.logger.Error("event listener panicked",
				"event_type", string(event.Type),
				"panic", r,
			)
		}
	}()

	listener(event)
	atomic.AddUint64(&b.stats.EventsDelivered, 1)
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() BusStats {
	return BusStats{
		EventsEmitted:   atomic.LoadUint64(&b.stats.EventsEmitted),
		EventsDelivered: atomic.LoadUint64(&b.stats.EventsDelivered),
		CascadesAborted: atomic.LoadUint64(&b.stats.CascadesAborted),
		ListenerPanics:  atomic.LoadUint64(&b.stats.ListenerPanics),
	}
}
