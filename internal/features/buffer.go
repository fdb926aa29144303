package features

import (
	"sync"
	"time"
)

// BufferMode selects the push policy of a StreamBuffer when full.
type BufferMode int

const (
	// Streaming drops the oldest entry to admit the new one: real-time
	// freshness beats completeness.
	Streaming BufferMode = iota

	// Batch blocks the producer until the consumer drains. Backpressure is
	// acceptable because batch extraction is not real-time-critical.
	Batch
)

// StreamBuffer is the bounded queue decoupling the extraction context
// (single producer) from the render context (single consumer). It is the
// sole synchronization point between the two; Pull never blocks past its
// timeout, which is what keeps the render loop from stalling.
type StreamBuffer struct {
	mu       sync.Mutex
	items    []*Vector // FIFO, oldest first
	capacity int
	mode     BufferMode
	closed   bool
	dropped  uint64

	// Edge-triggered wakeups; capacity 1 so a pending signal coalesces.
	notEmpty chan struct{}
	notFull  chan struct{}
	done     chan struct{}
}

// NewStreamBuffer creates a buffer with the given capacity and mode.
// Capacity values below one are clamped to one.
func NewStreamBuffer(capacity int, mode BufferMode) *StreamBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &StreamBuffer{
		items:    make([]*Vector, 0, capacity),
		capacity: capacity,
		mode:     mode,
		notEmpty: make(chan struct{}, 1),
		notFull:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Push admits a vector. In Streaming mode a full buffer drops its oldest
// entry; in Batch mode Push blocks until space is available or the buffer is
// closed. Returns false only when the buffer is closed.
func (b *StreamBuffer) Push(v *Vector) bool {
	for {
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return false
		}

		if len(b.items) < b.capacity {
			b.items = append(b.items, v)
			b.mu.Unlock()
			b.signal(b.notEmpty)
			return true
		}

		if b.mode == Streaming {
			// Drop oldest to admit the new one.
			copy(b.items, b.items[1:])
			b.items[len(b.items)-1] = v
			b.dropped++
			b.mu.Unlock()
			b.signal(b.notEmpty)
			return true
		}
		b.mu.Unlock()

		// Batch mode: wait for the consumer to drain.
		select {
		case <-b.notFull:
		case <-b.done:
			return false
		}
	}
}

// Pull returns the newest available vector, discarding older entries as
// stale. If nothing arrives before the timeout it returns (nil, false) and
// the caller must reuse its last known vector.
func (b *StreamBuffer) Pull(timeout time.Duration) (*Vector, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		b.mu.Lock()
		if n := len(b.items); n > 0 {
			v := b.items[n-1]
			b.items = b.items[:0]
			closed := b.closed
			b.mu.Unlock()
			if !closed {
				b.signal(b.notFull)
			}
			return v, true
		}
		closed := b.closed
		b.mu.Unlock()

		if closed {
			return nil, false
		}

		select {
		case <-b.notEmpty:
		case <-deadline.C:
			return nil, false
		case <-b.done:
			// Re-check: a vector may have been pushed before close.
		}
	}
}

// Close wakes all waiters. Pending items can still be pulled; further pushes
// are rejected.
func (b *StreamBuffer) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()
	close(b.done)
}

// Closed reports whether the buffer has been closed.
func (b *StreamBuffer) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Len returns the current number of buffered vectors.
func (b *StreamBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Dropped returns the number of vectors evicted by the streaming drop-oldest
// policy.
func (b *StreamBuffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// signal performs a non-blocking edge-triggered notification.
func (b *StreamBuffer) signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
