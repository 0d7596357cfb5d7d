// Package queue provides the unbounded FIFO shared by the event bus and the
// order scheduler.
//
// The queue never blocks producers: lifecycle workers publish status events
// and the shop front door enqueues order ids without waiting on consumers.
// Consumers wait on a signal channel so they can select on context
// cancellation at the same time.
package queue

import "sync"

// Queue is a thread-safe FIFO.
//
// Thread-safety: Enqueue, TryDequeue, Len and Close may be called from any
// goroutine. Several consumers may share one queue; a consumer that takes an
// item while more remain re-arms the signal so the next idle consumer wakes.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	signal chan struct{} // buffered, size 1
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		items:  make([]T, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an item to the back of the queue.
// Returns false if the queue is closed.
func (q *Queue[T]) Enqueue(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, item)
	q.notifyLocked()
	return true
}

// TryDequeue removes and returns the front item without blocking.
// Returns (zero, false) if the queue is empty.
func (q *Queue[T]) TryDequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}

	item := q.items[0]

	// Clear the slot so the backing array does not pin the item.
	q.items[0] = zero

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
		if !q.closed {
			q.notifyLocked()
		}
	}

	return item, true
}

// Drain removes and returns every queued item.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]T, len(q.items))
	copy(out, q.items)
	q.items = q.items[:0]
	return out
}

// Wait returns a channel that signals when items may be available.
// The channel is closed once the queue is closed.
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-q.Wait():
//	    // try TryDequeue
//	}
func (q *Queue[T]) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more items will be enqueued and wakes every waiter.
// Items already queued stay available to TryDequeue.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// notifyLocked signals availability without blocking; the buffer of one
// coalesces bursts. Caller holds q.mu.
func (q *Queue[T]) notifyLocked() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}
