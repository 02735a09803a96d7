package pipetest

import (
	"context"
	"fmt"
	"time"
)

// DefaultCapacity is the element capacity of a queue created without
// WithCapacity.
const DefaultCapacity = 64

// Queue is a bounded FIFO of elements of type T. It is safe for multiple
// concurrent producers and consumers; elements from a single producer are
// dequeued in the order they were enqueued.
type Queue[T any] struct {
	ch chan T
}

// NewQueue creates a standalone bounded queue. Most callers should go
// through GetOrCreate instead so adapters and harnesses resolve the same
// instance by name.
func NewQueue[T any](opts ...QueueOption) *Queue[T] {
	cfg := queueConfig{capacity: DefaultCapacity}
	for _, o := range opts {
		o(&cfg)
	}

	return &Queue[T]{ch: make(chan T, cfg.capacity)}
}

type queueConfig struct {
	capacity int
}

// QueueOption configures a queue at creation time. Options passed to
// GetOrCreate for a name that already exists are ignored.
type QueueOption func(*queueConfig)

// WithCapacity sets the queue's bounded capacity. Values below one fall
// back to DefaultCapacity.
func WithCapacity(n int) QueueOption {
	return func(cfg *queueConfig) {
		if n > 0 {
			cfg.capacity = n
		}
	}
}

// Put enqueues v, blocking while the queue is full. A canceled ctx unblocks
// the wait and returns the ctx error; v is not enqueued in that case.
func (q *Queue[T]) Put(ctx context.Context, v T) error {
	select {
	case q.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPut enqueues v without blocking, returning ErrQueueFull when the queue
// is at capacity.
func (q *Queue[T]) TryPut(v T) error {
	select {
	case q.ch <- v:
		return nil
	default:
		return fmt.Errorf("%w: capacity %d", ErrQueueFull, cap(q.ch))
	}
}

// Take dequeues the oldest element, blocking while the queue is empty. A
// canceled ctx unblocks the wait and returns the ctx error.
func (q *Queue[T]) Take(ctx context.Context) (T, error) {
	select {
	case v := <-q.ch:
		return v, nil
	case <-ctx.Done():
		return *new(T), ctx.Err()
	}
}

// Poll dequeues the oldest element, waiting at most timeout. Expiry returns
// ErrTimeout; an absent element is a test failure signal, not a crash.
func (q *Queue[T]) Poll(timeout time.Duration) (T, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case v := <-q.ch:
		return v, nil
	case <-timer.C:
		return *new(T), fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}

// Len reports the number of buffered elements.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}

// Cap reports the queue's bounded capacity.
func (q *Queue[T]) Cap() int {
	return cap(q.ch)
}
