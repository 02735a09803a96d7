package pipetest

import (
	"context"
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/rs/xid"
)

// QueueSink bridges a pipeline's output into a named registry queue for
// assertion. Like QueueSource it keeps no reference to the queue; every
// Consume resolves the name through the registry.
type QueueSink[T any] struct {
	registry *Registry
	name     string
	opts     []QueueOption

	nonBlocking bool

	logger Logger
	id     xid.ID
}

type sinkOption[T any] func(s *QueueSink[T])

// WithSinkRegistry binds the sink to a registry other than DefaultRegistry.
func WithSinkRegistry[T any](r *Registry) sinkOption[T] {
	return func(s *QueueSink[T]) {
		s.registry = r
	}
}

func WithSinkLogger[T any](logger Logger) sinkOption[T] {
	return func(s *QueueSink[T]) {
		s.logger = logger
	}
}

// WithSinkQueueOptions forwards queue options used if the sink is the first
// to create the named queue.
func WithSinkQueueOptions[T any](opts ...QueueOption) sinkOption[T] {
	return func(s *QueueSink[T]) {
		s.opts = opts
	}
}

// WithNonBlocking makes Consume fail with ErrQueueFull instead of blocking
// when the queue is at capacity. The element is surfaced to the caller,
// never dropped.
func WithNonBlocking[T any]() sinkOption[T] {
	return func(s *QueueSink[T]) {
		s.nonBlocking = true
	}
}

// NewQueueSink binds a sink adapter to a queue name. The queue is created
// lazily on first use.
func NewQueueSink[T any](name string, opts ...sinkOption[T]) *QueueSink[T] {
	logger := log.NewJSONLogger(log.NewSyncWriter(os.Stderr))

	s := &QueueSink[T]{
		registry: defaultRegistry,
		name:     name,
		id:       xid.New(),
		logger:   logger,
	}

	for _, o := range opts {
		o(s)
	}

	s.logger = log.With(
		s.logger,
		"component", "queue_sink",
		"queue", s.name,
		"adapter", s.id.String(),
	)

	return s
}

var _ Sink[any] = (*QueueSink[any])(nil)

// Consume enqueues v onto the named queue, blocking while the queue is at
// capacity so a bounded queue applies backpressure into the pipeline. A
// cancellation during the blocking put is fatal to the adapter: it returns
// an error satisfying errors.Is(err, ErrInterrupted) rather than dropping
// the element.
func (s *QueueSink[T]) Consume(ctx context.Context, v T) error {
	q, err := GetOrCreate[T](s.registry, s.name, s.opts...)
	if err != nil {
		return fmt.Errorf("queue sink %q: %w", s.name, err)
	}

	if s.nonBlocking {
		if err := q.TryPut(v); err != nil {
			return fmt.Errorf("queue sink %q: %w", s.name, err)
		}
		return nil
	}

	if err := q.Put(ctx, v); err != nil {
		s.logger.Log("msg", "enqueue interrupted", "err", err)
		return fmt.Errorf("queue sink %q: %w: %v", s.name, ErrInterrupted, err)
	}

	return nil
}
