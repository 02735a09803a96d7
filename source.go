package pipetest

import (
	"context"
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/rs/xid"
)

// QueueSource bridges a named registry queue into a pipeline's ingestion
// point. It holds no reference to the queue itself: every Produce resolves
// the name through the registry, so a queue cleared between tests is
// recreated transparently on the next call.
type QueueSource[T any] struct {
	registry *Registry
	name     string
	opts     []QueueOption

	logger Logger
	id     xid.ID
}

type sourceOption[T any] func(s *QueueSource[T])

// WithSourceRegistry binds the source to a registry other than DefaultRegistry.
func WithSourceRegistry[T any](r *Registry) sourceOption[T] {
	return func(s *QueueSource[T]) {
		s.registry = r
	}
}

func WithSourceLogger[T any](logger Logger) sourceOption[T] {
	return func(s *QueueSource[T]) {
		s.logger = logger
	}
}

// WithSourceQueueOptions forwards queue options used if the source is the
// first to create the named queue.
func WithSourceQueueOptions[T any](opts ...QueueOption) sourceOption[T] {
	return func(s *QueueSource[T]) {
		s.opts = opts
	}
}

// NewQueueSource binds a source adapter to a queue name. The adapter is
// stateless beyond the binding; the queue is created lazily on first use.
func NewQueueSource[T any](name string, opts ...sourceOption[T]) *QueueSource[T] {
	logger := log.NewJSONLogger(log.NewSyncWriter(os.Stderr))

	s := &QueueSource[T]{
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
		"component", "queue_source",
		"queue", s.name,
		"adapter", s.id.String(),
	)

	return s
}

var _ Source[any] = (*QueueSource[any])(nil)

// Produce blocks on the named queue and returns the next element in
// arrival order, pass-through only. A canceled ctx unblocks the wait
// within the cancellation grace period and returns an error satisfying
// errors.Is(err, ErrInterrupted); no further elements are emitted on that
// call.
func (s *QueueSource[T]) Produce(ctx context.Context) (T, error) {
	q, err := GetOrCreate[T](s.registry, s.name, s.opts...)
	if err != nil {
		return *new(T), fmt.Errorf("queue source %q: %w", s.name, err)
	}

	v, err := q.Take(ctx)
	if err != nil {
		s.logger.Log("msg", "dequeue interrupted", "err", err)
		return *new(T), fmt.Errorf("queue source %q: %w: %v", s.name, ErrInterrupted, err)
	}

	return v, nil
}
