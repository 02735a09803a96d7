package pipetest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/go-kit/log"
	"github.com/rs/xid"
)

var (
	// ErrTypeMismatch reports a GetOrCreate call whose element type differs
	// from the type the named queue was created with.
	ErrTypeMismatch = errors.New("queue element type mismatch")

	// ErrTimeout reports that an expected element did not appear within the
	// configured wait bound. Recoverable at the test level.
	ErrTimeout = errors.New("timed out waiting for element")

	// ErrInterrupted reports a blocking dequeue or enqueue cut short by
	// cancellation. It signals pipeline shutdown, not a logic failure.
	ErrInterrupted = errors.New("adapter interrupted")

	// ErrQueueFull reports a non-blocking enqueue against a queue at
	// capacity.
	ErrQueueFull = errors.New("queue full")
)

type Logger interface {
	log.Logger
}

// Source produces the pipeline's next input element. Produce blocks until
// an element is available or ctx is canceled.
type Source[T any] interface {
	Produce(ctx context.Context) (T, error)
}

// Sink receives one pipeline output element. Consume blocks while the
// destination applies backpressure; a failed consume must surface as an
// error, never drop the element silently.
type Sink[T any] interface {
	Consume(ctx context.Context, v T) error
}

// Transform maps one input element to one output element.
type Transform[In, Out any] func(ctx context.Context, v In) (Out, error)

// Job is a minimal pipeline runner: an effectively infinite
// produce/transform/consume loop between one Source and one Sink. It exists
// so queue-backed adapters can be exercised end to end; a real stream
// processor replaces it in production.
type Job[In, Out any] struct {
	source    Source[In]
	sink      Sink[Out]
	transform Transform[In, Out]

	logger Logger

	id      xid.ID
	workers int
}

type jobOption[In, Out any] func(j *Job[In, Out])

// WithWorkers sets the number of concurrent worker goroutines. End-to-end
// FIFO order is only guaranteed with a single worker.
func WithWorkers[In, Out any](n int) jobOption[In, Out] {
	return func(j *Job[In, Out]) {
		if n > 0 {
			j.workers = n
		}
	}
}

func WithLogger[In, Out any](logger Logger) jobOption[In, Out] {
	return func(j *Job[In, Out]) {
		j.logger = logger
	}
}

// NewJob wires a source, a transform, and a sink into a runnable job.
func NewJob[In, Out any](source Source[In], transform Transform[In, Out], sink Sink[Out], opts ...jobOption[In, Out]) *Job[In, Out] {
	logger := log.NewJSONLogger(log.NewSyncWriter(os.Stderr))

	j := &Job[In, Out]{
		source:    source,
		sink:      sink,
		transform: transform,
		id:        xid.New(),
		workers:   1,
		logger:    logger,
	}

	for _, o := range opts {
		o(j)
	}

	j.logger = log.With(
		j.logger,
		"component", "job",
		"job", j.id.String(),
	)

	return j
}

// Run drives the loop until ctx is canceled or a stage fails, and returns
// the error that stopped it. Cancellation surfaces as an error satisfying
// errors.Is(err, ErrInterrupted). Start it asynchronously from a harness
// with `go job.Run(ctx)`.
func (j *Job[In, Out]) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg   sync.WaitGroup
		once sync.Once
		err  error
	)

	j.logger.Log("msg", "job starting", "workers", j.workers)

	wg.Add(j.workers)
	for i := 0; i < j.workers; i++ {
		go func() {
			defer wg.Done()
			if werr := j.work(ctx); werr != nil {
				once.Do(func() {
					err = werr
					cancel()
				})
			}
		}()
	}
	wg.Wait()

	if errors.Is(err, ErrInterrupted) {
		j.logger.Log("msg", "job stopped", "err", err)
	} else {
		j.logger.Log("err", fmt.Errorf("job failed: %v", err))
	}

	return err
}

func (j *Job[In, Out]) work(ctx context.Context) error {
	for {
		in, err := j.source.Produce(ctx)
		if err != nil {
			return fmt.Errorf("produce: %w", err)
		}

		out, err := j.transform(ctx, in)
		if err != nil {
			return fmt.Errorf("transform: %w", err)
		}

		if err := j.sink.Consume(ctx, out); err != nil {
			return fmt.Errorf("consume: %w", err)
		}
	}
}
