package pipetest

import (
	"context"
	"fmt"
	"time"
)

// pushTimeout bounds fixture enqueues so a saturated queue fails the test
// instead of hanging it.
const pushTimeout = 5 * time.Second

// Push enqueues fixture elements onto the named queue in order, creating
// the queue if absent. Call before starting the pipeline under test.
func Push[T any](r *Registry, name string, elems ...T) error {
	q, err := GetOrCreate[T](r, name)
	if err != nil {
		return fmt.Errorf("push to %q: %w", name, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	for _, v := range elems {
		if err := q.Put(ctx, v); err != nil {
			return fmt.Errorf("push to %q: %w: %v", name, ErrInterrupted, err)
		}
	}

	return nil
}

// Await polls the named queue for its next element, waiting at most
// timeout. Expiry returns an error satisfying errors.Is(err, ErrTimeout):
// the expected output never arrived, which is a test failure, not a crash.
func Await[T any](r *Registry, name string, timeout time.Duration) (T, error) {
	q, err := GetOrCreate[T](r, name)
	if err != nil {
		return *new(T), fmt.Errorf("await on %q: %w", name, err)
	}

	v, err := q.Poll(timeout)
	if err != nil {
		return *new(T), fmt.Errorf("await on %q: %w", name, err)
	}

	return v, nil
}

// AwaitN polls the named queue for the next n elements in emission order.
// The timeout bounds the whole batch, not each element.
func AwaitN[T any](r *Registry, name string, n int, timeout time.Duration) ([]T, error) {
	q, err := GetOrCreate[T](r, name)
	if err != nil {
		return nil, fmt.Errorf("await on %q: %w", name, err)
	}

	deadline := time.Now().Add(timeout)
	out := make([]T, 0, n)
	for len(out) < n {
		v, err := q.Poll(time.Until(deadline))
		if err != nil {
			return out, fmt.Errorf("await on %q: got %d of %d: %w", name, len(out), n, err)
		}
		out = append(out, v)
	}

	return out, nil
}
