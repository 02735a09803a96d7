package pipetest

import (
	"fmt"
	"reflect"
	"sync"
)

// Registry maps queue names to queue instances for the lifetime of the
// process. A name always resolves to the same queue; creating a queue under
// a taken name returns the existing instance rather than replacing it.
type Registry struct {
	mu     sync.Mutex
	queues map[string]registryEntry
}

type registryEntry struct {
	elemType reflect.Type
	queue    any
}

// NewRegistry creates an empty registry. Most tests use the process-wide
// default registry; a private registry isolates suites that must not share
// queue names.
func NewRegistry() *Registry {
	return &Registry{queues: make(map[string]registryEntry)}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry shared by adapters and
// harnesses that are constructed without an explicit registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// GetOrCreate returns the queue registered under name, creating a bounded
// queue of element type T if absent. Creation is atomic with the lookup:
// concurrent first access from any number of goroutines yields exactly one
// queue. A name already bound to a different element type fails with
// ErrTypeMismatch and leaves the existing queue untouched.
func GetOrCreate[T any](r *Registry, name string, opts ...QueueOption) (*Queue[T], error) {
	want := reflect.TypeOf((*T)(nil)).Elem()

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.queues[name]; ok {
		if e.elemType != want {
			return nil, fmt.Errorf("%w: queue %q holds %s, requested %s", ErrTypeMismatch, name, e.elemType, want)
		}
		return e.queue.(*Queue[T]), nil
	}

	q := NewQueue[T](opts...)
	r.queues[name] = registryEntry{elemType: want, queue: q}
	return q, nil
}

// Clear removes the queue registered under name, dropping any buffered
// elements. Adapters bound to the name are unaffected: their next operation
// re-resolves and lazily recreates the queue. Intended for test teardown.
func (r *Registry) Clear(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.queues, name)
}

// ClearAll removes every registered queue. Call between independent test
// cases that reuse queue names to avoid cross-test leakage.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queues = make(map[string]registryEntry)
}

// Len reports the number of registered queues.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queues)
}
