package pipetest

import (
	"context"
	"errors"
	"sync"

	"github.com/go-kit/log"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Registry", func() {
	var registry *Registry

	BeforeEach(func() {
		registry = NewRegistry()
	})

	Describe("#GetOrCreate", func() {
		It("should return the same queue for repeated lookups of one name", func() {
			first, err := GetOrCreate[string](registry, "events")
			Expect(err).To(Succeed())

			second, err := GetOrCreate[string](registry, "events")
			Expect(err).To(Succeed())

			Expect(second).To(BeIdenticalTo(first))
		})

		It("should create at most one queue per name under concurrent first access", func() {
			const callers = 32

			var (
				wg      sync.WaitGroup
				start   = make(chan struct{})
				results = make(chan *Queue[string], callers)
			)

			wg.Add(callers)
			for i := 0; i < callers; i++ {
				go func() {
					defer wg.Done()
					<-start
					if q, err := GetOrCreate[string](registry, "contended"); err == nil {
						results <- q
					}
				}()
			}

			close(start)
			wg.Wait()
			close(results)

			Expect(results).To(HaveLen(callers))
			canonical := <-results
			for q := range results {
				Expect(q).To(BeIdenticalTo(canonical))
			}
			Expect(registry.Len()).To(Equal(1))
		})

		It("should fail with ErrTypeMismatch without touching the existing queue", func() {
			q, err := GetOrCreate[string](registry, "events")
			Expect(err).To(Succeed())
			Expect(q.TryPut("kept")).To(Succeed())

			_, err = GetOrCreate[int](registry, "events")
			Expect(errors.Is(err, ErrTypeMismatch)).To(BeTrue())

			again, err := GetOrCreate[string](registry, "events")
			Expect(err).To(Succeed())
			Expect(again.Len()).To(Equal(1))
		})

		It("should ignore capacity options for a name that already exists", func() {
			first, err := GetOrCreate[string](registry, "events", WithCapacity(3))
			Expect(err).To(Succeed())

			second, err := GetOrCreate[string](registry, "events", WithCapacity(99))
			Expect(err).To(Succeed())

			Expect(second).To(BeIdenticalTo(first))
			Expect(second.Cap()).To(Equal(3))
		})
	})

	Describe("#Clear", func() {
		It("should drop the queue so the next lookup creates a fresh one", func() {
			stale, err := GetOrCreate[string](registry, "events")
			Expect(err).To(Succeed())
			Expect(stale.TryPut("leftover")).To(Succeed())

			registry.Clear("events")

			fresh, err := GetOrCreate[string](registry, "events")
			Expect(err).To(Succeed())
			Expect(fresh).ToNot(BeIdenticalTo(stale))
			Expect(fresh.Len()).To(BeZero())
		})

		It("should allow rebinding a cleared name to a different element type", func() {
			_, err := GetOrCreate[string](registry, "events")
			Expect(err).To(Succeed())

			registry.Clear("events")

			_, err = GetOrCreate[int](registry, "events")
			Expect(err).To(Succeed())
		})
	})

	Describe("DefaultRegistry", func() {
		It("should hand every caller the same process-wide registry", func() {
			Expect(DefaultRegistry()).To(BeIdenticalTo(DefaultRegistry()))
		})

		It("should back adapters constructed without an explicit registry", func() {
			DefaultRegistry().Clear("default-bound")

			sink := NewQueueSink[string]("default-bound",
				WithSinkLogger[string](log.NewNopLogger()),
			)
			Expect(sink.Consume(context.Background(), "shared")).To(Succeed())

			q, err := GetOrCreate[string](DefaultRegistry(), "default-bound")
			Expect(err).To(Succeed())

			v, err := q.Take(context.Background())
			Expect(err).To(Succeed())
			Expect(v).To(Equal("shared"))

			DefaultRegistry().Clear("default-bound")
		})
	})

	Describe("#ClearAll", func() {
		It("should empty the registry", func() {
			_, err := GetOrCreate[string](registry, "in")
			Expect(err).To(Succeed())
			_, err = GetOrCreate[int](registry, "out")
			Expect(err).To(Succeed())

			registry.ClearAll()

			Expect(registry.Len()).To(BeZero())
		})
	})
})
