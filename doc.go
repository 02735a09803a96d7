// Package pipetest provides an in-memory substitute for the message broker
// that a streaming pipeline would normally read from and write to, so that
// pipeline jobs can be driven and observed in tests without any broker
// infrastructure.
//
// The substitute is built from three pieces:
//
// Registry: a process-wide mapping from a string name to a bounded,
// thread-safe FIFO queue of typed elements. Adapters and test harnesses are
// constructed independently, so they agree on queue instances by name alone.
//
// QueueSource: a pipeline-entry adapter bound to a queue name. Each call to
// Produce blocks on the named queue and hands the next element to the
// pipeline, preserving arrival order.
//
// QueueSink: a pipeline-exit adapter bound to a queue name. Each record the
// pipeline delivers is enqueued onto the named queue for the harness to
// poll and assert on.
//
// # Usage Example
//
//	// Wire the job against named queues instead of a broker.
//	src := pipetest.NewQueueSource[string]("test-input")
//	snk := pipetest.NewQueueSink[string]("test-output")
//	job := pipetest.NewJob[string, string](src, upper, snk)
//
//	// Push fixtures, start the job, then poll the output with a timeout.
//	registry := pipetest.DefaultRegistry()
//	if err := pipetest.Push(registry, "test-input", "hello"); err != nil {
//		t.Fatal(err)
//	}
//	go job.Run(ctx)
//	out, err := pipetest.Await[string](registry, "test-output", 5*time.Second)
//
// In production the same job runs against the connector subpackages
// (connector/kafka, connector/nats, connector/pg), which implement the same
// Source and Sink interfaces over real infrastructure.
//
// # Capacity Policy
//
// Every queue is bounded; DefaultCapacity applies unless the first creator
// passes WithCapacity. A full queue applies backpressure to the sink's
// blocking Consume. This is deliberate: an unbounded queue would hide flow
// control bugs until production.
//
// # Trade-offs
//
// This package tests pipeline logic, not broker behavior. There is no
// partitioning, consumer-group rebalancing, offset management, replication,
// or redelivery; elements are delivered at most once and all state is lost
// on process exit. For integration tests that verify real broker behavior,
// run against actual infrastructure with testcontainers or similar.
package pipetest
