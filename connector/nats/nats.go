package connectorNats

import (
	"context"
	"fmt"

	"github.com/nrfta/go-pipetest"

	"github.com/nats-io/nats.go"
)

type natsSink struct {
	client *nats.Conn
}

// NewSink returns a sink that publishes each pipeline record to NATS. The
// production counterpart of pipetest.QueueSink.
func NewSink(client *nats.Conn) (pipetest.Sink[*nats.Msg], error) {
	return &natsSink{client}, nil
}

func (s natsSink) Consume(ctx context.Context, msg *nats.Msg) error {
	err := s.client.PublishMsg(msg)
	if err != nil {
		return fmt.Errorf("nats publish message: %v", err)
	}

	return nil
}

// bufferSize bounds the subscription channel; arrivals beyond it while the
// consumer lags are subject to the server's slow-consumer handling.
const bufferSize = 64

type natsSource struct {
	sub *nats.Subscription
	ch  chan *nats.Msg
}

// NewSource subscribes to subject and returns a source emitting one message
// per Produce call, in arrival order. The production counterpart of
// pipetest.QueueSource.
//
// Core NATS delivery is at-most-once: the subscription buffers bufferSize
// messages, and a consumer lagging past that is a slow consumer whose
// overflow the server drops before it ever reaches this source. Callers
// needing visibility into that loss window should watch the connection's
// slow-consumer error handler; callers needing delivery guarantees should
// use JetStream instead.
func NewSource(client *nats.Conn, subject string) (pipetest.Source[*nats.Msg], error) {
	ch := make(chan *nats.Msg, bufferSize)
	sub, err := client.ChanSubscribe(subject, ch)
	if err != nil {
		return nil, fmt.Errorf("nats subscribe %q: %v", subject, err)
	}

	return &natsSource{sub: sub, ch: ch}, nil
}

func (s *natsSource) Produce(ctx context.Context) (*nats.Msg, error) {
	select {
	case msg := <-s.ch:
		return msg, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("nats source: %w: %v", pipetest.ErrInterrupted, ctx.Err())
	}
}

var _ pipetest.Sink[*nats.Msg] = (*natsSink)(nil)
var _ pipetest.Source[*nats.Msg] = (*natsSource)(nil)
