package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nrfta/go-pipetest"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is the element type carried by the Kafka source and sink.
type Message struct {
	Key       []byte
	Value     []byte
	Headers   []kgo.RecordHeader
	Timestamp time.Time
	Topic     string
}

type kafkaSink struct {
	client *kgo.Client
}

// NewSink returns a sink that produces each pipeline record to Kafka
// synchronously. The production counterpart of pipetest.QueueSink.
func NewSink(client *kgo.Client) (pipetest.Sink[Message], error) {
	return &kafkaSink{client}, nil
}

func (s kafkaSink) Consume(ctx context.Context, msg Message) error {
	record := &kgo.Record{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   msg.Headers,
		Timestamp: msg.Timestamp,
		Topic:     msg.Topic,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("record had a produce error while synchronously producing: %v", err)
	}

	return nil
}

type kafkaSource struct {
	client *kgo.Client

	mu     sync.Mutex
	buffer []Message
}

// NewSource returns a source that polls the client's subscribed topics and
// emits one record per Produce call. The production counterpart of
// pipetest.QueueSource.
func NewSource(client *kgo.Client) (pipetest.Source[Message], error) {
	return &kafkaSource{client: client}, nil
}

func (s *kafkaSource) Produce(ctx context.Context) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.buffer) == 0 {
		fetches := s.client.PollFetches(ctx)
		if err := fetches.Err0(); err != nil {
			if ctx.Err() != nil {
				return Message{}, fmt.Errorf("kafka source poll: %w: %v", pipetest.ErrInterrupted, err)
			}
			return Message{}, fmt.Errorf("kafka source poll: %v", err)
		}

		fetches.EachRecord(func(r *kgo.Record) {
			s.buffer = append(s.buffer, Message{
				Key:       r.Key,
				Value:     r.Value,
				Headers:   r.Headers,
				Timestamp: r.Timestamp,
				Topic:     r.Topic,
			})
		})
	}

	msg := s.buffer[0]
	s.buffer = s.buffer[1:]
	return msg, nil
}

var _ pipetest.Sink[Message] = (*kafkaSink)(nil)
var _ pipetest.Source[Message] = (*kafkaSource)(nil)
