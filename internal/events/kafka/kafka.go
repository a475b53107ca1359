// Package kafka forwards published domain events to a Kafka topic.
//
// Delivery is best-effort, matching the bus contract: produce failures are
// logged and never reach the publisher. Consumers needing stronger guarantees
// must not rely on this sink.
package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"conduit/internal/events"
)

// Bus decorates a Publisher so every event is also produced to Kafka.
type Bus struct {
	inner  events.Publisher
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewBus connects to the given brokers and wraps inner.
func NewBus(inner events.Publisher, brokers []string, topic string, logger *slog.Logger) (*Bus, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, err
	}
	return &Bus{inner: inner, client: client, topic: topic, logger: logger}, nil
}

func (b *Bus) Publish(ctx context.Context, evt events.Event) {
	b.produce(ctx, evt)
	b.inner.Publish(ctx, evt)
}

func (b *Bus) PublishAsync(ctx context.Context, evt events.Event) {
	b.produce(ctx, evt)
	b.inner.PublishAsync(ctx, evt)
}

func (b *Bus) produce(ctx context.Context, evt events.Event) {
	value, err := json.Marshal(evt)
	if err != nil {
		b.logger.ErrorContext(ctx, "could not serialize event for kafka", "event", evt.EventName(), "error", err)
		return
	}
	record := &kgo.Record{
		Topic: b.topic,
		Key:   []byte(evt.EventName()),
		Value: value,
	}
	b.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			b.logger.Error("kafka produce failed", "event", evt.EventName(), "error", err)
		}
	})
}

// Close flushes buffered records and releases the client.
func (b *Bus) Close(ctx context.Context) error {
	err := b.client.Flush(ctx)
	b.client.Close()
	return err
}
