// Package kafka publishes passage indexing events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/bookbinderco/stacks/pkg/eventstream"
)

// Publisher writes PassageIndexedEvent payloads to a Kafka topic as JSON.
// Events are keyed by passage source so all events for one document land on
// the same partition.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a Kafka-backed eventstream publisher.
// Brokers is a comma-separated list of broker addresses.
func NewPublisher(brokers string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(strings.Split(brokers, ",")...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// PublishIndexed serializes the event to JSON and writes it to the topic.
func (p *Publisher) PublishIndexed(ctx context.Context, event *eventstream.PassageIndexedEvent) error {
	if event == nil {
		return eventstream.ErrNilIndexEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling passage event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Passage.Source),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing passage event: %w", err)
	}

	return nil
}

// Close flushes pending messages and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
