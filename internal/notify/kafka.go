package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"
)

// OrderEvent is the record published to the order event topic when an
// intake succeeds. Downstream consumers (fulfillment, analytics) own
// everything past this point.
type OrderEvent struct {
	OrderID string  `json:"order_id"`
	ShopID  string  `json:"shop_id"`
	ChatID  int64   `json:"chat_id"`
	Total   float64 `json:"total"`
	TS      int64   `json:"ts"`
}

// EventPublisher publishes order events to an external feed.
type EventPublisher interface {
	PublishOrder(ctx context.Context, event OrderEvent) error
}

// KafkaPublisher writes order events to a Kafka topic, keyed by shop so one
// shop's orders stay ordered within a partition.
type KafkaPublisher struct {
	w *kafka.Writer
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
// Brokers is a comma-separated list.
func NewKafkaPublisher(brokers, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:     kafka.TCP(strings.Split(brokers, ",")...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

// PublishOrder writes one event.
func (p *KafkaPublisher) PublishOrder(ctx context.Context, event OrderEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}
	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ShopID),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to publish order event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
