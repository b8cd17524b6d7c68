package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/action-feed-service/internal/models"
)

// NotificationEvent is published for every approved notification
type NotificationEvent struct {
	EventType string                  `json:"event_type"`
	Source    string                  `json:"source"`
	Timestamp string                  `json:"timestamp"`
	Data      models.NotificationSend `json:"data"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes feed events to Kafka
type Producer struct {
	writer messageWriter
}

// NewProducer creates a new Kafka producer for a topic
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{writer: writer}
}

// PublishNotification publishes an approved send keyed by user so one user's
// sends stay ordered on a partition.
func (p *Producer) PublishNotification(ctx context.Context, send models.NotificationSend) error {
	event := NotificationEvent{
		EventType: "NOTIFICATION_APPROVED",
		Source:    "action-feed-service",
		Timestamp: send.SentAt.UTC().Format(time.RFC3339),
		Data:      send,
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(send.UserID), Value: value}); err != nil {
		return fmt.Errorf("failed to publish notification %s: %w", send.ID, err)
	}
	return nil
}

// Close flushes and closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
