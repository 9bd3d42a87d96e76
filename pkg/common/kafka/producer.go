package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/vk-parser/platform/pkg/common/logger"
	"github.com/vk-parser/platform/pkg/common/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
	topic  string
	source string
	now    func() time.Time
}

// NewProducer writes synchronously to topic, one acknowledged message at a
// time. source is stamped on every event envelope.
func NewProducer(brokers []string, topic, source string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}

	return newProducer(writer, topic, source)
}

func newProducer(writer messageWriter, topic, source string) *Producer {
	return &Producer{
		writer: writer,
		topic:  topic,
		source: source,
		now:    time.Now,
	}
}

// PublishEvent wraps data in an Event envelope keyed by key. Messages with
// the same key land on the same partition.
func (p *Producer) PublishEvent(ctx context.Context, eventType, key string, data map[string]interface{}) error {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    p.source,
		Data:      data,
		Timestamp: p.now().UTC(),
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if key == "" {
		key = event.ID
	}
	message := kafka.Message{
		Key:   []byte(key),
		Value: eventBytes,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
			{Key: "source", Value: []byte(p.source)},
		},
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"event_id":   event.ID,
			"event_type": eventType,
			"topic":      p.topic,
		}).Error("Failed to publish event")
		return fmt.Errorf("writing %s event to %s: %w", eventType, p.topic, err)
	}

	logger.Log.WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": eventType,
		"topic":      p.topic,
	}).Debug("Event published")

	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
