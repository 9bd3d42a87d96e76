package queue

import (
	"context"
	"strconv"
)

type eventProducer interface {
	PublishEvent(ctx context.Context, eventType, key string, data map[string]interface{}) error
	Close() error
}

type KafkaPublisher struct {
	producer eventProducer
}

func NewKafkaPublisher(producer eventProducer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

// Publish keys the event by request id.
func (p *KafkaPublisher) Publish(ctx context.Context, task Task) error {
	return p.producer.PublishEvent(ctx, EventParserRequestCreated, strconv.FormatInt(task.ParserRequestID, 10), map[string]interface{}{
		"parser_request_id": task.ParserRequestID,
		"parser_type":       task.ParserType,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
