// Package queue hands newly created parser requests to the workers that
// process them. Three transports are supported: Kafka, Redis streams and SQS.
package queue

import (
	"context"
	"fmt"

	"github.com/vk-parser/platform/pkg/common/config"
	"github.com/vk-parser/platform/pkg/common/database"
	"github.com/vk-parser/platform/pkg/common/kafka"
)

const (
	EventParserRequestCreated = "parser_request.created"
	eventSource               = "vk-parser-api"
)

// Task references a persisted parser request. Workers load the rest from
// the store.
type Task struct {
	ParserRequestID int64  `json:"parser_request_id"`
	ParserType      string `json:"parser_type"`
}

type Publisher interface {
	Publish(ctx context.Context, task Task) error
	Close() error
}

// New builds the publisher selected by cfg.QueueBackend.
func New(ctx context.Context, cfg *config.Config) (Publisher, error) {
	switch cfg.QueueBackend {
	case config.QueueBackendKafka, "":
		return NewKafkaPublisher(kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, eventSource)), nil
	case config.QueueBackendRedis:
		return NewRedisPublisher(database.GetRedis(cfg), cfg.RedisStream), nil
	case config.QueueBackendSQS:
		return NewSQSPublisherFromConfig(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
	}
	return nil, fmt.Errorf("unknown queue backend %q", cfg.QueueBackend)
}
