package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vk-parser/platform/pkg/common/logger"
)

// RedisPublisher appends tasks to a Redis stream. The client is shared and
// closed by database.CloseRedis, not by Close.
type RedisPublisher struct {
	client *redis.Client
	stream string
}

func NewRedisPublisher(client *redis.Client, stream string) *RedisPublisher {
	return &RedisPublisher{client: client, stream: stream}
}

func (p *RedisPublisher) Publish(ctx context.Context, task Task) error {
	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: []interface{}{
			"event", EventParserRequestCreated,
			"parser_request_id", task.ParserRequestID,
			"parser_type", task.ParserType,
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("redis xadd failure on %s: %w", p.stream, err)
	}

	logger.Log.WithFields(map[string]interface{}{
		"parser_request_id": task.ParserRequestID,
		"stream":            p.stream,
		"entry_id":          id,
	}).Debug("Task appended to stream")
	return nil
}

func (p *RedisPublisher) Close() error {
	return nil
}
