package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vk-parser/platform/pkg/common/config"
	"github.com/vk-parser/platform/pkg/common/logger"
)

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

func redisOptions(cfg *config.Config) *redis.Options {
	return &redis.Options{
		Addr:       cfg.RedisAddr(),
		Password:   cfg.RedisPassword,
		DB:         cfg.RedisDB,
		ClientName: "vk-parser-queue",
	}
}

// GetRedis returns the shared client the Redis queue backend appends tasks
// through. A failed first ping is logged, not fatal; /ready reports it.
func GetRedis(cfg *config.Config) *redis.Client {
	redisOnce.Do(func() {
		redisClient = redis.NewClient(redisOptions(cfg))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		fields := map[string]interface{}{
			"addr":   cfg.RedisAddr(),
			"db":     cfg.RedisDB,
			"stream": cfg.RedisStream,
		}
		if err := CheckTaskStream(ctx, redisClient, cfg.RedisStream); err != nil {
			logger.Log.WithError(err).WithFields(fields).Error("Task stream unavailable")
		} else {
			logger.Log.WithFields(fields).Info("Connected to task stream")
		}
	})

	return redisClient
}

// CheckTaskStream pings Redis and reads the stream length. A stream that
// does not exist yet has length zero and is fine.
func CheckTaskStream(ctx context.Context, client *redis.Client, stream string) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	backlog, err := client.XLen(ctx, stream).Result()
	if err != nil {
		return fmt.Errorf("reading length of stream %s: %w", stream, err)
	}
	logger.Log.WithFields(map[string]interface{}{
		"stream":  stream,
		"backlog": backlog,
	}).Debug("Task stream checked")
	return nil
}

func CloseRedis() error {
	if redisClient != nil {
		return redisClient.Close()
	}
	return nil
}
