package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/brahimakil/chibox-cms-sub000/internal/shared/config"
	"github.com/redis/go-redis/v9"
)

const pingTimeout = 3 * time.Second

// NewRedisClient connects to redis and verifies the connection. The caller
// decides whether a failure is fatal; derived-status caching and idempotency
// replay both degrade gracefully without redis.
func NewRedisClient(cfg *config.RedisConfig) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// Close releases the client's connection pool.
func Close(client redis.UniversalClient) error {
	return client.Close()
}
