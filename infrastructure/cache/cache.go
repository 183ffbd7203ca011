package cache

import (
	"context"

	"sns-crosspost/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

// NewCache connects to Redis. A nil client is returned on failure so callers
// can continue without caching.
func NewCache(ctx context.Context, addr, username, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - continuing without listing cache")
		return nil, err
	}
	return client, nil
}
