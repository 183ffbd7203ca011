package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sns-crosspost/domain/dto"
	"sns-crosspost/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

const (
	listingKeyPrefix = "posts:listing"
	listingTTL       = 30 * time.Second
)

// PostCache caches listing pages in Redis. All methods tolerate a nil client,
// degrading to a pass-through. Cache failures are logged and ignored; the
// store remains the source of truth.
type PostCache struct {
	client *redis.Client
}

func NewPostCache(client *redis.Client) *PostCache { return &PostCache{client: client} }

func (c *PostCache) GetListing(ctx context.Context, page, perPage int) (*dto.PostListResponse, bool) {
	if c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, listingKey(page, perPage)).Bytes()
	if err != nil {
		return nil, false
	}
	var res dto.PostListResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, false
	}
	return &res, true
}

func (c *PostCache) SetListing(ctx context.Context, page, perPage int, res *dto.PostListResponse) {
	if c.client == nil || res == nil {
		return
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, listingKey(page, perPage), raw, listingTTL).Err(); err != nil {
		logger.GetLogger().WithField("error", err).Warn("failed caching post listing")
	}
}

// Invalidate drops every cached listing page. Called after create and delete.
func (c *PostCache) Invalidate(ctx context.Context) {
	if c.client == nil {
		return
	}
	iter := c.client.Scan(ctx, 0, listingKeyPrefix+":*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.GetLogger().WithField("error", err).Warn("failed invalidating listing cache key")
		}
	}
	if err := iter.Err(); err != nil {
		logger.GetLogger().WithField("error", err).Warn("failed scanning listing cache keys")
	}
}

func listingKey(page, perPage int) string {
	return fmt.Sprintf("%s:%d:%d", listingKeyPrefix, page, perPage)
}
