package redis

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"citizen-auth/internal/client"
	"citizen-auth/internal/util"
)

const rateLimitPrefix = "rate:"

// RateLimitCache is a fixed-window request counter keyed by caller identity.
// Redis failures are treated as allow, so a cache outage degrades to no rate
// limiting instead of a full login outage.
type RateLimitCache struct {
	redis  *client.RedisClient
	logger *zap.Logger
}

func NewRateLimitCache(redis *client.RedisClient, logger *zap.Logger) *RateLimitCache {
	return &RateLimitCache{
		redis:  redis,
		logger: logger,
	}
}

// Allow counts a request against the key's window and reports whether it is
// within the limit.
func (c *RateLimitCache) Allow(ctx context.Context, key string, limit int64, window time.Duration) bool {
	count, err := c.redis.IncrWithExpire(ctx, rateLimitPrefix+key, window)
	if err != nil {
		util.Warn("Rate limit check failed, allowing request",
			zap.String("key", key),
			zap.Error(err))
		return true
	}
	return count <= limit
}

// Remaining reports how many requests are left in the current window.
func (c *RateLimitCache) Remaining(ctx context.Context, key string, limit int64) int64 {
	val, err := c.redis.Get(ctx, rateLimitPrefix+key)
	if err != nil {
		return limit
	}
	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return limit
	}
	if count >= limit {
		return 0
	}
	return limit - count
}
