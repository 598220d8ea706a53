package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReportCache adapts the Redis client to the report projection cache
// contract. A missing key is reported as (nil, nil).
type ReportCache struct {
	client *redis.Client
}

// NewReportCache wraps the shared Redis client.
func NewReportCache(r *Redis) *ReportCache {
	if r == nil {
		return &ReportCache{}
	}
	return &ReportCache{client: r.Client}
}

func (c *ReportCache) Get(ctx context.Context, key string) ([]byte, error) {
	if c.client == nil {
		return nil, nil
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *ReportCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *ReportCache) Delete(ctx context.Context, key string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, key).Err()
}
