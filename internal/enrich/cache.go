package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores enrichment results per email.
type Cache interface {
	Get(ctx context.Context, kind, emailID string) (string, bool, error)
	Set(ctx context.Context, kind, emailID, value string) error
}

type RedisCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisCache(rdb redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func cacheKey(kind, emailID string) string {
	return fmt.Sprintf("enrich:%s:%s", kind, emailID)
}

func (c *RedisCache) Get(ctx context.Context, kind, emailID string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, cacheKey(kind, emailID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *RedisCache) Set(ctx context.Context, kind, emailID, value string) error {
	return c.rdb.Set(ctx, cacheKey(kind, emailID), value, c.ttl).Err()
}

type nopCache struct{}

func (nopCache) Get(context.Context, string, string) (string, bool, error) { return "", false, nil }
func (nopCache) Set(context.Context, string, string, string) error         { return nil }
