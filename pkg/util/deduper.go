package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mailfilter/pkg/logger"
)

type Deduper struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb redis.Cmdable, ttl time.Duration, log *zap.Logger) *Deduper {
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.OrNop(log),
	}
}

// FormatDedupKey formats the lock key for a handler and subject.
func FormatDedupKey(handler, id string) string {
	return fmt.Sprintf("dedup:%s:%s", handler, id)
}

// AcquireOnce returns true the first time handler sees id within the TTL and
// false for duplicates.
func (d *Deduper) AcquireOnce(ctx context.Context, handler, id string) bool {
	key := FormatDedupKey(handler, id)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		// Redis 挂了？为了安全：当 redis 不可用时，不阻止处理，返回 true
		d.logger.Warn("Redis dedup check failed, allowing processing",
			zap.String("handler", handler),
			zap.String("id", id),
			zap.Error(err),
		)
		return true
	}

	if !ok {
		d.logger.Info("Skipped duplicated event",
			zap.String("handler", handler),
			zap.String("id", id),
			zap.String("dedup_key", key),
		)
	}
	return ok
}

// Release drops the lock so the next AcquireOnce succeeds again.
func (d *Deduper) Release(ctx context.Context, handler, id string) error {
	return d.rdb.Del(ctx, FormatDedupKey(handler, id)).Err()
}
