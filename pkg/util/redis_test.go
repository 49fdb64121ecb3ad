package util

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestDeduperAcquireOnce(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	d := NewDeduper(rdb, time.Minute, nil)
	ctx := context.Background()

	assert.True(t, d.AcquireOnce(ctx, "forward", "r1:e1"))
	assert.False(t, d.AcquireOnce(ctx, "forward", "r1:e1"))
	assert.True(t, d.AcquireOnce(ctx, "forward", "r1:e2"))
	assert.True(t, d.AcquireOnce(ctx, "other", "r1:e1"))

	mr.FastForward(2 * time.Minute)
	assert.True(t, d.AcquireOnce(ctx, "forward", "r1:e1"))

	require.NoError(t, d.Release(ctx, "forward", "r1:e1"))
	assert.True(t, d.AcquireOnce(ctx, "forward", "r1:e1"))
}

func TestDeduperFailsOpen(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	d := NewDeduper(rdb, time.Minute, nil)
	mr.Close()

	assert.True(t, d.AcquireOnce(context.Background(), "forward", "x"))
	assert.True(t, d.AcquireOnce(context.Background(), "forward", "x"))
}

func TestRetryCounter(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	rc := NewRetryCounter(rdb, time.Hour)
	ctx := context.Background()
	key := FormatRetryKey("enrich", "email_1")
	assert.Equal(t, "retry:enrich:email_1", key)

	n, err := rc.Get(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, n)

	for want := int64(1); want <= 3; want++ {
		n, err = rc.IncrementAndGet(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	assert.Equal(t, time.Hour, mr.TTL(key))

	require.NoError(t, rc.Reset(ctx, key))
	n, err = rc.Get(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, n)
}
