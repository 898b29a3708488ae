package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazz-dev/resmon/internal/cache"
	"github.com/hazz-dev/resmon/internal/check"
)

func newRedisCache(t *testing.T) (*cache.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewRedisWithClient(client), mr
}

func TestRedis_RoundTrip(t *testing.T) {
	c, _ := newRedisCache(t)
	ctx := context.Background()

	original := makeResult("db", check.StatusWarning)
	require.NoError(t, c.Put(ctx, "db", original, time.Minute))

	entry, err := c.Get(ctx, "db")
	require.NoError(t, err)
	assert.Equal(t, original.ResourceName, entry.Result.ResourceName)
	assert.Equal(t, original.Status, entry.Result.Status)
	assert.Equal(t, original.Message, entry.Result.Message)
	assert.Equal(t, original.Duration, entry.Result.Duration)
	assert.True(t, original.CheckedAt.Equal(entry.Result.CheckedAt))
	assert.Equal(t, original.Meta, entry.Result.Meta)
}

func TestRedis_MissWhenAbsent(t *testing.T) {
	c, _ := newRedisCache(t)

	_, err := c.Get(context.Background(), "unknown")
	assert.True(t, errors.Is(err, cache.ErrMiss))
}

func TestRedis_LazyExpiry(t *testing.T) {
	c, _ := newRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "db", makeResult("db", check.StatusError), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := c.Get(ctx, "db")
	assert.True(t, errors.Is(err, cache.ErrMiss))

	// The key outlives its logical TTL so transition detection still works.
	entry, err := c.Last(ctx, "db")
	require.NoError(t, err)
	assert.Equal(t, check.StatusError, entry.Result.Status)
}

func TestRedis_Invalidate(t *testing.T) {
	c, _ := newRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "db", makeResult("db", check.StatusHealthy), time.Minute))
	require.NoError(t, c.Invalidate(ctx, "db"))

	_, err := c.Last(ctx, "db")
	assert.True(t, errors.Is(err, cache.ErrMiss))
}

func TestRedis_RetentionReclaimsAbandonedKeys(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "db", makeResult("db", check.StatusHealthy), time.Second))

	// Well past the retention bound the key itself is gone.
	mr.FastForward(48 * time.Hour)
	_, err := c.Last(ctx, "db")
	assert.True(t, errors.Is(err, cache.ErrMiss))
}

func TestNewRedis_ConnectionRefused(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := cache.NewRedis(cache.RedisOptions{Addr: addr})
	assert.Error(t, err)
}
