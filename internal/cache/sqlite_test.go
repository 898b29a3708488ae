package cache_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazz-dev/resmon/internal/cache"
	"github.com/hazz-dev/resmon/internal/check"
)

func newSQLiteCache(t *testing.T) *cache.SQLite {
	t.Helper()
	c, err := cache.OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSQLite_RoundTrip(t *testing.T) {
	c := newSQLiteCache(t)
	ctx := context.Background()

	original := makeResult("db", check.StatusHealthy)
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

func TestSQLite_MissWhenAbsent(t *testing.T) {
	c := newSQLiteCache(t)

	_, err := c.Get(context.Background(), "unknown")
	assert.True(t, errors.Is(err, cache.ErrMiss))
}

func TestSQLite_LazyExpiry(t *testing.T) {
	c := newSQLiteCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "db", makeResult("db", check.StatusError), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := c.Get(ctx, "db")
	assert.True(t, errors.Is(err, cache.ErrMiss))

	entry, err := c.Last(ctx, "db")
	require.NoError(t, err)
	assert.Equal(t, check.StatusError, entry.Result.Status)
}

func TestSQLite_OverwriteKeepsOneRow(t *testing.T) {
	c := newSQLiteCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "db", makeResult("db", check.StatusHealthy), time.Minute))
	require.NoError(t, c.Put(ctx, "db", makeResult("db", check.StatusError), time.Minute))

	entry, err := c.Get(ctx, "db")
	require.NoError(t, err)
	assert.Equal(t, check.StatusError, entry.Result.Status)
}

func TestSQLite_Invalidate(t *testing.T) {
	c := newSQLiteCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "db", makeResult("db", check.StatusHealthy), time.Minute))
	require.NoError(t, c.Invalidate(ctx, "db"))

	_, err := c.Last(ctx, "db")
	assert.True(t, errors.Is(err, cache.ErrMiss))
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	c, err := cache.OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, "db", makeResult("db", check.StatusWarning), time.Minute))
	require.NoError(t, c.Close())

	reopened, err := cache.OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	entry, err := reopened.Get(ctx, "db")
	require.NoError(t, err)
	assert.Equal(t, check.StatusWarning, entry.Result.Status)
}

func TestSQLite_EmptyMeta(t *testing.T) {
	c := newSQLiteCache(t)
	ctx := context.Background()

	result := makeResult("db", check.StatusHealthy)
	result.Meta = nil
	require.NoError(t, c.Put(ctx, "db", result, time.Minute))

	entry, err := c.Get(ctx, "db")
	require.NoError(t, err)
	assert.Nil(t, entry.Result.Meta)
}
