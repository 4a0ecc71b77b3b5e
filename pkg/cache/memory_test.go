package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(DefaultOptions())
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	val, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)
}

func TestMemoryCache_GetMissing(t *testing.T) {
	c := NewMemoryCache(DefaultOptions())
	defer c.Close()

	_, err := c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(DefaultOptions())
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryCache_Eviction(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxEntries = 2
	c := NewMemoryCache(opts)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), time.Minute))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, stats.TotalKeys, int64(2))
}

func TestMemoryCache_DeleteByPattern(t *testing.T) {
	c := NewMemoryCache(DefaultOptions())
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "matrix:abc", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "matrix:def", []byte("2"), time.Minute))
	require.NoError(t, c.Set(ctx, "other:xyz", []byte("3"), time.Minute))

	n, err := c.DeleteByPattern(ctx, "matrix:*")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = c.Get(ctx, "other:xyz")
	require.NoError(t, err)
}

func TestMemoryCache_MSetMGet(t *testing.T) {
	c := NewMemoryCache(DefaultOptions())
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.MSet(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, time.Minute))

	got, err := c.MGet(ctx, []string{"a", "b", "missing"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
