package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	raw, err := New(Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return raw.(*Cache)
}

func TestSetGetExistsDelete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", []byte("value"), 0))

	val, found, err := c.Get(ctx, "key")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("value"), val)

	exists, err := c.Exists(ctx, "key")
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, c.Delete(ctx, "key"))

	_, found, err = c.Get(ctx, "key")
	require.NoError(t, err)
	require.False(t, found)
}

func TestIncrementDecrement(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	val, err := c.Increment(ctx, "counter", 4)
	require.NoError(t, err)
	require.Equal(t, int64(4), val)

	val, err = c.Decrement(ctx, "counter", 2)
	require.NoError(t, err)
	require.Equal(t, int64(2), val)
}

func TestFlush(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "flush-me", []byte("x"), 0))
	require.NoError(t, c.Flush(ctx))

	exists, err := c.Exists(ctx, "flush-me")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestTTLExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	raw, err := New(Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })

	require.NoError(t, raw.Set(context.Background(), "short-lived", []byte("x"), time.Second))
	mr.FastForward(2 * time.Second)

	_, found, err := raw.Get(context.Background(), "short-lived")
	require.NoError(t, err)
	require.False(t, found)
}
