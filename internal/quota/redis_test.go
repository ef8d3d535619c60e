package quota

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestChecker(t *testing.T, opts ...Option) *Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, opts...)
}

func TestCheckAllowsFirstVisitAndRepeatVisit(t *testing.T) {
	r := newTestChecker(t, WithQuotaLimit(10), WithWindow(time.Hour))
	ctx := context.Background()

	allowed, err := r.Check(ctx, "alice", "doc-1")
	require.NoError(t, err)
	require.True(t, allowed)

	// revisiting the same doc doesn't consume additional quota
	allowed, err = r.Check(ctx, "alice", "doc-1")
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestCheckRejectsOverQuota(t *testing.T) {
	r := newTestChecker(t, WithQuotaLimit(2), WithWindow(time.Hour))
	ctx := context.Background()

	for _, doc := range []string{"doc-1", "doc-2"} {
		allowed, err := r.Check(ctx, "bob", doc)
		require.NoError(t, err)
		require.True(t, allowed)
	}

	allowed, err := r.Check(ctx, "bob", "doc-3")
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestCheckIsolatesUsers(t *testing.T) {
	r := newTestChecker(t, WithQuotaLimit(1), WithWindow(time.Hour))
	ctx := context.Background()

	allowed, err := r.Check(ctx, "alice", "doc-1")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = r.Check(ctx, "carol", "doc-1")
	require.NoError(t, err)
	require.True(t, allowed)
}
