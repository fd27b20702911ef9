package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RevocationCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRevocationCache(rdb), mr
}

func TestRevocationCache(t *testing.T) {
	ctx := context.Background()

	t.Run("registered token is valid", func(t *testing.T) {
		c, _ := newTestCache(t)

		require.NoError(t, c.Register(ctx, "user-1", "tok-1", time.Minute))
		require.True(t, c.IsTokenValid(ctx, "user-1", "tok-1"))
	})

	t.Run("unregistered token is invalid", func(t *testing.T) {
		c, _ := newTestCache(t)

		require.False(t, c.IsTokenValid(ctx, "user-1", "never-issued"))
	})

	t.Run("token expires with its ttl", func(t *testing.T) {
		c, mr := newTestCache(t)

		require.NoError(t, c.Register(ctx, "user-1", "tok-1", time.Minute))
		mr.FastForward(2 * time.Minute)

		require.False(t, c.IsTokenValid(ctx, "user-1", "tok-1"))
	})

	t.Run("invalidate revokes one token only", func(t *testing.T) {
		c, _ := newTestCache(t)

		require.NoError(t, c.Register(ctx, "user-1", "tok-1", time.Minute))
		require.NoError(t, c.Register(ctx, "user-1", "tok-2", time.Minute))

		require.NoError(t, c.Invalidate(ctx, "user-1", "tok-1"))

		require.False(t, c.IsTokenValid(ctx, "user-1", "tok-1"))
		require.True(t, c.IsTokenValid(ctx, "user-1", "tok-2"))
	})

	t.Run("invalidate all revokes every token of the principal", func(t *testing.T) {
		c, _ := newTestCache(t)

		require.NoError(t, c.Register(ctx, "user-1", "tok-1", time.Minute))
		require.NoError(t, c.Register(ctx, "user-1", "tok-2", time.Minute))
		require.NoError(t, c.Register(ctx, "user-2", "tok-3", time.Minute))

		require.NoError(t, c.InvalidateAll(ctx, "user-1"))

		require.False(t, c.IsTokenValid(ctx, "user-1", "tok-1"))
		require.False(t, c.IsTokenValid(ctx, "user-1", "tok-2"))
		require.True(t, c.IsTokenValid(ctx, "user-2", "tok-3"))
	})

	t.Run("lookup fails closed when redis is down", func(t *testing.T) {
		c, mr := newTestCache(t)

		require.NoError(t, c.Register(ctx, "user-1", "tok-1", time.Minute))
		mr.Close()

		require.False(t, c.IsTokenValid(ctx, "user-1", "tok-1"))
	})

	t.Run("register fails when redis is down", func(t *testing.T) {
		c, mr := newTestCache(t)
		mr.Close()

		require.Error(t, c.Register(ctx, "user-1", "tok-1", time.Minute))
	})
}
