package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client), mr
}

func TestRedisStore_CountsWithinWindow(t *testing.T) {
	store, _ := setupRedisStore(t)

	ctx := context.Background()
	for i := int64(1); i <= 5; i++ {
		count, reset, err := store.Incr(ctx, "client-a", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, count)
		assert.True(t, reset > 0 && reset <= time.Minute, "reset %v out of range", reset)
	}
}

func TestRedisStore_KeysAreIndependent(t *testing.T) {
	store, _ := setupRedisStore(t)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _, err := store.Incr(ctx, "client-a", time.Minute)
		require.NoError(t, err)
	}

	count, _, err := store.Incr(ctx, "client-b", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRedisStore_WindowResets(t *testing.T) {
	store, mr := setupRedisStore(t)

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, _, err := store.Incr(ctx, "client-a", time.Minute)
		require.NoError(t, err)
	}

	mr.FastForward(time.Minute + time.Second)

	count, _, err := store.Incr(ctx, "client-a", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// The TTL is set once per window; later increments must not extend it.
func TestRedisStore_WindowDoesNotSlide(t *testing.T) {
	store, mr := setupRedisStore(t)

	ctx := context.Background()
	_, first, err := store.Incr(ctx, "client-a", time.Minute)
	require.NoError(t, err)

	mr.FastForward(30 * time.Second)

	_, second, err := store.Incr(ctx, "client-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, second < first, "window slid: first reset %v, second %v", first, second)
}

func TestRedisStore_UnavailableBackend(t *testing.T) {
	store, mr := setupRedisStore(t)
	mr.Close()

	_, _, err := store.Incr(context.Background(), "client-a", time.Minute)
	assert.Error(t, err)
}

func TestLimiter_WithRedisStore(t *testing.T) {
	store, _ := setupRedisStore(t)
	limiter := NewLimiter(store, 2, time.Minute)

	ctx := context.Background()
	assert.True(t, limiter.Allow(ctx, "client-a").Allowed)
	assert.True(t, limiter.Allow(ctx, "client-a").Allowed)
	assert.False(t, limiter.Allow(ctx, "client-a").Allowed)
}
