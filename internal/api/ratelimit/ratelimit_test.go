package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFrozenStore(start time.Time) (*MemoryStore, *time.Time) {
	current := start
	store := NewMemoryStore()
	store.now = func() time.Time { return current }
	return store, &current
}

func TestMemoryStore_CountsWithinWindow(t *testing.T) {
	store, _ := newFrozenStore(time.Unix(1_700_000_000, 0))
	defer store.Close()

	ctx := context.Background()
	for i := int64(1); i <= 5; i++ {
		count, reset, err := store.Incr(ctx, "client-a", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, count)
		assert.Equal(t, time.Minute, reset)
	}
}

func TestMemoryStore_KeysAreIndependent(t *testing.T) {
	store, _ := newFrozenStore(time.Unix(1_700_000_000, 0))
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _, err := store.Incr(ctx, "client-a", time.Minute)
		require.NoError(t, err)
	}

	count, _, err := store.Incr(ctx, "client-b", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMemoryStore_WindowResets(t *testing.T) {
	store, now := newFrozenStore(time.Unix(1_700_000_000, 0))
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, _, err := store.Incr(ctx, "client-a", time.Minute)
		require.NoError(t, err)
	}

	// Move just past the window boundary; the counter must start over.
	*now = now.Add(time.Minute + time.Second)

	count, reset, err := store.Incr(ctx, "client-a", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, time.Minute, reset)
}

func TestMemoryStore_ResetShrinksWithinWindow(t *testing.T) {
	store, now := newFrozenStore(time.Unix(1_700_000_000, 0))
	defer store.Close()

	ctx := context.Background()
	_, _, err := store.Incr(ctx, "client-a", time.Minute)
	require.NoError(t, err)

	*now = now.Add(40 * time.Second)

	_, reset, err := store.Incr(ctx, "client-a", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, reset)
}

func TestMemoryStore_ConcurrentIncrements(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = store.Incr(ctx, "shared", time.Minute)
		}()
	}
	wg.Wait()

	count, _, err := store.Incr(ctx, "shared", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(51), count)
}

// Window accounting: n increments within one window always count to n.
func TestMemoryStore_Property(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("n increments count to n", prop.ForAll(
		func(n int) bool {
			store, _ := newFrozenStore(time.Unix(1_700_000_000, 0))
			defer store.Close()

			ctx := context.Background()
			var last int64
			for i := 0; i < n; i++ {
				count, _, err := store.Incr(ctx, "k", time.Hour)
				if err != nil {
					return false
				}
				last = count
			}
			return last == int64(n)
		},
		gen.IntRange(1, 200),
	))

	properties.TestingRun(t)
}

func TestLimiter_AllowsUpToLimit(t *testing.T) {
	store, _ := newFrozenStore(time.Unix(1_700_000_000, 0))
	defer store.Close()

	limiter := NewLimiter(store, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result := limiter.Allow(ctx, "client-a")
		assert.True(t, result.Allowed)
		assert.Equal(t, int64(3), result.Limit)
		assert.Equal(t, int64(3-i-1), result.Remaining)
	}

	result := limiter.Allow(ctx, "client-a")
	assert.False(t, result.Allowed)
	assert.Equal(t, int64(0), result.Remaining)
	assert.Equal(t, time.Minute, result.RetryAfter)
}

func TestLimiter_RecoversAfterWindow(t *testing.T) {
	store, now := newFrozenStore(time.Unix(1_700_000_000, 0))
	defer store.Close()

	limiter := NewLimiter(store, 1, time.Minute)
	ctx := context.Background()

	assert.True(t, limiter.Allow(ctx, "client-a").Allowed)
	assert.False(t, limiter.Allow(ctx, "client-a").Allowed)

	*now = now.Add(2 * time.Minute)

	assert.True(t, limiter.Allow(ctx, "client-a").Allowed)
}

// failingStore simulates an unreachable backend.
type failingStore struct{}

func (failingStore) Incr(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("store unreachable")
}

func (failingStore) Close() error { return nil }

// An unreachable store must not take the API down with it.
func TestLimiter_FailsOpen(t *testing.T) {
	limiter := NewLimiter(failingStore{}, 5, time.Minute)

	result := limiter.Allow(context.Background(), "client-a")
	assert.True(t, result.Allowed)
	assert.Equal(t, int64(5), result.Remaining)
}
