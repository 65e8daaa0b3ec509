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

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, "test:", ttl), server
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, server := newRedisStore(t, 20*time.Minute)
	ctx := context.Background()

	_, found, err := store.Get(ctx, "198.51.100.4")
	require.NoError(t, err)
	assert.False(t, found)

	start := time.UnixMilli(time.Now().UnixMilli())
	require.NoError(t, store.Set(ctx, "198.51.100.4", Entry{WindowStart: start, Count: 3}))

	entry, found, err := store.Get(ctx, "198.51.100.4")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, entry.WindowStart.Equal(start))
	assert.Equal(t, 3, entry.Count)

	assert.True(t, server.Exists("test:198.51.100.4"))
	assert.Equal(t, 20*time.Minute, server.TTL("test:198.51.100.4"))
}

func TestRedisStoreExpiresIdleKeys(t *testing.T) {
	store, server := newRedisStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", Entry{WindowStart: time.Now(), Count: 1}))
	server.FastForward(2 * time.Minute)

	_, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStoreCorruptEntry(t *testing.T) {
	store, server := newRedisStore(t, time.Minute)
	server.HSet("test:k", "start", "not-a-number", "count", "1")

	_, _, err := store.Get(context.Background(), "k")
	assert.Error(t, err)
}

func TestLimiterWithRedisStore(t *testing.T) {
	store, _ := newRedisStore(t, 20*time.Minute)
	clock := newFakeClock()
	limiter := New(2, 10*time.Minute, store, WithClock(clock.Now))
	ctx := context.Background()

	for range 2 {
		allowed, err := limiter.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := limiter.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.False(t, allowed)

	clock.Advance(11 * time.Minute)
	allowed, err = limiter.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.True(t, allowed)
}
