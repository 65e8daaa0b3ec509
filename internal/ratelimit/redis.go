package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "portfolio:contact:ratelimit:"

// RedisStore shares entries between instances. Each key is a hash with the
// window start (unix ms) and count, expiring after ttl of inactivity.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// DialRedis parses a redis:// URL and pings the server.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (store *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	fields, err := store.client.HGetAll(ctx, store.prefix+key).Result()
	if err != nil {
		return Entry{}, false, err
	}
	if len(fields) == 0 {
		return Entry{}, false, nil
	}

	startMS, err := strconv.ParseInt(fields["start"], 10, 64)
	if err != nil {
		return Entry{}, false, fmt.Errorf("corrupt window start for %q: %w", key, err)
	}
	count, err := strconv.Atoi(fields["count"])
	if err != nil {
		return Entry{}, false, fmt.Errorf("corrupt count for %q: %w", key, err)
	}

	return Entry{WindowStart: time.UnixMilli(startMS), Count: count}, true, nil
}

func (store *RedisStore) Set(ctx context.Context, key string, entry Entry) error {
	redisKey := store.prefix + key

	pipe := store.client.TxPipeline()
	pipe.HSet(ctx, redisKey, "start", entry.WindowStart.UnixMilli(), "count", entry.Count)
	if store.ttl > 0 {
		pipe.PExpire(ctx, redisKey, store.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}
