package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Entry is the fixed-window state kept per client key.
type Entry struct {
	WindowStart time.Time
	Count       int
}

// Store persists one Entry per key. Implementations may expire idle keys.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry) error
}

// Limiter is a fixed-window counter: a window opens on a client's first
// request and resets wholesale once it has elapsed, so a client can get up to
// twice the limit across a window boundary.
type Limiter struct {
	limit  int
	window time.Duration
	store  Store
	now    func() time.Time

	mu sync.Mutex
}

type Option func(*Limiter)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(limiter *Limiter) {
		limiter.now = now
	}
}

func New(limit int, window time.Duration, store Store, options ...Option) *Limiter {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if store == nil {
		store = NewMemoryStore()
	}

	limiter := &Limiter{
		limit:  limit,
		window: window,
		store:  store,
		now:    time.Now,
	}
	for _, option := range options {
		option(limiter)
	}
	return limiter
}

func (limiter *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	now := limiter.now()

	// Serializes read-modify-write within this process only. Multiple
	// instances sharing a RedisStore can still under-count by a request.
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	entry, found, err := limiter.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read rate limit entry: %w", err)
	}

	if !found || now.Sub(entry.WindowStart) > limiter.window {
		if err := limiter.store.Set(ctx, key, Entry{WindowStart: now, Count: 1}); err != nil {
			return false, fmt.Errorf("open rate limit window: %w", err)
		}
		return true, nil
	}

	if entry.Count >= limiter.limit {
		return false, nil
	}

	entry.Count++
	if err := limiter.store.Set(ctx, key, entry); err != nil {
		return false, fmt.Errorf("update rate limit entry: %w", err)
	}
	return true, nil
}

func (limiter *Limiter) Limit() (int, time.Duration) {
	return limiter.limit, limiter.window
}
