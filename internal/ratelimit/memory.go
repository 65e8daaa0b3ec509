package ratelimit

import (
	"context"
	"sync"
)

// MemoryStore keeps entries for the life of the process. Keys are never
// purged; a restart reclaims them.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (store *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	entry, found := store.entries[key]
	return entry, found, nil
}

func (store *MemoryStore) Set(_ context.Context, key string, entry Entry) error {
	store.mu.Lock()
	store.entries[key] = entry
	store.mu.Unlock()
	return nil
}
