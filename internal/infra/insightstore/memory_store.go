package insightstore

import (
	"context"
	"sync"
	"time"

	"github.com/seadrift/dive-insights/internal/domain/insight"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is the in-process fallback when Valkey is not configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]entry)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	item, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !item.expiresAt.IsZero() && time.Now().After(item.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	value := make([]byte, len(item.value))
	copy(value, item.value)
	return value, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	copied := make([]byte, len(value))
	copy(copied, value)
	item := entry{value: copied}
	if ttl > 0 {
		item.expiresAt = time.Now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = item
	s.mu.Unlock()
	return nil
}

var _ insight.KVStore = (*MemoryStore)(nil)
