package store

import (
	"context"
	"sync"

	"github.com/yuxishi/aws-quota-compare/internal/model"
)

// MemoryStore implements Store with an in-process map. Primarily for tests
// and ephemeral runs; entries do not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]model.CacheEntry
}

func NewMemory() *MemoryStore {
	return &MemoryStore{entries: make(map[string]model.CacheEntry)}
}

func (s *MemoryStore) Get(ctx context.Context, key model.CacheKey) (*model.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key.String()]
	if !ok {
		return nil, ErrNotFound
	}
	// copy the record slice so callers cannot mutate the stored entry
	cp := entry
	cp.Catalog.Records = append([]model.QuotaRecord(nil), entry.Catalog.Records...)
	return &cp, nil
}

func (s *MemoryStore) Put(ctx context.Context, key model.CacheKey, entry model.CacheEntry) error {
	cp := entry
	cp.Catalog.Records = append([]model.QuotaRecord(nil), entry.Catalog.Records...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key.String()] = cp
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key model.CacheKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key.String())
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]model.CacheEntry)
	return nil
}

func (s *MemoryStore) Keys(ctx context.Context) ([]model.CacheKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]model.CacheKey, 0, len(s.entries))
	for k := range s.entries {
		key, err := model.ParseCacheKey(k)
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}
