package store

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"event-validation-service/internal/schema"
)

// MemorySource keeps schema documents in process memory.
type MemorySource struct {
	mu   sync.RWMutex
	docs map[schema.Key][]byte
}

var _ Registry = (*MemorySource)(nil)

func NewMemorySource() *MemorySource {
	return &MemorySource{docs: make(map[schema.Key][]byte)}
}

func (s *MemorySource) Fetch(_ context.Context, key schema.Key) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.docs[key]
	if !ok {
		return nil, fmt.Errorf("schema %s: %w", key, schema.ErrSchemaNotFound)
	}
	return raw, nil
}

// Put registers raw for key. Re-registering identical bytes is a no-op.
func (s *MemorySource) Put(_ context.Context, key schema.Key, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.docs[key]; ok {
		if bytes.Equal(existing, raw) {
			return nil
		}
		return fmt.Errorf("schema %s: %w", key, ErrSchemaExists)
	}
	s.docs[key] = append([]byte(nil), raw...)
	return nil
}

func (s *MemorySource) List(_ context.Context) ([]schema.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]schema.Key, 0, len(s.docs))
	for k := range s.docs {
		keys = append(keys, k)
	}
	SortKeys(keys)
	return keys, nil
}

// SortKeys orders keys by name, then version.
func SortKeys(keys []schema.Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name != keys[j].Name {
			return keys[i].Name < keys[j].Name
		}
		return keys[i].Version < keys[j].Version
	})
}
