// Package storage provides the bronze-layer object store used by all
// ingestion jobs. Every fetch lands as one immutable JSON object; keys
// carry the run id so repeated runs never collide.
package storage

import (
	"context"
	"sort"
	"sync"
)

// Store writes raw payloads to the bronze layer.
type Store interface {
	// Put writes body at key. Objects are write-once; callers are
	// responsible for key uniqueness.
	Put(ctx context.Context, key string, body []byte) error
}

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Put stores a copy of body under key.
func (s *MemoryStore) Put(_ context.Context, key string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(body))
	copy(buf, body)
	s.objects[key] = buf
	return nil
}

// Get returns the stored object and whether it exists.
func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.objects[key]
	return body, ok
}

// Keys returns all stored keys in sorted order.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
