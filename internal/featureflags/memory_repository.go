package featureflags

import (
	"context"
	"sync"
)

// MemoryRepository is an in-memory Repository for tests and deployments
// without a database.
type MemoryRepository struct {
	mu    sync.RWMutex
	flags map[string]*Flag
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{flags: make(map[string]*Flag)}
}

// GetFlag retrieves a single feature flag by key.
func (r *MemoryRepository) GetFlag(_ context.Context, key string) (*Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	flag, ok := r.flags[key]
	if !ok {
		return nil, ErrFlagNotFound
	}
	cp := *flag
	return &cp, nil
}

// GetAllFlags retrieves all feature flags.
func (r *MemoryRepository) GetAllFlags(_ context.Context) (map[string]*Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*Flag, len(r.flags))
	for k, f := range r.flags {
		cp := *f
		out[k] = &cp
	}
	return out, nil
}

// SetFlag creates or updates a feature flag.
func (r *MemoryRepository) SetFlag(_ context.Context, flag *Flag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *flag
	r.flags[flag.Key] = &cp
	return nil
}

// DeleteFlag removes a feature flag by key.
func (r *MemoryRepository) DeleteFlag(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.flags, key)
	return nil
}

var _ Repository = (*MemoryRepository)(nil)
