package runlog

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository is an in-memory Repository for tests and deployments
// without a database.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []*Entry
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Record persists one run entry.
func (r *MemoryRepository) Record(_ context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

// Get retrieves a run by id.
func (r *MemoryRepository) Get(_ context.Context, runID string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.RunID == runID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, ErrRunNotFound
}

// Latest retrieves the most recent runs for a source, newest first.
func (r *MemoryRepository) Latest(_ context.Context, source string, limit int) ([]*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Entry
	for _, e := range r.entries {
		if source == "" || e.Source == source {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ Repository = (*MemoryRepository)(nil)
