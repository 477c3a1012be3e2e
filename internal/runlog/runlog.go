// Package runlog persists the history of ingestion runs so operators can
// answer "when did this source last land, and did it succeed" without
// digging through logs.
package runlog

import (
	"context"
	"errors"
	"time"
)

// ErrRunNotFound is returned when a run id has no recorded entry.
var ErrRunNotFound = errors.New("run not found")

// Entry is the persisted record of one ingestion run.
type Entry struct {
	RunID       string            `json:"run_id"`
	Source      string            `json:"source"`
	StatusCode  int               `json:"statusCode"`
	Message     string            `json:"message"`
	StoredFiles map[string]string `json:"stored_files,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
}

// Repository defines the interface for run history storage.
type Repository interface {
	// Record persists one run entry. Entries are append-only.
	Record(ctx context.Context, entry *Entry) error

	// Get retrieves a run by id.
	Get(ctx context.Context, runID string) (*Entry, error)

	// Latest retrieves the most recent runs for a source, newest first.
	// An empty source matches all sources.
	Latest(ctx context.Context, source string, limit int) ([]*Entry, error)
}
