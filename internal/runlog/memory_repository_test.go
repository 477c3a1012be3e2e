package runlog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entryAt(runID, source string, started time.Time) *Entry {
	return &Entry{
		RunID:      runID,
		Source:     source,
		StatusCode: 200,
		Message:    "stored",
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
	}
}

func TestMemoryRepositoryRecordAndGet(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	started := time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Record(ctx, entryAt("run-1", "openaq", started)))

	got, err := repo.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "openaq", got.Source)
	assert.Equal(t, 200, got.StatusCode)

	_, err = repo.Get(ctx, "run-unknown")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestMemoryRepositoryLatest(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	base := time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Record(ctx, entryAt("run-1", "openaq", base)))
	require.NoError(t, repo.Record(ctx, entryAt("run-2", "ecdc", base.Add(time.Hour))))
	require.NoError(t, repo.Record(ctx, entryAt("run-3", "openaq", base.Add(2*time.Hour))))

	latest, err := repo.Latest(ctx, "openaq", 10)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "run-3", latest[0].RunID)
	assert.Equal(t, "run-1", latest[1].RunID)

	all, err := repo.Latest(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "run-3", all[0].RunID)
}
