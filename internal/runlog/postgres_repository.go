package runlog

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL run history repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Record persists one run entry.
func (r *PostgresRepository) Record(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO ingestion_runs (run_id, source, status_code, message, stored_files, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	storedJSON, err := json.Marshal(entry.StoredFiles)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, query,
		entry.RunID,
		entry.Source,
		entry.StatusCode,
		entry.Message,
		storedJSON,
		entry.StartedAt,
		entry.FinishedAt,
	)
	return err
}

// Get retrieves a run by id.
func (r *PostgresRepository) Get(ctx context.Context, runID string) (*Entry, error) {
	query := `
		SELECT run_id, source, status_code, message, stored_files, started_at, finished_at
		FROM ingestion_runs
		WHERE run_id = $1
	`

	entry, err := scanEntry(r.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return entry, nil
}

// Latest retrieves the most recent runs for a source, newest first.
func (r *PostgresRepository) Latest(ctx context.Context, source string, limit int) ([]*Entry, error) {
	query := `
		SELECT run_id, source, status_code, message, stored_files, started_at, finished_at
		FROM ingestion_runs
		WHERE ($1 = '' OR source = $1)
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, source, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var (
		entry      Entry
		storedJSON []byte
	)
	err := row.Scan(
		&entry.RunID,
		&entry.Source,
		&entry.StatusCode,
		&entry.Message,
		&storedJSON,
		&entry.StartedAt,
		&entry.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(storedJSON) > 0 {
		if err := json.Unmarshal(storedJSON, &entry.StoredFiles); err != nil {
			return nil, err
		}
	}
	return &entry, nil
}

var _ Repository = (*PostgresRepository)(nil)
