// Package database provides PostgreSQL connection management.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds database connection configuration. The URL comes from the
// service configuration; nothing here reads the environment.
type Config struct {
	// URL is the postgres:// connection string (required).
	URL string

	// MaxConns caps the pool size (default 10).
	MaxConns int

	// MinConns keeps idle connections warm (default 2).
	MinConns int

	// ConnMaxLifetime recycles connections (default 5m).
	ConnMaxLifetime time.Duration
}

// Connect creates a new database connection pool and verifies it with a
// ping before returning.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	minConns := cfg.MinConns
	if minConns <= 0 {
		minConns = 2
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = 5 * time.Minute
	}

	poolConfig.MaxConns = int32(maxConns) //nolint:gosec // bounded above
	poolConfig.MinConns = int32(minConns) //nolint:gosec // bounded above
	poolConfig.MaxConnLifetime = lifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
