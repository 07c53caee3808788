package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB owns the connection pool behind the snapshot store.
type DB struct {
	pool *pgxpool.Pool
}

// New opens a pool of at most maxConns connections (0 keeps the pgx default)
// and verifies the server answers.
func New(ctx context.Context, dsn string, maxConns int32) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{pool: pool}, nil
}

func (d *DB) Close() {
	d.pool.Close()
}

// Pool exposes the pool for ad-hoc queries in tools and tests.
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}

// Snapshots returns the analysis store backed by this pool.
func (d *DB) Snapshots() *SnapshotRepository {
	return NewSnapshotRepository(d.pool)
}
