package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/sc2pathlib/internal/analysis"
	"github.com/udisondev/sc2pathlib/internal/choke"
	"github.com/udisondev/sc2pathlib/internal/grid"
	"github.com/udisondev/sc2pathlib/internal/tactical"
)

// ErrSnapshotNotFound is returned when no snapshot is stored for a fingerprint.
var ErrSnapshotNotFound = errors.New("db: snapshot not found")

// SnapshotRepository stores map analysis records keyed by terrain fingerprint.
// It implements analysis.Store.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a repository on pool.
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

var _ analysis.Store = (*SnapshotRepository)(nil)

// Save replaces the stored record for rec.Fingerprint in a single transaction.
func (r *SnapshotRepository) Save(ctx context.Context, rec analysis.Record) error {
	fp := rec.Fingerprint.String()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction for snapshot %s: %w", rec.Fingerprint.Short(), err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("rollback failed", "fingerprint", rec.Fingerprint.Short(), "error", err)
		}
	}()

	seedX := make([]float64, len(rec.Seeds))
	seedY := make([]float64, len(rec.Seeds))
	for i, s := range rec.Seeds {
		seedX[i], seedY[i] = s.X, s.Y
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO map_snapshots (fingerprint, seed_x, seed_y, computed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (fingerprint) DO UPDATE
		SET seed_x = EXCLUDED.seed_x, seed_y = EXCLUDED.seed_y, computed_at = EXCLUDED.computed_at`,
		fp, seedX, seedY, rec.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting snapshot %s: %w", rec.Fingerprint.Short(), err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM map_chokes WHERE fingerprint = $1`, fp); err != nil {
		return fmt.Errorf("deleting old chokes for %s: %w", rec.Fingerprint.Short(), err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM map_tactical_positions WHERE fingerprint = $1`, fp); err != nil {
		return fmt.Errorf("deleting old tactical positions for %s: %w", rec.Fingerprint.Short(), err)
	}

	if len(rec.Chokes) > 0 {
		rows := make([][]any, 0, len(rec.Chokes))
		for i, c := range rec.Chokes {
			rows = append(rows, []any{fp, i, c.A.X, c.A.Y, c.B.X, c.B.Y, c.MinWidth, c.Area})
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"map_chokes"},
			[]string{"fingerprint", "choke_id", "a_x", "a_y", "b_x", "b_y", "min_width", "area"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("inserting chokes for %s: %w", rec.Fingerprint.Short(), err)
		}
	}

	if len(rec.Tactical) > 0 {
		rows := make([][]any, 0, len(rec.Tactical))
		for i, p := range rec.Tactical {
			rows = append(rows, []any{
				fp, i, p.Tile.X, p.Tile.Y, p.Score, p.OnHighGround,
				p.WalkableNeighbors, p.ChokesInRange, p.Height,
			})
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"map_tactical_positions"},
			[]string{"fingerprint", "rank", "x", "y", "score", "on_high_ground",
				"walkable_neighbors", "chokes_in_range", "height"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("inserting tactical positions for %s: %w", rec.Fingerprint.Short(), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction for snapshot %s: %w", rec.Fingerprint.Short(), err)
	}

	slog.Debug("saved map snapshot",
		"fingerprint", rec.Fingerprint.Short(),
		"chokes", len(rec.Chokes),
		"tactical", len(rec.Tactical))
	return nil
}

// Get returns the stored record for fp or ErrSnapshotNotFound.
func (r *SnapshotRepository) Get(ctx context.Context, fp grid.Fingerprint) (analysis.Record, error) {
	rec := analysis.Record{Fingerprint: fp}
	key := fp.String()

	var seedX, seedY []float64
	err := r.pool.QueryRow(ctx,
		`SELECT seed_x, seed_y, computed_at FROM map_snapshots WHERE fingerprint = $1`, key,
	).Scan(&seedX, &seedY, &rec.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return rec, fmt.Errorf("snapshot %s: %w", fp.Short(), ErrSnapshotNotFound)
	}
	if err != nil {
		return rec, fmt.Errorf("querying snapshot %s: %w", fp.Short(), err)
	}
	if len(seedX) != len(seedY) {
		return rec, fmt.Errorf("snapshot %s has %d seed xs and %d seed ys", fp.Short(), len(seedX), len(seedY))
	}
	for i := range seedX {
		rec.Seeds = append(rec.Seeds, grid.Pt(seedX[i], seedY[i]))
	}

	if rec.Chokes, err = r.loadChokes(ctx, key); err != nil {
		return rec, fmt.Errorf("loading chokes for %s: %w", fp.Short(), err)
	}
	if rec.Tactical, err = r.loadTactical(ctx, key); err != nil {
		return rec, fmt.Errorf("loading tactical positions for %s: %w", fp.Short(), err)
	}
	return rec, nil
}

// Load implements analysis.Store: a missing snapshot is reported with ok=false.
func (r *SnapshotRepository) Load(ctx context.Context, fp grid.Fingerprint) (analysis.Record, bool, error) {
	rec, err := r.Get(ctx, fp)
	if errors.Is(err, ErrSnapshotNotFound) {
		return analysis.Record{}, false, nil
	}
	if err != nil {
		return analysis.Record{}, false, err
	}
	return rec, true, nil
}

// Delete removes the snapshot for fp. Deleting a missing snapshot returns
// ErrSnapshotNotFound.
func (r *SnapshotRepository) Delete(ctx context.Context, fp grid.Fingerprint) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM map_snapshots WHERE fingerprint = $1`, fp.String())
	if err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", fp.Short(), err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("snapshot %s: %w", fp.Short(), ErrSnapshotNotFound)
	}
	return nil
}

func (r *SnapshotRepository) loadChokes(ctx context.Context, key string) ([]choke.Choke, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT choke_id, a_x, a_y, b_x, b_y, min_width, area
		FROM map_chokes WHERE fingerprint = $1 ORDER BY choke_id`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []choke.Choke
	for rows.Next() {
		var c choke.Choke
		if err := rows.Scan(&c.ID, &c.A.X, &c.A.Y, &c.B.X, &c.B.Y, &c.MinWidth, &c.Area); err != nil {
			return nil, fmt.Errorf("scanning choke row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating choke rows: %w", err)
	}
	return out, nil
}

func (r *SnapshotRepository) loadTactical(ctx context.Context, key string) ([]tactical.Position, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT x, y, score, on_high_ground, walkable_neighbors, chokes_in_range, height
		FROM map_tactical_positions WHERE fingerprint = $1 ORDER BY rank`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tactical.Position
	for rows.Next() {
		var p tactical.Position
		if err := rows.Scan(&p.Tile.X, &p.Tile.Y, &p.Score, &p.OnHighGround,
			&p.WalkableNeighbors, &p.ChokesInRange, &p.Height); err != nil {
			return nil, fmt.Errorf("scanning tactical row: %w", err)
		}
		p.Position = grid.Center(p.Tile)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tactical rows: %w", err)
	}
	return out, nil
}
