// Package analysis memoizes the per-map derived features (zones, chokes,
// tactical positions) keyed by map identity.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/udisondev/sc2pathlib/internal/choke"
	"github.com/udisondev/sc2pathlib/internal/grid"
	"github.com/udisondev/sc2pathlib/internal/tactical"
	"github.com/udisondev/sc2pathlib/internal/zone"
)

// Options configures what the cache computes.
type Options struct {
	Choke    choke.Options
	Tactical tactical.Params
}

// DefaultOptions returns ladder-map choke thresholds and siege-tank tactics.
func DefaultOptions() Options {
	return Options{
		Choke:    choke.DefaultOptions(),
		Tactical: tactical.SiegeTank(),
	}
}

// Record is the persisted part of a snapshot. Zones are cheap to rebuild from
// the seeds and are not stored.
type Record struct {
	Fingerprint grid.Fingerprint
	Seeds       []grid.Point2
	Chokes      []choke.Choke
	Tactical    []tactical.Position
	ComputedAt  time.Time
}

// Store persists records across processes.
type Store interface {
	Load(ctx context.Context, fp grid.Fingerprint) (Record, bool, error)
	Save(ctx context.Context, rec Record) error
}

// Snapshot is an immutable analysis result. A recomputation produces a new
// Snapshot; readers holding an old one are unaffected.
type Snapshot struct {
	Fingerprint grid.Fingerprint
	Seeds       []grid.Point2
	Zones       *zone.Zones
	Chokes      *choke.Set
	Tactical    []tactical.Position
	ComputedAt  time.Time
	// Restored is set when the chokes and tactical positions came from the Store.
	Restored bool
}

type key struct {
	fp    grid.Fingerprint
	seeds string
}

func keyOf(m *grid.Map, seeds []grid.Point2) key {
	return key{fp: m.Fingerprint(), seeds: fmt.Sprint(seeds)}
}

// Cache computes each (map, seeds) snapshot once. Concurrent first calls for
// the same key share one computation.
type Cache struct {
	opts  Options
	store Store

	group singleflight.Group

	mu      sync.RWMutex
	entries map[key]*Snapshot
	epoch   map[grid.Fingerprint]uint64 // bumped by Invalidate
}

// NewCache creates an empty cache. store may be nil.
func NewCache(opts Options, store Store) *Cache {
	return &Cache{
		opts:    opts,
		store:   store,
		entries: make(map[key]*Snapshot),
		epoch:   make(map[grid.Fingerprint]uint64),
	}
}

// Len returns the number of cached snapshots.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Prepare returns the snapshot for m and seeds, computing it on first use.
// Concurrent callers share one computation run under the context of the caller
// that started it. When that caller is cancelled, the others start a new
// computation under their own contexts instead of failing with its error.
func (c *Cache) Prepare(ctx context.Context, m *grid.Map, seeds []grid.Point2) (*Snapshot, error) {
	k := keyOf(m, seeds)
	for {
		snap, err := c.prepare(ctx, m, seeds, k)
		if err == nil {
			return snap, nil
		}
		if ctx.Err() == nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			slog.Debug("shared analysis cancelled, retrying", "fingerprint", k.fp.Short())
			continue
		}
		return nil, fmt.Errorf("analyzing map %s: %w", k.fp.Short(), err)
	}
}

func (c *Cache) prepare(ctx context.Context, m *grid.Map, seeds []grid.Point2, k key) (*Snapshot, error) {
	c.mu.RLock()
	snap, ok := c.entries[k]
	epoch := c.epoch[k.fp]
	c.mu.RUnlock()
	if ok {
		return snap, nil
	}

	// The epoch is part of the flight key so calls after Invalidate never
	// join a stale computation.
	flight := fmt.Sprintf("%s/%d/%s", k.fp, epoch, k.seeds)
	v, err, _ := c.group.Do(flight, func() (any, error) {
		c.mu.RLock()
		snap, ok := c.entries[k]
		c.mu.RUnlock()
		if ok {
			return snap, nil
		}

		snap, err := c.build(ctx, m, seeds, k.fp)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.epoch[k.fp] == epoch {
			c.entries[k] = snap
		}
		c.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Zones returns the zone labelling of m.
func (c *Cache) Zones(ctx context.Context, m *grid.Map, seeds []grid.Point2) (*zone.Zones, error) {
	snap, err := c.Prepare(ctx, m, seeds)
	if err != nil {
		return nil, err
	}
	return snap.Zones, nil
}

// Chokes returns the chokes of m.
func (c *Cache) Chokes(ctx context.Context, m *grid.Map, seeds []grid.Point2) (*choke.Set, error) {
	snap, err := c.Prepare(ctx, m, seeds)
	if err != nil {
		return nil, err
	}
	return snap.Chokes, nil
}

// Tactical returns the ranked tactical positions of m. The slice is shared;
// callers must not modify it.
func (c *Cache) Tactical(ctx context.Context, m *grid.Map, seeds []grid.Point2) ([]tactical.Position, error) {
	snap, err := c.Prepare(ctx, m, seeds)
	if err != nil {
		return nil, err
	}
	return snap.Tactical, nil
}

// Invalidate drops every snapshot of m. A computation already in flight for m
// still returns to its callers but is not cached.
func (c *Cache) Invalidate(m *grid.Map) {
	fp := m.Fingerprint()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch[fp]++
	for k := range c.entries {
		if k.fp == fp {
			delete(c.entries, k)
		}
	}
}

func (c *Cache) build(ctx context.Context, m *grid.Map, seeds []grid.Point2, fp grid.Fingerprint) (*Snapshot, error) {
	start := time.Now()

	if snap, ok := c.restore(ctx, m, seeds, fp); ok {
		slog.Info("analysis restored",
			"fingerprint", fp.Short(),
			"zones", snap.Zones.Count(),
			"chokes", snap.Chokes.Len(),
			"tactical", len(snap.Tactical))
		return snap, nil
	}

	snap := &Snapshot{Fingerprint: fp, Seeds: slices.Clone(seeds)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap.Zones = zone.Segment(m, seeds)
		return gctx.Err()
	})
	g.Go(func() error {
		snap.Chokes = choke.Detect(m, c.opts.Choke)
		if err := gctx.Err(); err != nil {
			return err
		}
		snap.Tactical = tactical.New(m, snap.Chokes).Evaluate(c.opts.Tactical)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	snap.ComputedAt = time.Now()

	slog.Info("analysis computed",
		"fingerprint", fp.Short(),
		"zones", snap.Zones.Count(),
		"chokes", snap.Chokes.Len(),
		"tactical", len(snap.Tactical),
		"elapsed", time.Since(start))

	if c.store != nil {
		rec := Record{
			Fingerprint: fp,
			Seeds:       snap.Seeds,
			Chokes:      snap.Chokes.All(),
			Tactical:    snap.Tactical,
			ComputedAt:  snap.ComputedAt,
		}
		if err := c.store.Save(ctx, rec); err != nil {
			slog.Warn("failed to persist analysis", "fingerprint", fp.Short(), "error", err)
		}
	}
	return snap, nil
}

func (c *Cache) restore(ctx context.Context, m *grid.Map, seeds []grid.Point2, fp grid.Fingerprint) (*Snapshot, bool) {
	if c.store == nil {
		return nil, false
	}
	rec, ok, err := c.store.Load(ctx, fp)
	if err != nil {
		slog.Warn("failed to load stored analysis", "fingerprint", fp.Short(), "error", err)
		return nil, false
	}
	if !ok || !slices.Equal(rec.Seeds, seeds) {
		return nil, false
	}
	return &Snapshot{
		Fingerprint: fp,
		Seeds:       slices.Clone(seeds),
		Zones:       zone.Segment(m, seeds),
		Chokes:      choke.NewSet(rec.Chokes),
		Tactical:    rec.Tactical,
		ComputedAt:  rec.ComputedAt,
		Restored:    true,
	}, true
}
