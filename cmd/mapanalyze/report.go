package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/udisondev/sc2pathlib/internal/analysis"
	"github.com/udisondev/sc2pathlib/internal/choke"
	"github.com/udisondev/sc2pathlib/internal/config"
	"github.com/udisondev/sc2pathlib/internal/grid"
	"github.com/udisondev/sc2pathlib/internal/influence"
	"github.com/udisondev/sc2pathlib/internal/mapdata"
	"github.com/udisondev/sc2pathlib/internal/pathfind"
	"github.com/udisondev/sc2pathlib/internal/tactical"
	"github.com/udisondev/sc2pathlib/internal/vision"
	"github.com/udisondev/sc2pathlib/internal/zone"
)

const (
	// baseSightRange is the sight of a town hall.
	baseSightRange = 11.0
	// threatValue and threatRadius shape the overlay around the enemy base
	// used for the cautious route.
	threatValue  = 10.0
	threatRadius = 15.0
)

// Report summarizes the analysis of one map file.
type Report struct {
	Path     string
	Name     string
	Width    int
	Height   int
	Walkable int
	Restored bool

	Zones         int
	Chokes        int
	Tactical      int
	Best          *tactical.Position
	OverlordSpots int

	// Route between the first and last base.
	RouteFound    bool
	RouteCost     float64
	RouteSteps    int
	CautiousCost  float64
	CautiousFound bool

	// Tiles seen from the bases at game start.
	VisibleFromBases int
}

// Log writes the report as one structured line.
func (r Report) Log() {
	attrs := []any{
		"map", r.Name,
		"size", fmt.Sprintf("%dx%d", r.Width, r.Height),
		"walkable", r.Walkable,
		"restored", r.Restored,
		"zones", r.Zones,
		"chokes", r.Chokes,
		"tactical", r.Tactical,
		"overlord_spots", r.OverlordSpots,
		"visible_from_bases", r.VisibleFromBases,
	}
	if r.Best != nil {
		attrs = append(attrs, "best_x", r.Best.Position.X, "best_y", r.Best.Position.Y, "best_score", r.Best.Score)
	}
	if r.RouteFound {
		attrs = append(attrs, "route_cost", r.RouteCost, "route_waypoints", r.RouteSteps)
	}
	if r.CautiousFound {
		attrs = append(attrs, "cautious_cost", r.CautiousCost)
	}
	slog.Info("map analyzed", attrs...)
}

func analysisOptions(cfg config.Analyzer) analysis.Options {
	return analysis.Options{
		Choke: choke.Options{
			MaxWidth:    cfg.Choke.MaxWidth,
			MinWidening: cfg.Choke.MinWidening,
			ProbeDepth:  cfg.Choke.ProbeDepth,
		},
		Tactical: tactical.Params{
			UnitRadius: cfg.Tactical.UnitRadius,
			Range:      cfg.Tactical.Range,
			Stride:     cfg.Tactical.Stride,
		},
	}
}

func parseHeuristic(name string) pathfind.Heuristic {
	if name == "euclidean" {
		return pathfind.Euclidean
	}
	return pathfind.Octile
}

func analyzeFile(ctx context.Context, cache *analysis.Cache, cfg config.Analyzer, path string) (Report, error) {
	f, err := mapdata.Load(path)
	if err != nil {
		return Report{}, err
	}
	m, err := f.Build()
	if err != nil {
		return Report{}, fmt.Errorf("building %s: %w", path, err)
	}
	seeds := f.Seeds()

	snap, err := cache.Prepare(ctx, m, seeds)
	if err != nil {
		return Report{}, err
	}

	w, h := m.Size()
	r := Report{
		Path:          path,
		Name:          f.Name,
		Width:         w,
		Height:        h,
		Walkable:      m.WalkableTiles(),
		Restored:      snap.Restored,
		Zones:         snap.Zones.Count(),
		Chokes:        snap.Chokes.Len(),
		Tactical:      len(snap.Tactical),
		OverlordSpots: len(tactical.OverlordSpots(m, 2)),
	}
	if len(snap.Tactical) > 0 {
		best := snap.Tactical[0]
		r.Best = &best
	}

	if len(seeds) >= 2 {
		routeBetweenBases(&r, m, cfg, seeds[0], seeds[len(seeds)-1])
	}

	visible, err := visibleFromBases(m, seeds)
	if err != nil {
		return Report{}, fmt.Errorf("computing vision for %s: %w", path, err)
	}
	r.VisibleFromBases = visible
	return r, nil
}

// snap moves a base location (usually inside a town hall footprint) to the
// nearest walkable tile centre.
func snap(m *grid.Map, p grid.Point2) grid.Point2 {
	if t, ok := m.NearestWalkable(grid.TileOf(p), zone.SeedSnapRadius); ok {
		return grid.Center(t)
	}
	return p
}

func routeBetweenBases(r *Report, m *grid.Map, cfg config.Analyzer, from, to grid.Point2) {
	finder := pathfind.New(m)
	req := pathfind.Request{
		Start:       snap(m, from),
		Goal:        snap(m, to),
		Heuristic:   parseHeuristic(cfg.Pathfinding.Heuristic),
		MaxDistance: cfg.Pathfinding.MaxDistance,
		Smooth:      true,
	}
	if p, ok := finder.Find(req); ok {
		r.RouteFound, r.RouteCost, r.RouteSteps = true, p.Cost, len(p.Waypoints)
	}

	threat := influence.New(m)
	threat.AddCircle([]grid.Point2{to}, threatValue, threatRadius)
	req.Influence, req.UseInfluence = threat, true
	if p, ok := finder.Find(req); ok {
		r.CautiousFound, r.CautiousCost = true, p.Cost
	}
}

func visibleFromBases(m *grid.Map, seeds []grid.Point2) (int, error) {
	field := vision.New(m)
	for _, s := range seeds {
		field.Accumulate(vision.Unit{Position: s, SightRange: baseSightRange})
	}
	field.Finalize()

	visible, err := field.Visible(1)
	if err != nil {
		return 0, err
	}
	return len(visible), nil
}
