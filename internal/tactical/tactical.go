// Package tactical ranks walkable tiles as defensive positions for siege units.
package tactical

import (
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/udisondev/sc2pathlib/internal/choke"
	"github.com/udisondev/sc2pathlib/internal/grid"
	"github.com/udisondev/sc2pathlib/internal/pathfind"
)

const (
	// MinScore is the exclusive lower bound for a kept candidate.
	MinScore = 30.0
	// HighGroundRadius is the half-size of the square sampled for high ground.
	HighGroundRadius = 5
	// HighGroundFraction is the share of lower neighbours needed for high ground.
	HighGroundFraction = 0.4
	// DefaultStride is the scan step in tiles.
	DefaultStride = 2
)

// Position is a scored candidate.
type Position struct {
	Tile              grid.Tile
	Position          grid.Point2
	Score             float64
	OnHighGround      bool
	WalkableNeighbors int
	ChokesInRange     int
	Height            int
}

// Params describes the unit being positioned.
type Params struct {
	// UnitRadius is the footprint radius in world units.
	UnitRadius float64
	// Range is the attack range; chokes closer than this count.
	Range float64
	// Stride is the scan step in tiles. Zero means DefaultStride.
	Stride int
	// ReachableFrom, when set, drops candidates not reachable on the ground
	// from this point.
	ReachableFrom *grid.Point2
}

// SiegeTank returns the parameters of a sieged tank.
func SiegeTank() Params {
	return Params{UnitRadius: 1.25, Range: 13, Stride: DefaultStride}
}

// Score combines the candidate features.
func Score(onHighGround bool, walkableNeighbors, chokesInRange, height int) float64 {
	s := 0.0
	if onHighGround {
		s += 50
	}
	s += 5 * float64(8-min(walkableNeighbors, 8))
	s += 15 * float64(chokesInRange)
	s += 2 * float64(height)
	return s
}

// Evaluator scores candidates on one map with one choke snapshot.
// It holds no mutable state and is safe for concurrent use.
type Evaluator struct {
	m      *grid.Map
	chokes *choke.Set
	finder *pathfind.Finder
}

// New creates an Evaluator. chokes may be nil.
func New(m *grid.Map, chokes *choke.Set) *Evaluator {
	if chokes == nil {
		chokes = choke.NewSet(nil)
	}
	return &Evaluator{m: m, chokes: chokes, finder: pathfind.New(m)}
}

// Evaluate scans the whole playable area.
func (e *Evaluator) Evaluate(p Params) []Position {
	return e.scan(e.m.Bounds(), nil, 0, p)
}

// Near scans only tiles whose centre lies within radius of center. The stride
// grid is the same as Evaluate, so results are a subset of it.
func (e *Evaluator) Near(center grid.Point2, radius float64, p Params) []Position {
	area := grid.CircleRect(center, radius).Intersect(e.m.Bounds())
	return e.scan(area, &center, radius, p)
}

// WithOverrides evaluates a siege-tank scan with a custom footprint radius and range.
func (e *Evaluator) WithOverrides(unitRadius, attackRange float64) []Position {
	p := SiegeTank()
	p.UnitRadius = unitRadius
	p.Range = attackRange
	return e.Evaluate(p)
}

func (e *Evaluator) scan(area grid.Rect, center *grid.Point2, radius float64, p Params) []Position {
	start := time.Now()
	stride := p.Stride
	if stride <= 0 {
		stride = DefaultStride
	}
	footprint := int(math.Ceil(p.UnitRadius / grid.TileSize))

	var reachable map[grid.Tile]bool
	if p.ReachableFrom != nil {
		reachable = e.reachableTiles(*p.ReachableFrom)
	}

	b := e.m.Bounds()
	var out []Position
	for x := alignUp(area.X0, b.X0, stride); x < area.X1; x += stride {
		for y := alignUp(area.Y0, b.Y0, stride); y < area.Y1; y += stride {
			t := grid.Tile{X: x, Y: y}
			if !e.m.Walkable(t) {
				continue
			}
			if center != nil && center.Dist(grid.Center(t)) > radius {
				continue
			}
			if reachable != nil && !reachable[t] {
				continue
			}
			if !e.suitable(t, footprint) {
				continue
			}
			pos := e.position(t, p.Range)
			if pos.Score > MinScore {
				out = append(out, pos)
			}
		}
	}

	slices.SortStableFunc(out, func(a, b Position) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})

	slog.Debug("tactical positions evaluated",
		"candidates", len(out),
		"unit_radius", p.UnitRadius,
		"range", p.Range,
		"elapsed", time.Since(start))
	return out
}

// alignUp returns the first value >= v on the grid origin + k*stride.
func alignUp(v, origin, stride int) int {
	if v <= origin {
		return origin
	}
	return origin + (v-origin+stride-1)/stride*stride
}

func (e *Evaluator) reachableTiles(from grid.Point2) map[grid.Tile]bool {
	dests := e.finder.Reachable(pathfind.Request{Start: from})
	set := make(map[grid.Tile]bool, len(dests))
	for _, d := range dests {
		set[d.Tile] = true
	}
	return set
}

// suitable reports whether the square of radius r around t is walkable and
// flat.
func (e *Evaluator) suitable(t grid.Tile, r int) bool {
	if !e.m.Clear(t, r) {
		return false
	}
	h, _ := e.m.HeightAt(t)
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			if nh, _ := e.m.HeightAt(t.Add(dx, dy)); nh != h {
				return false
			}
		}
	}
	return true
}

func (e *Evaluator) position(t grid.Tile, attackRange float64) Position {
	h, _ := e.m.HeightAt(t)
	onHigh := OnHighGround(e.m, t)
	neighbors := walkableNeighbors(e.m, t)

	c := grid.Center(t)
	chokes := 0
	for _, ch := range e.chokes.All() {
		if c.Dist(grid.Center(ch.Midpoint())) <= attackRange {
			chokes++
		}
	}

	return Position{
		Tile:              t,
		Position:          c,
		Score:             Score(onHigh, neighbors, chokes, h),
		OnHighGround:      onHigh,
		WalkableNeighbors: neighbors,
		ChokesInRange:     chokes,
		Height:            h,
	}
}

// OnHighGround reports whether more than HighGroundFraction of the in-bounds
// tiles within HighGroundRadius of t (t itself excluded) are strictly lower.
func OnHighGround(m *grid.Map, t grid.Tile) bool {
	h, ok := m.HeightAt(t)
	if !ok {
		return false
	}
	lower, total := 0, 0
	for dx := -HighGroundRadius; dx <= HighGroundRadius; dx++ {
		for dy := -HighGroundRadius; dy <= HighGroundRadius; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nh, ok := m.HeightAt(t.Add(dx, dy))
			if !ok {
				continue
			}
			total++
			if nh < h {
				lower++
			}
		}
	}
	return total > 0 && float64(lower)/float64(total) > HighGroundFraction
}

func walkableNeighbors(m *grid.Map, t grid.Tile) int {
	n := 0
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if (dx != 0 || dy != 0) && m.Walkable(t.Add(dx, dy)) {
				n++
			}
		}
	}
	return n
}
