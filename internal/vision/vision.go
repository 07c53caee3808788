// Package vision accumulates per-tile sight and detection levels from a set of
// observers. A Field has a single owner per cycle: Reset, Accumulate, then
// Finalize before querying. Nothing in it is safe for concurrent mutation.
package vision

import (
	"errors"
	"fmt"
	"math"

	"github.com/udisondev/sc2pathlib/internal/grid"
)

// ErrNotFinalized is returned by queries issued before Finalize.
var ErrNotFinalized = errors.New("vision: field not finalized")

// Level is the visibility of one tile.
type Level uint8

const (
	Unseen Level = iota
	Seen
	Detected
)

func (l Level) String() string {
	switch l {
	case Unseen:
		return "unseen"
	case Seen:
		return "seen"
	case Detected:
		return "detected"
	default:
		return fmt.Sprintf("level(%d)", uint8(l))
	}
}

// Unit is an observer for one cycle.
type Unit struct {
	Position   grid.Point2
	SightRange float64
	// Detector reveals cloaked and burrowed units inside SightRange.
	Detector bool
	// Flying observers see over cliffs.
	Flying bool
}

// Sample is a visibility reading at a world position.
type Sample struct {
	Position grid.Point2
	Level    Level
}

// Field is the visibility grid of one map.
type Field struct {
	m         *grid.Map
	h         int
	levels    []Level
	finalized bool
}

// New creates an all-unseen field for m.
func New(m *grid.Map) *Field {
	w, h := m.Size()
	return &Field{m: m, h: h, levels: make([]Level, w*h)}
}

// Reset sets every tile back to Unseen and starts a new cycle.
func (f *Field) Reset() {
	clear(f.levels)
	f.finalized = false
}

// Accumulate raises every in-bounds tile whose centre lies within a unit's
// SightRange to at least Seen, or Detected for detectors. Levels are only ever
// raised, so calls commute. The one exception to full-radius coverage is
// height: a ground observer skips tiles strictly higher than the tile it
// stands on. Flying observers cover the whole radius, as do ground observers
// on level terrain.
func (f *Field) Accumulate(units ...Unit) {
	f.finalized = false
	for _, u := range units {
		f.accumulate(u)
	}
}

func (f *Field) accumulate(u Unit) {
	if u.SightRange <= 0 {
		return
	}
	level := Seen
	if u.Detector {
		level = Detected
	}

	ownHeight, heightKnown := 0, false
	if !u.Flying {
		ownHeight, heightKnown = f.m.HeightAt(grid.TileOf(u.Position))
	}

	area := grid.CircleRect(u.Position, u.SightRange).Intersect(f.m.Bounds())
	for x := area.X0; x < area.X1; x++ {
		for y := area.Y0; y < area.Y1; y++ {
			t := grid.Tile{X: x, Y: y}
			if u.Position.Dist(grid.Center(t)) > u.SightRange {
				continue
			}
			if heightKnown {
				if h, _ := f.m.HeightAt(t); h > ownHeight {
					continue
				}
			}
			i := x*f.h + y
			f.levels[i] = max(f.levels[i], level)
		}
	}
}

// Finalize closes the cycle and makes the field queryable.
func (f *Field) Finalize() {
	f.finalized = true
}

// Finalized reports whether the field can be queried.
func (f *Field) Finalized() bool {
	return f.finalized
}

// Level returns the level of the tile containing p.
func (f *Field) Level(p grid.Point2) (Level, error) {
	return f.LevelAt(grid.TileOf(p))
}

// LevelAt returns the level of tile t.
func (f *Field) LevelAt(t grid.Tile) (Level, error) {
	if !f.finalized {
		return Unseen, ErrNotFinalized
	}
	if !f.m.InBounds(t) {
		return Unseen, fmt.Errorf("tile %v: %w", t, grid.ErrOutOfBounds)
	}
	return f.levels[t.X*f.h+t.Y], nil
}

// Sample reads the field at tile centres every spacing world units, starting
// at the first in-bounds tile. Order is x-major.
func (f *Field) Sample(spacing float64) ([]Sample, error) {
	if !f.finalized {
		return nil, ErrNotFinalized
	}
	step := max(1, int(math.Round(spacing/grid.TileSize)))
	b := f.m.Bounds()

	out := make([]Sample, 0, ((b.X1-b.X0)/step+1)*((b.Y1-b.Y0)/step+1))
	for x := b.X0; x < b.X1; x += step {
		for y := b.Y0; y < b.Y1; y += step {
			t := grid.Tile{X: x, Y: y}
			out = append(out, Sample{Position: grid.Center(t), Level: f.levels[x*f.h+y]})
		}
	}
	return out, nil
}

// Visible returns the sampled positions that are at least Seen.
func (f *Field) Visible(spacing float64) ([]grid.Point2, error) {
	samples, err := f.Sample(spacing)
	if err != nil {
		return nil, err
	}
	var out []grid.Point2
	for _, s := range samples {
		if s.Level > Unseen {
			out = append(out, s.Position)
		}
	}
	return out, nil
}

// FogTiles returns in-bounds tiles whose centre lies within radius of center
// and that no observer saw, in x-major order.
func (f *Field) FogTiles(center grid.Point2, radius float64) ([]grid.Tile, error) {
	if !f.finalized {
		return nil, ErrNotFinalized
	}
	area := grid.CircleRect(center, radius).Intersect(f.m.Bounds())
	var out []grid.Tile
	for x := area.X0; x < area.X1; x++ {
		for y := area.Y0; y < area.Y1; y++ {
			t := grid.Tile{X: x, Y: y}
			if center.Dist(grid.Center(t)) > radius {
				continue
			}
			if f.levels[x*f.h+y] == Unseen {
				out = append(out, t)
			}
		}
	}
	return out, nil
}
