package grid

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrEmptyGrid is returned when the pathing grid has no tiles.
	ErrEmptyGrid = errors.New("grid: empty grid")
	// ErrDimensionMismatch is returned when pathing, placement and height grids differ in shape.
	ErrDimensionMismatch = errors.New("grid: dimension mismatch")
	// ErrBadBounds is returned when the bounding rectangle does not fit the grids.
	ErrBadBounds = errors.New("grid: bounds outside grid")
	// ErrOutOfBounds is returned by queries outside the map rectangle.
	ErrOutOfBounds = errors.New("grid: out of bounds")
)

// MapPoint is the per-tile terrain record derived once from the input grids.
type MapPoint struct {
	Height    int
	Walkable  bool
	Placeable bool
}

// Map is an immutable terrain representation.
// Thread-safe: nothing mutates a Map after New returns.
// Grids are column-major: grid[x][y].
type Map struct {
	width, height int
	bounds        Rect
	points        []MapPoint
	clearance     []int32 // Chebyshev distance to nearest blocked tile

	fpOnce sync.Once
	fp     Fingerprint
}

// New builds a Map from three equally-shaped grids and the playable rectangle.
// A tile is walkable when its pathing value is positive and placeable when its
// placement value is positive. Tiles outside bounds are never walkable.
func New(pathing, placement, heights [][]int, bounds Rect) (*Map, error) {
	if len(pathing) == 0 || len(pathing[0]) == 0 {
		return nil, ErrEmptyGrid
	}
	w, h := len(pathing), len(pathing[0])

	if err := checkShape("pathing", pathing, w, h); err != nil {
		return nil, err
	}
	if err := checkShape("placement", placement, w, h); err != nil {
		return nil, err
	}
	if err := checkShape("height", heights, w, h); err != nil {
		return nil, err
	}
	if bounds.Empty() || bounds.X0 < 0 || bounds.Y0 < 0 || bounds.X1 > w || bounds.Y1 > h {
		return nil, fmt.Errorf("bounds %+v for %dx%d grid: %w", bounds, w, h, ErrBadBounds)
	}

	m := &Map{
		width:  w,
		height: h,
		bounds: bounds,
		points: make([]MapPoint, w*h),
	}
	for x := range w {
		for y := range h {
			in := bounds.Contains(Tile{x, y})
			m.points[x*h+y] = MapPoint{
				Height:    heights[x][y],
				Walkable:  in && pathing[x][y] > 0,
				Placeable: in && placement[x][y] > 0,
			}
		}
	}
	m.computeClearance()
	return m, nil
}

// NewFull is New with bounds covering the whole grid.
func NewFull(pathing, placement, heights [][]int) (*Map, error) {
	h := 0
	if len(pathing) > 0 {
		h = len(pathing[0])
	}
	return New(pathing, placement, heights, Rect{X1: len(pathing), Y1: h})
}

func checkShape(name string, g [][]int, w, h int) error {
	if len(g) != w {
		return fmt.Errorf("%s grid width %d, want %d: %w", name, len(g), w, ErrDimensionMismatch)
	}
	for x, col := range g {
		if len(col) != h {
			return fmt.Errorf("%s grid column %d height %d, want %d: %w", name, x, len(col), h, ErrDimensionMismatch)
		}
	}
	return nil
}

// Size returns the dimensions of the backing arrays.
func (m *Map) Size() (w, h int) {
	return m.width, m.height
}

// Bounds returns the playable rectangle.
func (m *Map) Bounds() Rect {
	return m.bounds
}

// InBounds reports whether t lies in the playable rectangle.
func (m *Map) InBounds(t Tile) bool {
	return m.bounds.Contains(t)
}

func (m *Map) index(t Tile) int {
	return t.X*m.height + t.Y
}

// Point returns the terrain record at t; ok is false outside bounds.
func (m *Map) Point(t Tile) (MapPoint, bool) {
	if !m.InBounds(t) {
		return MapPoint{}, false
	}
	return m.points[m.index(t)], true
}

// Walkable reports whether ground units can stand on t.
func (m *Map) Walkable(t Tile) bool {
	return m.InBounds(t) && m.points[m.index(t)].Walkable
}

// Placeable reports whether structures may be placed on t.
func (m *Map) Placeable(t Tile) bool {
	return m.InBounds(t) && m.points[m.index(t)].Placeable
}

// HeightAt returns the terrain height at t; ok is false outside bounds.
func (m *Map) HeightAt(t Tile) (int, bool) {
	if !m.InBounds(t) {
		return 0, false
	}
	return m.points[m.index(t)].Height, true
}

// Clearance returns the Chebyshev distance from t to the nearest non-walkable
// or out-of-bounds tile. It is 0 for blocked tiles.
func (m *Map) Clearance(t Tile) int {
	if !m.InBounds(t) {
		return 0
	}
	return int(m.clearance[m.index(t)])
}

// Clear reports whether the square footprint of radius r tiles around t is
// fully walkable and in bounds.
func (m *Map) Clear(t Tile, r int) bool {
	return m.Clearance(t) > r
}

// WalkableTiles returns the number of walkable tiles.
func (m *Map) WalkableTiles() int {
	n := 0
	for _, p := range m.points {
		if p.Walkable {
			n++
		}
	}
	return n
}

// WithBlocked returns a copy of m with every tile of r made unwalkable and
// unplaceable (a structure footprint).
func (m *Map) WithBlocked(r Rect) *Map {
	return m.withFootprint(r, false)
}

// WithCleared returns a copy of m with every in-bounds tile of r made walkable
// and placeable (a destroyed structure).
func (m *Map) WithCleared(r Rect) *Map {
	return m.withFootprint(r, true)
}

func (m *Map) withFootprint(r Rect, open bool) *Map {
	cp := &Map{
		width:  m.width,
		height: m.height,
		bounds: m.bounds,
		points: make([]MapPoint, len(m.points)),
	}
	copy(cp.points, m.points)

	area := r.Intersect(m.bounds)
	for x := area.X0; x < area.X1; x++ {
		for y := area.Y0; y < area.Y1; y++ {
			p := &cp.points[cp.index(Tile{x, y})]
			p.Walkable = open
			p.Placeable = open
		}
	}
	cp.computeClearance()
	return cp
}

// computeClearance runs a two-pass chamfer transform with unit weights on all
// eight neighbours, which yields the exact Chebyshev distance.
func (m *Map) computeClearance() {
	w, h := m.width, m.height
	d := make([]int32, w*h)
	at := func(x, y int) int32 {
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0
		}
		return d[x*h+y]
	}

	const inf = int32(1 << 30)
	for x := range w {
		for y := range h {
			if !m.points[x*h+y].Walkable {
				d[x*h+y] = 0
				continue
			}
			v := inf
			v = min(v, at(x-1, y-1)+1, at(x-1, y)+1, at(x-1, y+1)+1, at(x, y-1)+1)
			d[x*h+y] = v
		}
	}
	for x := w - 1; x >= 0; x-- {
		for y := h - 1; y >= 0; y-- {
			i := x*h + y
			if d[i] == 0 {
				continue
			}
			d[i] = min(d[i], at(x+1, y+1)+1, at(x+1, y)+1, at(x+1, y-1)+1, at(x, y+1)+1)
		}
	}
	m.clearance = d
}

// NearestWalkable returns the walkable tile closest to t (Euclidean between
// tile centres) within maxRadius tiles. Ties resolve to the first tile in
// x-major scan order.
func (m *Map) NearestWalkable(t Tile, maxRadius int) (Tile, bool) {
	if m.Walkable(t) {
		return t, true
	}

	best, bestD, found := Tile{}, 0, false
	limit := maxRadius
	for r := 1; r <= limit; r++ {
		for dx := -r; dx <= r; dx++ {
			for dy := -r; dy <= r; dy++ {
				if max(abs(dx), abs(dy)) != r {
					continue
				}
				c := t.Add(dx, dy)
				if !m.Walkable(c) {
					continue
				}
				d := dx*dx + dy*dy
				if !found || d < bestD {
					best, bestD, found = c, d, true
				}
			}
		}
		if found && limit == maxRadius {
			// A closer Euclidean match can still sit on rings up to r*sqrt(2).
			limit = min(maxRadius, r+r/2+1)
		}
	}
	return best, found
}
