// Package choke detects narrow walkable passages between wider areas.
package choke

import (
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/udisondev/sc2pathlib/internal/grid"
)

// Options tunes the narrow-passage scan. Widths are world units.
type Options struct {
	// MaxWidth is the exclusive upper bound for a choke cross-section.
	MaxWidth float64
	// MinWidening is how much wider the passage must become on both sides.
	MinWidening float64
	// ProbeDepth is how many tiles past the end of a narrow stretch are searched
	// for widening. The stretch itself may be of any length.
	ProbeDepth int
}

// DefaultOptions returns thresholds suited to standard ladder maps.
func DefaultOptions() Options {
	return Options{
		MaxWidth:    8,
		MinWidening: 2,
		ProbeDepth:  12,
	}
}

// Choke is the narrowest cross-section of one bottleneck.
type Choke struct {
	ID       int
	A, B     grid.Tile // walkable endpoints of the cross-section
	MinWidth float64
	Area     int // number of narrow tiles that formed the bottleneck
}

// Center returns the world midpoint of the cross-section.
func (c Choke) Center() grid.Point2 {
	a, b := grid.Center(c.A), grid.Center(c.B)
	return grid.Pt((a.X+b.X)/2, (a.Y+b.Y)/2)
}

// Midpoint returns the tile halfway between the endpoints (integer division).
func (c Choke) Midpoint() grid.Tile {
	return grid.Tile{X: (c.A.X + c.B.X) / 2, Y: (c.A.Y + c.B.Y) / 2}
}

// MainLine returns the world endpoints of the cross-section.
func (c Choke) MainLine() (grid.Point2, grid.Point2) {
	return grid.Center(c.A), grid.Center(c.B)
}

// Set is an immutable list of chokes in detection order.
type Set struct {
	chokes []Choke
}

// NewSet wraps an existing list (for example one loaded from storage).
// IDs are reassigned to list positions.
func NewSet(chokes []Choke) *Set {
	cp := slices.Clone(chokes)
	for i := range cp {
		cp[i].ID = i
	}
	return &Set{chokes: cp}
}

// Len returns the number of chokes.
func (s *Set) Len() int {
	return len(s.chokes)
}

// All returns a copy of the chokes in detection order.
func (s *Set) All() []Choke {
	return slices.Clone(s.chokes)
}

// Get returns the choke with the given id.
func (s *Set) Get(id int) (Choke, bool) {
	if id < 0 || id >= len(s.chokes) {
		return Choke{}, false
	}
	return s.chokes[id], true
}

// Nearest returns the choke whose centre is closest to p and that distance.
// ok is false when the set is empty.
func (s *Set) Nearest(p grid.Point2) (Choke, float64, bool) {
	best, bestD, ok := Choke{}, math.Inf(1), false
	for _, c := range s.chokes {
		if d := p.Dist(c.Center()); d < bestD {
			best, bestD, ok = c, d, true
		}
	}
	return best, bestD, ok
}

// Within returns every choke whose centre lies within radius of p, in detection order.
func (s *Set) Within(p grid.Point2, radius float64) []Choke {
	var out []Choke
	for _, c := range s.chokes {
		if p.Dist(c.Center()) <= radius {
			out = append(out, c)
		}
	}
	return out
}

// axis pairs a cross-section direction with the passage direction perpendicular to it.
type axis struct {
	cx, cy int
	px, py int
	step   float64
}

var axes = [4]axis{
	{cx: 0, cy: 1, px: 1, py: 0, step: 1},           // horizontal passage, vertical cross-section
	{cx: 1, cy: 0, px: 0, py: 1, step: 1},           // vertical passage
	{cx: 1, cy: 1, px: 1, py: -1, step: math.Sqrt2}, // passage along the anti-diagonal
	{cx: 1, cy: -1, px: 1, py: 1, step: math.Sqrt2}, // passage along the diagonal
}

// run is a maximal straight walkable line through a tile along one axis.
type run struct {
	lo, hi grid.Tile
	n      int32
}

type candidate struct {
	tile  grid.Tile
	width float64
	seg   run
}

type detector struct {
	m    *grid.Map
	opts Options
	h    int
	runs [len(axes)][]run
}

// Detect scans m for narrow passages and returns them in detection order
// (x-major scan order of the first narrow tile of each bottleneck).
func Detect(m *grid.Map, opts Options) *Set {
	start := time.Now()
	w, h := m.Size()
	d := &detector{m: m, opts: opts, h: h}
	for i, ax := range axes {
		d.runs[i] = d.computeRuns(ax, w, h)
	}

	narrow := make(map[grid.Tile]candidate)
	var order []grid.Tile
	for x := range w {
		for y := range h {
			t := grid.Tile{X: x, Y: y}
			if !m.Walkable(t) {
				continue
			}
			if c, ok := d.classify(t); ok {
				narrow[t] = c
				order = append(order, t)
			}
		}
	}

	set := &Set{}
	seen := make(map[grid.Tile]bool, len(order))
	segs := make(map[[2]grid.Tile]bool)
	for _, t := range order {
		if seen[t] {
			continue
		}
		cluster := collectCluster(t, narrow, seen)
		best := pickRepresentative(cluster)
		key := [2]grid.Tile{best.seg.lo, best.seg.hi}
		if segs[key] {
			continue
		}
		segs[key] = true
		set.chokes = append(set.chokes, Choke{
			ID:       len(set.chokes),
			A:        best.seg.lo,
			B:        best.seg.hi,
			MinWidth: best.width,
			Area:     len(cluster),
		})
	}

	slog.Debug("chokes detected",
		"narrow_tiles", len(order),
		"chokes", len(set.chokes),
		"elapsed", time.Since(start))
	return set
}

// canStep reports whether a unit can move from t by (dx, dy) without cutting a corner.
func canStep(m *grid.Map, t grid.Tile, dx, dy int) bool {
	if !m.Walkable(t.Add(dx, dy)) {
		return false
	}
	if dx != 0 && dy != 0 {
		return m.Walkable(t.Add(dx, 0)) && m.Walkable(t.Add(0, dy))
	}
	return true
}

func (d *detector) computeRuns(ax axis, w, h int) []run {
	runs := make([]run, w*h)
	for x := range w {
		for y := range h {
			t := grid.Tile{X: x, Y: y}
			if !d.m.Walkable(t) || canStep(d.m, t, -ax.cx, -ax.cy) {
				continue
			}
			// t starts a run: walk it forward once and stamp every member.
			members := []grid.Tile{t}
			cur := t
			for canStep(d.m, cur, ax.cx, ax.cy) {
				cur = cur.Add(ax.cx, ax.cy)
				members = append(members, cur)
			}
			r := run{lo: t, hi: cur, n: int32(len(members))}
			for _, mt := range members {
				runs[mt.X*h+mt.Y] = r
			}
		}
	}
	return runs
}

func (d *detector) width(i int, t grid.Tile) (run, float64) {
	r := d.runs[i][t.X*d.h+t.Y]
	return r, float64(r.n) * axes[i].step * grid.TileSize
}

func (d *detector) classify(t grid.Tile) (candidate, bool) {
	var best candidate
	found := false
	for i, ax := range axes {
		r, w := d.width(i, t)
		if w >= d.opts.MaxWidth {
			continue
		}
		if found && w >= best.width {
			continue
		}
		if !d.widens(i, t, w, ax.px, ax.py) || !d.widens(i, t, w, -ax.px, -ax.py) {
			continue
		}
		best, found = candidate{tile: t, width: w, seg: r}, true
	}
	return best, found
}

// widens walks along the passage from t and reports whether the cross-section
// grows by at least MinWidening before the walk leaves walkable ground. Tiles
// still narrower than MaxWidth belong to the same narrow stretch and are walked
// without limit; ProbeDepth only bounds the walk past the end of the stretch.
func (d *detector) widens(i int, t grid.Tile, w float64, dx, dy int) bool {
	cur := t
	for depth := 0; depth < d.opts.ProbeDepth; {
		if !canStep(d.m, cur, dx, dy) {
			return false
		}
		cur = cur.Add(dx, dy)
		_, w2 := d.width(i, cur)
		if w2 >= w+d.opts.MinWidening {
			return true
		}
		if w2 >= d.opts.MaxWidth {
			depth++
		}
	}
	return false
}

func collectCluster(start grid.Tile, narrow map[grid.Tile]candidate, seen map[grid.Tile]bool) []candidate {
	seen[start] = true
	queue := []grid.Tile{start}
	var out []candidate
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, narrow[cur])
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				n := cur.Add(dx, dy)
				if _, ok := narrow[n]; ok && !seen[n] {
					seen[n] = true
					queue = append(queue, n)
				}
			}
		}
	}
	return out
}

// pickRepresentative returns the narrowest candidate, preferring the one
// closest to the cluster centroid, then the earliest in scan order.
func pickRepresentative(cluster []candidate) candidate {
	const eps = 1e-9
	minW := math.Inf(1)
	var cx, cy float64
	for _, c := range cluster {
		minW = min(minW, c.width)
		cx += float64(c.tile.X)
		cy += float64(c.tile.Y)
	}
	cx /= float64(len(cluster))
	cy /= float64(len(cluster))

	var best candidate
	bestD := math.Inf(1)
	for _, c := range cluster {
		if c.width > minW+eps {
			continue
		}
		d := math.Hypot(float64(c.tile.X)-cx, float64(c.tile.Y)-cy)
		if d < bestD-eps || (math.Abs(d-bestD) <= eps && scanLess(c.tile, best.tile)) {
			best, bestD = c, d
		}
	}
	return best
}

func scanLess(a, b grid.Tile) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Y < b.Y
}
