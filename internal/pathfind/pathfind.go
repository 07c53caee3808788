// Package pathfind implements grid A* over a grid.Map with large-unit
// clearance, influence costs, search windows and distance cutoffs.
package pathfind

import (
	"container/heap"
	"math"

	"github.com/udisondev/sc2pathlib/internal/grid"
	"github.com/udisondev/sc2pathlib/internal/influence"
)

// Heuristic selects the A* distance estimate.
type Heuristic int

const (
	// Octile is exact on an empty 8-connected grid.
	Octile Heuristic = iota
	// Euclidean is a looser but still admissible estimate.
	Euclidean
)

// Layer selects which terrain a unit moves over.
type Layer int

const (
	// Ground units follow the pathing grid.
	Ground Layer = iota
	// Air units ignore terrain and only stay inside the map bounds.
	Air
)

// Size is a unit footprint class.
type Size int

const (
	SizeSmall   Size = iota // marines, workers
	SizeMedium              // stalkers, tanks
	SizeLarge               // thors, ultralisks
	SizeMassive             // reserved for the biggest ground units
)

// Clearance returns the footprint radius in tiles a unit of this size needs.
func (s Size) Clearance() int {
	return max(0, int(s))
}

// Request describes one path query.
type Request struct {
	Start, Goal grid.Point2
	Layer       Layer
	Size        Size
	// LargeUnit enforces the Size clearance on every expanded tile.
	LargeUnit bool
	// Influence is read only when UseInfluence is set.
	Influence    *influence.Map
	UseInfluence bool
	Heuristic    Heuristic
	// Window restricts the search to a sub-rectangle. Nil searches the whole map.
	Window *grid.Rect
	// MaxDistance aborts the search once no path can be shorter. Zero disables it.
	MaxDistance float64
	// Smooth drops intermediate waypoints joined by a clear straight line.
	// Cost still reports the A* cost.
	Smooth bool
}

// Path is a found route. Waypoints are tile centres from start to goal.
type Path struct {
	Tiles     []grid.Tile
	Waypoints []grid.Point2
	Cost      float64
}

// Finder runs path queries against one immutable map.
// Queries allocate their own state, so a Finder is safe for concurrent use as
// long as concurrent requests do not share a mutating influence.Map.
type Finder struct {
	m *grid.Map
}

// New creates a Finder for m.
func New(m *grid.Map) *Finder {
	return &Finder{m: m}
}

// Map returns the terrain the finder searches.
func (f *Finder) Map() *grid.Map {
	return f.m
}

type direction struct {
	dx, dy   int
	diagonal bool
}

// Cardinals first (N, E, S, W), then diagonals (NE, SE, SW, NW).
var directions = [8]direction{
	{0, -1, false},
	{1, 0, false},
	{0, 1, false},
	{-1, 0, false},
	{1, -1, true},
	{1, 1, true},
	{-1, 1, true},
	{-1, -1, true},
}

// search holds the per-query A* state.
type search struct {
	f      *Finder
	req    *Request
	h      int
	g      []float64
	parent []int32
	closed []bool
	open   nodeHeap
	seq    uint64
}

func (f *Finder) newSearch(req *Request) *search {
	w, h := f.m.Size()
	s := &search{
		f:      f,
		req:    req,
		h:      h,
		g:      make([]float64, w*h),
		parent: make([]int32, w*h),
		closed: make([]bool, w*h),
	}
	for i := range s.g {
		s.g[i] = math.Inf(1)
		s.parent[i] = -1
	}
	return s
}

func (s *search) index(t grid.Tile) int32 {
	return int32(t.X*s.h + t.Y)
}

func (s *search) tile(i int32) grid.Tile {
	return grid.Tile{X: int(i) / s.h, Y: int(i) % s.h}
}

// traversable reports whether a unit may occupy t under the request rules.
func (s *search) traversable(t grid.Tile) bool {
	if s.req.Window != nil && !s.req.Window.Contains(t) {
		return false
	}
	m := s.f.m
	if s.req.Layer == Air {
		return m.InBounds(t)
	}
	if !m.Walkable(t) {
		return false
	}
	if s.req.LargeUnit {
		return m.Clear(t, s.req.Size.Clearance())
	}
	return true
}

func (s *search) stepCost(next grid.Tile, diagonal bool) float64 {
	c := grid.TileSize
	if diagonal {
		c = math.Sqrt2 * grid.TileSize
	}
	if s.req.UseInfluence && s.req.Influence != nil {
		c += s.req.Influence.Weight(next)
	}
	return c
}

func (s *search) estimate(a, b grid.Tile) float64 {
	dx := math.Abs(float64(a.X - b.X))
	dy := math.Abs(float64(a.Y - b.Y))
	if s.req.Heuristic == Euclidean {
		return math.Hypot(dx, dy) * grid.TileSize
	}
	lo, hi := min(dx, dy), max(dx, dy)
	return ((hi - lo) + math.Sqrt2*lo) * grid.TileSize
}

func (s *search) push(i int32, g, f float64) {
	s.seq++
	heap.Push(&s.open, &node{idx: i, g: g, f: f, seq: s.seq})
}

// expand relaxes every neighbour of cur. Diagonal moves need both adjacent
// cardinal tiles traversable (no corner cutting).
func (s *search) expand(cur grid.Tile, goal grid.Tile, useHeuristic bool) {
	ci := s.index(cur)
	for _, d := range directions {
		next := cur.Add(d.dx, d.dy)
		if !s.traversable(next) {
			continue
		}
		if d.diagonal && (!s.traversable(cur.Add(d.dx, 0)) || !s.traversable(cur.Add(0, d.dy))) {
			continue
		}

		ni := s.index(next)
		if s.closed[ni] {
			continue
		}
		g := s.g[ci] + s.stepCost(next, d.diagonal)
		if g >= s.g[ni] {
			continue
		}
		s.g[ni] = g
		s.parent[ni] = ci
		f := g
		if useHeuristic {
			f += s.estimate(next, goal)
		}
		s.push(ni, g, f)
	}
}

// startTile validates the start of a query. Ground units may start on a
// walkable tile that lacks clearance: the unit is already standing there.
func (s *search) startTile() (grid.Tile, bool) {
	t := grid.TileOf(s.req.Start)
	if s.req.Window != nil && !s.req.Window.Contains(t) {
		return t, false
	}
	if s.req.Layer == Air {
		return t, s.f.m.InBounds(t)
	}
	return t, s.f.m.Walkable(t)
}

// Find runs A* for req. ok is false when the goal is unreachable, outside the
// window, or further than MaxDistance.
func (f *Finder) Find(req Request) (Path, bool) {
	s := f.newSearch(&req)

	start, ok := s.startTile()
	if !ok {
		return Path{}, false
	}
	goal := grid.TileOf(req.Goal)
	if start == goal {
		return Path{
			Tiles:     []grid.Tile{goal},
			Waypoints: []grid.Point2{grid.Center(goal)},
		}, true
	}
	if !s.traversable(goal) {
		return Path{}, false
	}

	si := s.index(start)
	s.g[si] = 0
	s.push(si, 0, s.estimate(start, goal))

	gi := s.index(goal)
	for s.open.Len() > 0 {
		n := heap.Pop(&s.open).(*node)
		if s.closed[n.idx] || n.g > s.g[n.idx] {
			continue
		}
		if req.MaxDistance > 0 && n.f > req.MaxDistance {
			return Path{}, false
		}
		if n.idx == gi {
			return s.reconstruct(gi), true
		}
		s.closed[n.idx] = true
		s.expand(s.tile(n.idx), goal, true)
	}
	return Path{}, false
}

func (s *search) reconstruct(gi int32) Path {
	tiles := make([]grid.Tile, 0, 32)
	for i := gi; i != -1; i = s.parent[i] {
		tiles = append(tiles, s.tile(i))
	}
	// Reverse (A* builds path backward)
	for i, j := 0, len(tiles)-1; i < j; i, j = i+1, j-1 {
		tiles[i], tiles[j] = tiles[j], tiles[i]
	}
	if s.req.Smooth {
		tiles = s.smooth(tiles)
	}

	path := Path{
		Tiles:     tiles,
		Waypoints: make([]grid.Point2, len(tiles)),
		Cost:      s.g[gi],
	}
	for i, t := range tiles {
		path.Waypoints[i] = grid.Center(t)
	}
	return path
}

// smooth removes intermediate waypoints that can be skipped on a straight
// line. Up to 3 passes progressively simplify the path.
func (s *search) smooth(tiles []grid.Tile) []grid.Tile {
	for range 3 {
		if len(tiles) <= 2 {
			return tiles
		}

		changed := false
		smoothed := make([]grid.Tile, 0, len(tiles))
		smoothed = append(smoothed, tiles[0])
		for i := 1; i < len(tiles)-1; i++ {
			prev := smoothed[len(smoothed)-1]
			if s.lineClear(prev, tiles[i+1]) {
				changed = true
				continue
			}
			smoothed = append(smoothed, tiles[i])
		}
		smoothed = append(smoothed, tiles[len(tiles)-1])
		tiles = smoothed

		if !changed {
			break
		}
	}
	return tiles
}

func (s *search) lineClear(a, b grid.Tile) bool {
	if s.req.Layer == Air {
		return true
	}
	r := 0
	if s.req.LargeUnit {
		r = s.req.Size.Clearance()
	}
	return s.f.m.LineClear(a, b, r)
}

// Destination is a tile reachable from a start position and its path cost.
type Destination struct {
	Tile grid.Tile
	Cost float64
}

// Reachable floods outward from req.Start (Dijkstra) and returns every
// reachable tile in order of increasing cost. Goal, Heuristic and Smooth are
// ignored; MaxDistance caps the flood when positive.
func (f *Finder) Reachable(req Request) []Destination {
	s := f.newSearch(&req)
	start, ok := s.startTile()
	if !ok {
		return nil
	}

	si := s.index(start)
	s.g[si] = 0
	s.push(si, 0, 0)

	var out []Destination
	for s.open.Len() > 0 {
		n := heap.Pop(&s.open).(*node)
		if s.closed[n.idx] || n.g > s.g[n.idx] {
			continue
		}
		if req.MaxDistance > 0 && n.g > req.MaxDistance {
			break
		}
		s.closed[n.idx] = true
		t := s.tile(n.idx)
		out = append(out, Destination{Tile: t, Cost: n.g})
		s.expand(t, t, false)
	}
	return out
}

// node is an open-list entry. Entries are never updated in place: an improved
// cost pushes a new entry and stale ones are skipped on pop.
type node struct {
	idx   int32
	g, f  float64
	seq   uint64
	index int // heap index
}

// nodeHeap implements container/heap for the open list: min f, then FIFO.
type nodeHeap []*node

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].seq < h[j].seq
}
func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *nodeHeap) Push(x any)   { n := x.(*node); n.index = len(*h); *h = append(*h, n) }
func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	nd := old[n-1]
	old[n-1] = nil // GC
	nd.index = -1
	*h = old[:n-1]
	return nd
}
