// Package influence holds caller-owned per-tile cost overlays used to bias
// paths away from threats.
package influence

import (
	"math"
	"slices"

	"github.com/udisondev/sc2pathlib/internal/grid"
)

// Map is an additive weight per tile. Not safe for concurrent mutation;
// give each concurrent path query its own Map (Clone).
type Map struct {
	w, h    int
	weights []float64
}

// New creates an all-zero overlay matching the dimensions of m.
func New(m *grid.Map) *Map {
	w, h := m.Size()
	return NewSized(w, h)
}

// NewSized creates an all-zero overlay of w×h tiles.
func NewSized(w, h int) *Map {
	return &Map{w: w, h: h, weights: make([]float64, w*h)}
}

// Clone returns an independent copy.
func (im *Map) Clone() *Map {
	return &Map{w: im.w, h: im.h, weights: slices.Clone(im.weights)}
}

// Reset clears every weight back to zero.
func (im *Map) Reset() {
	clear(im.weights)
}

func (im *Map) inside(t grid.Tile) bool {
	return t.X >= 0 && t.Y >= 0 && t.X < im.w && t.Y < im.h
}

// Add adds v to the raw weight of t. Tiles outside the overlay are ignored.
func (im *Map) Add(t grid.Tile, v float64) {
	if im.inside(t) {
		im.weights[t.X*im.h+t.Y] += v
	}
}

// At returns the raw accumulated weight of t (may be negative).
func (im *Map) At(t grid.Tile) float64 {
	if !im.inside(t) {
		return 0
	}
	return im.weights[t.X*im.h+t.Y]
}

// Weight returns the traversal cost contribution of t: the raw weight clamped
// at zero, so an overlay never makes a step cheaper than plain terrain.
func (im *Map) Weight(t grid.Tile) float64 {
	return max(0, im.At(t))
}

// AddCircle adds value at each centre, falling off linearly to zero at radius.
func (im *Map) AddCircle(centers []grid.Point2, value, radius float64) {
	im.add(centers, radius, func(d float64) float64 {
		return value * (1 - d/radius)
	})
}

// AddFlat adds value to every tile whose centre lies within radius of a centre.
func (im *Map) AddFlat(centers []grid.Point2, value, radius float64) {
	im.add(centers, radius, func(float64) float64 {
		return value
	})
}

func (im *Map) add(centers []grid.Point2, radius float64, f func(d float64) float64) {
	if radius <= 0 {
		return
	}
	for _, c := range centers {
		r := grid.CircleRect(c, radius)
		for x := r.X0; x < r.X1; x++ {
			for y := r.Y0; y < r.Y1; y++ {
				t := grid.Tile{X: x, Y: y}
				if !im.inside(t) {
					continue
				}
				d := c.Dist(grid.Center(t))
				if d > radius {
					continue
				}
				im.weights[x*im.h+y] += f(d)
			}
		}
	}
}

// Lowest returns the walkable tile of m within radius of center that has the
// smallest weight. Ties go to the tile closer to center, then scan order.
func (im *Map) Lowest(m *grid.Map, center grid.Point2, radius float64) (grid.Tile, bool) {
	best, found := grid.Tile{}, false
	bestW, bestD := math.Inf(1), math.Inf(1)

	r := grid.CircleRect(center, radius)
	for x := r.X0; x < r.X1; x++ {
		for y := r.Y0; y < r.Y1; y++ {
			t := grid.Tile{X: x, Y: y}
			if !m.Walkable(t) {
				continue
			}
			d := center.Dist(grid.Center(t))
			if d > radius {
				continue
			}
			w := im.At(t)
			if w < bestW || (w == bestW && d < bestD) {
				best, bestW, bestD, found = t, w, d, true
			}
		}
	}
	return best, found
}
