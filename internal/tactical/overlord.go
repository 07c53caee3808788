package tactical

import (
	"github.com/udisondev/sc2pathlib/internal/grid"
)

// OverlordRadius is the half-size of the square an overlord spot overlooks.
const OverlordRadius = 3

// OverlordSpots returns centres of in-bounds unwalkable tiles, sampled every
// stride tiles, whose surrounding square holds walkable ground at two or more
// heights. Air units parked there watch a cliff that ground units cannot
// climb to. Order is x-major.
func OverlordSpots(m *grid.Map, stride int) []grid.Point2 {
	if stride <= 0 {
		stride = 1
	}
	b := m.Bounds()
	var out []grid.Point2
	for x := b.X0; x < b.X1; x += stride {
		for y := b.Y0; y < b.Y1; y += stride {
			t := grid.Tile{X: x, Y: y}
			if m.Walkable(t) {
				continue
			}
			if overlooksCliff(m, t) {
				out = append(out, grid.Center(t))
			}
		}
	}
	return out
}

func overlooksCliff(m *grid.Map, t grid.Tile) bool {
	lo, hi, seen := 0, 0, false
	for dx := -OverlordRadius; dx <= OverlordRadius; dx++ {
		for dy := -OverlordRadius; dy <= OverlordRadius; dy++ {
			n := t.Add(dx, dy)
			if !m.Walkable(n) {
				continue
			}
			h, _ := m.HeightAt(n)
			if !seen {
				lo, hi, seen = h, h, true
				continue
			}
			lo, hi = min(lo, h), max(hi, h)
		}
	}
	return seen && hi > lo
}
