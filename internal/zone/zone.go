// Package zone labels connected walkable regions of a grid.Map, seeded from
// base locations.
package zone

import (
	"log/slog"
	"time"

	"github.com/udisondev/sc2pathlib/internal/grid"
)

// NoZone labels tiles that no seed reached.
const NoZone = 0

// SeedSnapRadius is how far (in tiles) a seed on a blocked tile is moved to
// the nearest walkable tile. Base locations usually sit on a town hall footprint.
const SeedSnapRadius = 8

// Zones is an immutable zone-labelled snapshot of a map.
// Safe for concurrent reads.
type Zones struct {
	m      *grid.Map
	labels []int32 // column-major, same layout as the map
	height int
	seeds  []grid.Tile // seeds[id-1] is the tile that created zone id
	sizes  []int       // sizes[id-1] is the number of tiles in zone id
}

// Segment flood-fills from each seed in order. A seed whose tile is already
// labelled creates no zone, so the first seed reaching a component owns it.
// Connectivity follows the path finder: diagonal steps require both adjacent
// orthogonal tiles to be walkable, which makes 4-neighbour flooding exact.
func Segment(m *grid.Map, seeds []grid.Point2) *Zones {
	start := time.Now()
	w, h := m.Size()
	z := &Zones{
		m:      m,
		labels: make([]int32, w*h),
		height: h,
	}

	queue := make([]grid.Tile, 0, 256)
	for _, seed := range seeds {
		tile, ok := m.NearestWalkable(grid.TileOf(seed), SeedSnapRadius)
		if !ok {
			slog.Debug("zone seed skipped, no walkable tile nearby", "x", seed.X, "y", seed.Y)
			continue
		}
		if z.label(tile) != NoZone {
			continue
		}

		id := int32(len(z.seeds) + 1)
		z.seeds = append(z.seeds, tile)
		size := 0

		queue = append(queue[:0], tile)
		z.labels[z.index(tile)] = id
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			size++

			for _, d := range [4][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}} {
				next := cur.Add(d[0], d[1])
				if !m.Walkable(next) || z.labels[z.index(next)] != NoZone {
					continue
				}
				z.labels[z.index(next)] = id
				queue = append(queue, next)
			}
		}
		z.sizes = append(z.sizes, size)
	}

	slog.Debug("zones segmented",
		"seeds", len(seeds),
		"zones", len(z.seeds),
		"elapsed", time.Since(start))
	return z
}

func (z *Zones) index(t grid.Tile) int {
	return t.X*z.height + t.Y
}

func (z *Zones) label(t grid.Tile) int {
	if !z.m.InBounds(t) {
		return NoZone
	}
	return int(z.labels[z.index(t)])
}

// Count returns the number of zones created.
func (z *Zones) Count() int {
	return len(z.seeds)
}

// AtTile returns the zone of t. ok is false for unlabelled or out-of-bounds tiles.
func (z *Zones) AtTile(t grid.Tile) (int, bool) {
	id := z.label(t)
	return id, id != NoZone
}

// At maps a world position to the zone of the containing walkable tile, or of
// the nearest walkable tile when the position is blocked.
func (z *Zones) At(p grid.Point2) (int, bool) {
	w, h := z.m.Size()
	tile, ok := z.m.NearestWalkable(grid.TileOf(p), max(w, h))
	if !ok {
		return NoZone, false
	}
	return z.AtTile(tile)
}

// Seed returns the tile that created zone id.
func (z *Zones) Seed(id int) (grid.Tile, bool) {
	if id < 1 || id > len(z.seeds) {
		return grid.Tile{}, false
	}
	return z.seeds[id-1], true
}

// Size returns the number of tiles labelled id.
func (z *Zones) Size(id int) int {
	if id < 1 || id > len(z.sizes) {
		return 0
	}
	return z.sizes[id-1]
}

// Grid returns a fresh column-major copy of the labels, NoZone where unlabelled.
func (z *Zones) Grid() [][]int {
	w, h := z.m.Size()
	out := make([][]int, w)
	for x := range out {
		out[x] = make([]int, h)
		for y := range out[x] {
			out[x][y] = int(z.labels[x*h+y])
		}
	}
	return out
}
