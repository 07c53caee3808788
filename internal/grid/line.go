package grid

// LineIterator walks the tiles of a 2D Bresenham line from start to end,
// both inclusive.
type LineIterator struct {
	cur, target  Tile
	dx, dy       int
	stepX, stepY int
	err          int
	started      bool
}

// NewLine creates a line iterator between two tiles.
func NewLine(from, to Tile) *LineIterator {
	it := &LineIterator{
		cur:    from,
		target: to,
		dx:     abs(to.X - from.X),
		dy:     -abs(to.Y - from.Y),
		stepX:  1,
		stepY:  1,
	}
	if from.X > to.X {
		it.stepX = -1
	}
	if from.Y > to.Y {
		it.stepY = -1
	}
	it.err = it.dx + it.dy
	return it
}

// Next advances to the next tile. Returns false once the target was emitted.
func (it *LineIterator) Next() bool {
	if !it.started {
		it.started = true
		return true
	}
	if it.cur == it.target {
		return false
	}

	e2 := 2 * it.err
	if e2 >= it.dy {
		it.err += it.dy
		it.cur.X += it.stepX
	}
	if e2 <= it.dx {
		it.err += it.dx
		it.cur.Y += it.stepY
	}
	return true
}

// Tile returns the current tile.
func (it *LineIterator) Tile() Tile { return it.cur }

// LineClear reports whether every tile on the straight line from a to b has a
// clear footprint of radius r. Diagonal steps also require both side tiles to
// be clear, so a line never cuts a corner the path finder would refuse.
func (m *Map) LineClear(a, b Tile, r int) bool {
	it := NewLine(a, b)
	it.Next()
	prev := it.Tile()
	if !m.Clear(prev, r) {
		return false
	}
	for it.Next() {
		cur := it.Tile()
		if !m.Clear(cur, r) {
			return false
		}
		if cur.X != prev.X && cur.Y != prev.Y {
			if !m.Clear(Tile{cur.X, prev.Y}, r) || !m.Clear(Tile{prev.X, cur.Y}, r) {
				return false
			}
		}
		prev = cur
	}
	return true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
