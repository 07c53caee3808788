package grid

import "math"

// TileSize is the world length of one tile edge.
const TileSize = 1.0

// Tile is an integer tile index into the map arrays.
type Tile struct {
	X, Y int
}

// Point2 is a world-space position.
type Point2 struct {
	X, Y float64
}

// Pt is shorthand for Point2{x, y}.
func Pt(x, y float64) Point2 {
	return Point2{X: x, Y: y}
}

// Dist returns the Euclidean distance between two world points.
func (p Point2) Dist(q Point2) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Add returns the tile offset by (dx, dy).
func (t Tile) Add(dx, dy int) Tile {
	return Tile{X: t.X + dx, Y: t.Y + dy}
}

// TileDist returns the world distance between two tile centres.
func TileDist(a, b Tile) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y)) * TileSize
}

// TileOf converts a world position to the tile containing it.
func TileOf(p Point2) Tile {
	return Tile{
		X: int(math.Floor(p.X / TileSize)),
		Y: int(math.Floor(p.Y / TileSize)),
	}
}

// Center returns the world position of the centre of a tile.
func Center(t Tile) Point2 {
	return Point2{
		X: (float64(t.X) + 0.5) * TileSize,
		Y: (float64(t.Y) + 0.5) * TileSize,
	}
}

// Rect is a half-open tile rectangle: X0 <= x < X1, Y0 <= y < Y1.
type Rect struct {
	X0, Y0, X1, Y1 int
}

// Contains reports whether t lies inside r.
func (r Rect) Contains(t Tile) bool {
	return t.X >= r.X0 && t.X < r.X1 && t.Y >= r.Y0 && t.Y < r.Y1
}

// Empty reports whether r covers no tiles.
func (r Rect) Empty() bool {
	return r.X0 >= r.X1 || r.Y0 >= r.Y1
}

// Intersect returns the overlap of r and o (possibly empty).
func (r Rect) Intersect(o Rect) Rect {
	return Rect{
		X0: max(r.X0, o.X0),
		Y0: max(r.Y0, o.Y0),
		X1: min(r.X1, o.X1),
		Y1: min(r.Y1, o.Y1),
	}
}

// Around returns the square rectangle of tiles within radius r (in tiles) of t.
func Around(t Tile, r int) Rect {
	return Rect{X0: t.X - r, Y0: t.Y - r, X1: t.X + r + 1, Y1: t.Y + r + 1}
}

// CircleRect returns the tile rectangle covering a world circle.
func CircleRect(c Point2, radius float64) Rect {
	return Rect{
		X0: int(math.Floor((c.X - radius) / TileSize)),
		Y0: int(math.Floor((c.Y - radius) / TileSize)),
		X1: int(math.Floor((c.X+radius)/TileSize)) + 1,
		Y1: int(math.Floor((c.Y+radius)/TileSize)) + 1,
	}
}
