package influence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/sc2pathlib/internal/grid"
)

func TestAddCircleFalloff(t *testing.T) {
	im := NewSized(20, 20)
	im.AddCircle([]grid.Point2{grid.Pt(10.5, 10.5)}, 10, 4)

	assert.InDelta(t, 10.0, im.At(grid.Tile{X: 10, Y: 10}), 1e-9)
	assert.InDelta(t, 5.0, im.At(grid.Tile{X: 12, Y: 10}), 1e-9)
	assert.InDelta(t, 0.0, im.At(grid.Tile{X: 14, Y: 10}), 1e-9)
	assert.Zero(t, im.At(grid.Tile{X: 15, Y: 10}))
}

func TestAddFlatStacksAndClamps(t *testing.T) {
	im := NewSized(10, 10)
	centers := []grid.Point2{grid.Pt(2.5, 2.5), grid.Pt(3.5, 2.5)}
	im.AddFlat(centers, 3, 1.5)

	assert.Equal(t, 6.0, im.At(grid.Tile{X: 3, Y: 2}), "both circles cover the tile")
	assert.Equal(t, 3.0, im.At(grid.Tile{X: 1, Y: 2}))

	im.AddFlat([]grid.Point2{grid.Pt(8.5, 8.5)}, -5, 0.5)
	assert.Equal(t, -5.0, im.At(grid.Tile{X: 8, Y: 8}))
	assert.Zero(t, im.Weight(grid.Tile{X: 8, Y: 8}), "negative weight never discounts a step")
	assert.Zero(t, im.Weight(grid.Tile{X: -1, Y: 0}))
}

func TestResetAndClone(t *testing.T) {
	im := NewSized(5, 5)
	im.Add(grid.Tile{X: 1, Y: 1}, 7)
	cp := im.Clone()
	im.Reset()

	assert.Zero(t, im.At(grid.Tile{X: 1, Y: 1}))
	assert.Equal(t, 7.0, cp.At(grid.Tile{X: 1, Y: 1}))
}

func TestLowest(t *testing.T) {
	rows := [][]int{}
	for range 9 {
		col := make([]int, 9)
		for y := range col {
			col[y] = 1
		}
		rows = append(rows, col)
	}
	rows[4][4] = 0 // blocked centre tile
	m, err := grid.NewFull(rows, rows, make2D(9, 9))
	require.NoError(t, err)

	im := New(m)
	im.AddCircle([]grid.Point2{grid.Pt(3.5, 4.5)}, 10, 6)

	got, ok := im.Lowest(m, grid.Pt(4.5, 4.5), 2)
	require.True(t, ok)
	assert.Equal(t, grid.Tile{X: 6, Y: 4}, got, "farthest walkable tile from the threat")

	_, ok = im.Lowest(m, grid.Pt(4.5, 4.5), 0.2)
	assert.False(t, ok, "only the blocked centre is inside the radius")
}

func make2D(w, h int) [][]int {
	g := make([][]int, w)
	for x := range g {
		g[x] = make([]int, h)
	}
	return g
}
