package tactical_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/sc2pathlib/internal/choke"
	"github.com/udisondev/sc2pathlib/internal/grid"
	"github.com/udisondev/sc2pathlib/internal/tactical"
	"github.com/udisondev/sc2pathlib/internal/testutil"
)

// rampChoke is the plateau ramp at (10,13)-(12,13).
func rampChoke() *choke.Set {
	return choke.NewSet([]choke.Choke{{A: grid.Tile{X: 10, Y: 13}, B: grid.Tile{X: 12, Y: 13}, MinWidth: 3}})
}

func tiles(ps []tactical.Position) []grid.Tile {
	out := make([]grid.Tile, len(ps))
	for i, p := range ps {
		out[i] = p.Tile
	}
	return out
}

func TestScore(t *testing.T) {
	assert.InDelta(t, 145.0, tactical.Score(true, 2, 3, 10), 1e-9)
	assert.InDelta(t, 0.0, tactical.Score(false, 8, 0, 0), 1e-9)
	assert.InDelta(t, 0.0, tactical.Score(false, 12, 0, 0), 1e-9, "neighbour count saturates at 8")
	assert.Greater(t, tactical.Score(false, 2, 0, 5), tactical.Score(false, 7, 0, 5))
}

func TestEvaluatePlateau(t *testing.T) {
	m := testutil.Terrain(t, testutil.PlateauRows...)
	e := tactical.New(m, rampChoke())

	got := e.Evaluate(tactical.SiegeTank())
	require.Equal(t, []grid.Tile{{X: 8, Y: 8}, {X: 8, Y: 10}, {X: 14, Y: 8}, {X: 14, Y: 10}}, tiles(got))

	for _, p := range got {
		assert.True(t, p.OnHighGround)
		assert.Equal(t, 8, p.WalkableNeighbors)
		assert.Equal(t, 1, p.ChokesInRange)
		assert.Equal(t, 3, p.Height)
		assert.InDelta(t, 71.0, p.Score, 1e-9)
		assert.Equal(t, grid.Center(p.Tile), p.Position)
	}
}

func TestEvaluateWithoutChokes(t *testing.T) {
	m := testutil.Terrain(t, testutil.PlateauRows...)

	got := tactical.New(m, nil).Evaluate(tactical.SiegeTank())
	require.Len(t, got, 4)
	for _, p := range got {
		assert.Zero(t, p.ChokesInRange)
		assert.InDelta(t, 56.0, p.Score, 1e-9)
	}
}

func TestEvaluateInvariants(t *testing.T) {
	maps := map[string]*grid.Map{
		"plateau":  testutil.Terrain(t, testutil.PlateauRows...),
		"corridor": testutil.Terrain(t, testutil.CorridorRows...),
	}
	for name, m := range maps {
		t.Run(name, func(t *testing.T) {
			set := choke.Detect(m, choke.DefaultOptions())
			params := tactical.SiegeTank()
			params.Stride = 1
			got := tactical.New(m, set).Evaluate(params)

			for i, p := range got {
				assert.Greater(t, p.Score, tactical.MinScore)
				if i > 0 {
					assert.GreaterOrEqual(t, got[i-1].Score, p.Score)
				}
				assert.True(t, m.Clear(p.Tile, 2), "footprint of %v", p.Tile)
				for dx := -2; dx <= 2; dx++ {
					for dy := -2; dy <= 2; dy++ {
						h, ok := m.HeightAt(p.Tile.Add(dx, dy))
						require.True(t, ok)
						assert.Equal(t, p.Height, h, "footprint of %v is not flat", p.Tile)
					}
				}
			}
		})
	}
}

func TestNear(t *testing.T) {
	m := testutil.Terrain(t, testutil.PlateauRows...)
	e := tactical.New(m, rampChoke())

	near := e.Near(grid.Pt(8.5, 8.5), 3, tactical.SiegeTank())
	assert.Equal(t, []grid.Tile{{X: 8, Y: 8}, {X: 8, Y: 10}}, tiles(near))

	all := e.Evaluate(tactical.SiegeTank())
	assert.Subset(t, all, e.Near(grid.Pt(11.5, 9.5), 4, tactical.SiegeTank()))
	assert.Empty(t, e.Near(grid.Pt(2.5, 15.5), 2, tactical.SiegeTank()))
}

func TestWithOverrides(t *testing.T) {
	m := testutil.Terrain(t, testutil.PlateauRows...)
	e := tactical.New(m, rampChoke())

	assert.Equal(t, e.Evaluate(tactical.SiegeTank()), e.WithOverrides(1.25, 13))
	assert.Empty(t, e.WithOverrides(3, 13), "a radius-3 footprint does not fit on high ground")

	short := e.WithOverrides(1.25, 1)
	require.Len(t, short, 4)
	for _, p := range short {
		assert.Zero(t, p.ChokesInRange)
	}
}

func TestReachableFrom(t *testing.T) {
	m := testutil.Terrain(t, testutil.PlateauRows...)
	isolated := m.WithBlocked(grid.Rect{X0: 10, Y0: 13, X1: 13, Y1: 14})
	e := tactical.New(isolated, nil)

	low := grid.Pt(2.5, 15.5)
	params := tactical.SiegeTank()
	params.ReachableFrom = &low
	assert.Empty(t, e.Evaluate(params), "the plateau is cut off from the low ground")

	top := grid.Pt(11.5, 8.5)
	params.ReachableFrom = &top
	assert.Len(t, e.Evaluate(params), 4)
}

func TestOnHighGround(t *testing.T) {
	m := testutil.Terrain(t, testutil.PlateauRows...)

	assert.True(t, tactical.OnHighGround(m, grid.Tile{X: 8, Y: 8}))
	assert.False(t, tactical.OnHighGround(m, grid.Tile{X: 10, Y: 8}), "too much plateau around the middle")
	assert.False(t, tactical.OnHighGround(m, grid.Tile{X: 20, Y: 8}))
	assert.False(t, tactical.OnHighGround(m, grid.Tile{X: -1, Y: 8}))
}

func TestOverlordSpots(t *testing.T) {
	m := testutil.Terrain(t, testutil.PlateauRows...)

	spots := tactical.OverlordSpots(m, 1)
	assert.Contains(t, spots, grid.Pt(5.5, 8.5), "plateau west wall")
	assert.Contains(t, spots, grid.Pt(11.5, 4.5), "plateau north wall")
	assert.NotContains(t, spots, grid.Pt(0.5, 8.5), "map border over flat ground")
	assert.NotContains(t, spots, grid.Pt(8.5, 8.5), "walkable tiles are never spots")

	assert.Empty(t, tactical.OverlordSpots(testutil.Terrain(t, testutil.CorridorRows...), 2))
}

func BenchmarkEvaluate(b *testing.B) {
	m := testutil.Terrain(b, testutil.PlateauRows...)
	e := tactical.New(m, choke.Detect(m, choke.DefaultOptions()))

	b.ReportAllocs()
	for range b.N {
		e.Evaluate(tactical.SiegeTank())
	}
}
