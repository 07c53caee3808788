package vision_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/sc2pathlib/internal/grid"
	"github.com/udisondev/sc2pathlib/internal/testutil"
	"github.com/udisondev/sc2pathlib/internal/vision"
)

func levelAt(t *testing.T, f *vision.Field, x, y float64) vision.Level {
	t.Helper()
	l, err := f.Level(grid.Pt(x, y))
	require.NoError(t, err)
	return l
}

func TestPlainAndDetector(t *testing.T) {
	f := vision.New(testutil.OpenTerrain(t, 40, 30))
	f.Accumulate(
		vision.Unit{Position: grid.Pt(10.5, 15.5), SightRange: 9},
		vision.Unit{Position: grid.Pt(22.5, 15.5), SightRange: 11, Detector: true},
	)
	f.Finalize()

	assert.Equal(t, vision.Detected, levelAt(t, f, 16.5, 15.5), "inside both radii")
	assert.Equal(t, vision.Seen, levelAt(t, f, 3.5, 15.5), "inside the plain observer only")
	assert.Equal(t, vision.Detected, levelAt(t, f, 32.5, 15.5), "inside the detector only")
	assert.Equal(t, vision.Unseen, levelAt(t, f, 0.5, 0.5))
}

func TestResetClearsEverything(t *testing.T) {
	m := testutil.OpenTerrain(t, 20, 20)
	f := vision.New(m)
	f.Accumulate(vision.Unit{Position: grid.Pt(10, 10), SightRange: 30, Detector: true})
	f.Finalize()
	require.Equal(t, vision.Detected, levelAt(t, f, 0.5, 0.5))

	f.Reset()
	_, err := f.Level(grid.Pt(0.5, 0.5))
	require.ErrorIs(t, err, vision.ErrNotFinalized)

	f.Finalize()
	samples, err := f.Sample(1)
	require.NoError(t, err)
	require.Len(t, samples, 400)
	for _, s := range samples {
		assert.Equal(t, vision.Unseen, s.Level, "at %v", s.Position)
	}
}

func TestAccumulateOrderIndependent(t *testing.T) {
	m := testutil.OpenTerrain(t, 48, 48)
	rng := rand.New(rand.NewPCG(7, 11))
	units := make([]vision.Unit, 12)
	for i := range units {
		units[i] = vision.Unit{
			Position:   grid.Pt(rng.Float64()*48, rng.Float64()*48),
			SightRange: 3 + rng.Float64()*8,
			Detector:   i%4 == 0,
		}
	}

	levels := func(order []vision.Unit, twice bool) []vision.Sample {
		f := vision.New(m)
		for _, u := range order {
			f.Accumulate(u)
			if twice {
				f.Accumulate(u)
			}
		}
		f.Finalize()
		s, err := f.Sample(1)
		require.NoError(t, err)
		return s
	}

	want := levels(units, false)
	for range 5 {
		shuffled := append([]vision.Unit(nil), units...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, want, levels(shuffled, false))
	}
	assert.Equal(t, want, levels(units, true), "accumulating twice changes nothing")

	// Each tile equals the strongest single observer covering it.
	for _, s := range want {
		var best vision.Level
		for _, u := range units {
			if u.Position.Dist(s.Position) <= u.SightRange {
				l := vision.Seen
				if u.Detector {
					l = vision.Detected
				}
				best = max(best, l)
			}
		}
		assert.Equal(t, best, s.Level, "at %v", s.Position)
	}
}

func TestLevelErrors(t *testing.T) {
	f := vision.New(testutil.OpenTerrain(t, 10, 10))

	_, err := f.Level(grid.Pt(1, 1))
	assert.ErrorIs(t, err, vision.ErrNotFinalized)

	f.Finalize()
	_, err = f.Level(grid.Pt(-1, 1))
	assert.ErrorIs(t, err, grid.ErrOutOfBounds)
	_, err = f.Level(grid.Pt(3, 10.5))
	assert.ErrorIs(t, err, grid.ErrOutOfBounds)

	f.Accumulate(vision.Unit{Position: grid.Pt(5, 5), SightRange: 2})
	_, err = f.Level(grid.Pt(5, 5))
	assert.ErrorIs(t, err, vision.ErrNotFinalized, "accumulating reopens the cycle")
}

func TestHighGroundBlocksGroundSight(t *testing.T) {
	m := testutil.Terrain(t, testutil.PlateauRows...)

	f := vision.New(m)
	f.Accumulate(vision.Unit{Position: grid.Pt(3.5, 8.5), SightRange: 10})
	f.Finalize()
	assert.Equal(t, vision.Seen, levelAt(t, f, 2.5, 8.5))
	assert.Equal(t, vision.Unseen, levelAt(t, f, 8.5, 8.5), "plateau is higher than the observer")

	f.Reset()
	f.Accumulate(vision.Unit{Position: grid.Pt(3.5, 8.5), SightRange: 10, Flying: true})
	f.Finalize()
	assert.Equal(t, vision.Seen, levelAt(t, f, 8.5, 8.5), "flying observers see over cliffs")

	f.Reset()
	f.Accumulate(vision.Unit{Position: grid.Pt(8.5, 8.5), SightRange: 6})
	f.Finalize()
	assert.Equal(t, vision.Seen, levelAt(t, f, 3.5, 8.5), "looking down is fine")
}

func TestEveryTileInRadiusIsRaised(t *testing.T) {
	tests := []struct {
		name string
		m    *grid.Map
		unit vision.Unit
	}{
		{"ground on level terrain", testutil.OpenTerrain(t, 20, 20),
			vision.Unit{Position: grid.Pt(9.5, 9.5), SightRange: 6}},
		{"flying over a plateau", testutil.Terrain(t, testutil.PlateauRows...),
			vision.Unit{Position: grid.Pt(3.5, 8.5), SightRange: 9, Flying: true, Detector: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := vision.New(tt.m)
			f.Accumulate(tt.unit)
			f.Finalize()

			want := vision.Seen
			if tt.unit.Detector {
				want = vision.Detected
			}
			w, h := tt.m.Size()
			for x := range w {
				for y := range h {
					tile := grid.Tile{X: x, Y: y}
					got, err := f.LevelAt(tile)
					require.NoError(t, err)
					if tt.unit.Position.Dist(grid.Center(tile)) <= tt.unit.SightRange {
						assert.Equal(t, want, got, "tile %v", tile)
					} else {
						assert.Equal(t, vision.Unseen, got, "tile %v", tile)
					}
				}
			}
		})
	}
}

func TestVisibleAndFog(t *testing.T) {
	f := vision.New(testutil.OpenTerrain(t, 20, 20))
	f.Accumulate(vision.Unit{Position: grid.Pt(5.5, 5.5), SightRange: 1})
	f.Finalize()

	visible, err := f.Visible(1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []grid.Point2{
		grid.Pt(5.5, 5.5),
		grid.Pt(4.5, 5.5), grid.Pt(6.5, 5.5),
		grid.Pt(5.5, 4.5), grid.Pt(5.5, 6.5),
	}, visible)

	coarse, err := f.Visible(2)
	require.NoError(t, err)
	assert.Subset(t, visible, coarse)

	fog, err := f.FogTiles(grid.Pt(5.5, 5.5), 1.5)
	require.NoError(t, err)
	assert.Equal(t, []grid.Tile{{X: 4, Y: 4}, {X: 4, Y: 6}, {X: 6, Y: 4}, {X: 6, Y: 6}}, fog)

	fog, err = f.FogTiles(grid.Pt(-10, -10), 2)
	require.NoError(t, err)
	assert.Empty(t, fog)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "detected", vision.Detected.String())
	assert.Equal(t, "level(7)", vision.Level(7).String())
}

func BenchmarkAccumulate(b *testing.B) {
	m := testutil.OpenTerrain(b, 200, 200)
	f := vision.New(m)
	units := make([]vision.Unit, 100)
	for i := range units {
		units[i] = vision.Unit{
			Position:   grid.Pt(float64(i*2%200), float64(i*7%200)),
			SightRange: 11,
			Detector:   i%10 == 0,
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		f.Reset()
		f.Accumulate(units...)
		f.Finalize()
	}
}
