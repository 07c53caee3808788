package testutil

import (
	"strings"
	"testing"

	"github.com/udisondev/sc2pathlib/internal/grid"
	"github.com/udisondev/sc2pathlib/internal/mapdata"
)

// Terrain строит grid.Map из текстовых строк (легенда mapdata, y = номер строки).
func Terrain(tb testing.TB, rows ...string) *grid.Map {
	tb.Helper()

	pathing, placement, heights, err := mapdata.Grids(rows)
	if err != nil {
		tb.Fatalf("parsing terrain rows: %v", err)
	}
	m, err := grid.NewFull(pathing, placement, heights)
	if err != nil {
		tb.Fatalf("building terrain: %v", err)
	}
	return m
}

// OpenTerrain возвращает полностью проходимую карту w×h высоты 0.
func OpenTerrain(tb testing.TB, w, h int) *grid.Map {
	tb.Helper()

	rows := make([]string, h)
	for y := range rows {
		rows[y] = strings.Repeat(".", w)
	}
	return Terrain(tb, rows...)
}

// CorridorRows: две комнаты, соединённые коридором шириной 3 тайла.
// Коридор: x 12..17, y 9..11.
var CorridorRows = []string{
	"##############################",
	"#...........######...........#",
	"#...........######...........#",
	"#...........######...........#",
	"#...........######...........#",
	"#...........######...........#",
	"#...........######...........#",
	"#...........######...........#",
	"#...........######...........#",
	"#............................#",
	"#............................#",
	"#............................#",
	"#...........######...........#",
	"#...........######...........#",
	"#...........######...........#",
	"#...........######...........#",
	"#...........######...........#",
	"#...........######...........#",
	"#...........######...........#",
	"##############################",
}

// PlateauRows: низина высоты 1 с плато высоты 3 в центре и пандусом на юг.
var PlateauRows = []string{
	"########################",
	"#1111111111111111111111#",
	"#1111111111111111111111#",
	"#1111111111111111111111#",
	"#1111#############11111#",
	"#1111#33333333333#11111#",
	"#1111#33333333333#11111#",
	"#1111#33333333333#11111#",
	"#1111#33333333333#11111#",
	"#1111#33333333333#11111#",
	"#1111#33333333333#11111#",
	"#1111#33333333333#11111#",
	"#1111#33333333333#11111#",
	"#1111#####222#####11111#",
	"#1111111111111111111111#",
	"#1111111111111111111111#",
	"#1111111111111111111111#",
	"########################",
}
