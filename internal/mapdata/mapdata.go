// Package mapdata loads terrain snapshots from YAML map files.
//
// A map file draws the terrain as text rows, top row first (y = 0):
//
//	'#'      wall: not walkable, not placeable
//	'.'      open ground at height 0
//	'0'-'9'  open ground at the given height
//	','      walkable but not placeable (ramps, rocks)
//	'^'      wall at height 9 (cliff top padding)
//
// An optional heights block overrides the height of every tile with digit rows.
package mapdata

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/sc2pathlib/internal/grid"
)

var (
	// ErrBadLegend is returned for characters outside the tile legend.
	ErrBadLegend = errors.New("mapdata: unknown tile character")
	// ErrRagged is returned when rows differ in length.
	ErrRagged = errors.New("mapdata: rows differ in length")
)

// File is the YAML representation of a terrain snapshot.
type File struct {
	Name    string       `yaml:"name"`
	Rows    []string     `yaml:"rows"`
	Heights []string     `yaml:"heights,omitempty"`
	Bounds  *BoundsEntry `yaml:"bounds,omitempty"`
	Bases   [][2]float64 `yaml:"bases,omitempty"`
}

// BoundsEntry is the playable rectangle in tile units.
type BoundsEntry struct {
	X0 int `yaml:"x0"`
	Y0 int `yaml:"y0"`
	X1 int `yaml:"x1"`
	Y1 int `yaml:"y1"`
}

// Load reads and parses a map file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading map %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing map %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a YAML map document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}
	if len(f.Rows) == 0 {
		return nil, fmt.Errorf("map %q has no rows: %w", f.Name, grid.ErrEmptyGrid)
	}
	return &f, nil
}

// Build converts the file into a grid.Map.
func (f *File) Build() (*grid.Map, error) {
	pathing, placement, heights, err := Grids(f.Rows)
	if err != nil {
		return nil, err
	}
	if len(f.Heights) > 0 {
		if err := overrideHeights(heights, f.Heights); err != nil {
			return nil, err
		}
	}

	bounds := grid.Rect{X1: len(pathing), Y1: len(pathing[0])}
	if f.Bounds != nil {
		bounds = grid.Rect{X0: f.Bounds.X0, Y0: f.Bounds.Y0, X1: f.Bounds.X1, Y1: f.Bounds.Y1}
	}

	m, err := grid.New(pathing, placement, heights, bounds)
	if err != nil {
		return nil, fmt.Errorf("building map %q: %w", f.Name, err)
	}
	return m, nil
}

// Seeds returns the base locations as world points.
func (f *File) Seeds() []grid.Point2 {
	seeds := make([]grid.Point2, 0, len(f.Bases))
	for _, b := range f.Bases {
		seeds = append(seeds, grid.Pt(b[0], b[1]))
	}
	return seeds
}

// Grids converts text rows into column-major pathing, placement and height grids.
func Grids(rows []string) (pathing, placement, heights [][]int, err error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, nil, nil, grid.ErrEmptyGrid
	}
	w, h := len(rows[0]), len(rows)

	pathing = alloc(w, h)
	placement = alloc(w, h)
	heights = alloc(w, h)

	for y, row := range rows {
		if len(row) != w {
			return nil, nil, nil, fmt.Errorf("row %d has %d tiles, want %d: %w", y, len(row), w, ErrRagged)
		}
		for x, c := range []byte(row) {
			switch {
			case c == '#':
			case c == '^':
				heights[x][y] = 9
			case c == '.':
				pathing[x][y], placement[x][y] = 1, 1
			case c == ',':
				pathing[x][y] = 1
			case c >= '0' && c <= '9':
				pathing[x][y], placement[x][y] = 1, 1
				heights[x][y] = int(c - '0')
			default:
				return nil, nil, nil, fmt.Errorf("tile %q at (%d,%d): %w", c, x, y, ErrBadLegend)
			}
		}
	}
	return pathing, placement, heights, nil
}

func overrideHeights(heights [][]int, rows []string) error {
	w, h := len(heights), len(heights[0])
	if len(rows) != h {
		return fmt.Errorf("heights block has %d rows, want %d: %w", len(rows), h, grid.ErrDimensionMismatch)
	}
	for y, row := range rows {
		if len(row) != w {
			return fmt.Errorf("heights row %d has %d tiles, want %d: %w", y, len(row), w, grid.ErrDimensionMismatch)
		}
		for x, c := range []byte(row) {
			if c < '0' || c > '9' {
				return fmt.Errorf("height %q at (%d,%d): %w", c, x, y, ErrBadLegend)
			}
			heights[x][y] = int(c - '0')
		}
	}
	return nil
}

func alloc(w, h int) [][]int {
	g := make([][]int, w)
	for x := range g {
		g[x] = make([]int, h)
	}
	return g
}
