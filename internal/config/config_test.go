package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAnalyzerMissingFile(t *testing.T) {
	cfg, err := LoadAnalyzer(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultAnalyzer(), cfg)
}

func TestLoadAnalyzerOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analyzer.yaml")
	data := `
log_level: debug
maps: [maps/plateau.yaml]
workers: 3
choke:
  max_width: 6
tactical:
  unit_radius: 2
  range: 9
pathfinding:
  heuristic: euclidean
database:
  host: db
  port: 6543
store_snapshots: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := LoadAnalyzer(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"maps/plateau.yaml"}, cfg.Maps)
	assert.Equal(t, 3, cfg.Workers)
	assert.InDelta(t, 6.0, cfg.Choke.MaxWidth, 1e-9)
	assert.InDelta(t, 2.0, cfg.Choke.MinWidening, 1e-9, "unset keys keep defaults")
	assert.Equal(t, 12, cfg.Choke.ProbeDepth)
	assert.InDelta(t, 2.0, cfg.Tactical.UnitRadius, 1e-9)
	assert.InDelta(t, 9.0, cfg.Tactical.Range, 1e-9)
	assert.Equal(t, 2, cfg.Tactical.Stride)
	assert.Equal(t, "euclidean", cfg.Pathfinding.Heuristic)
	assert.True(t, cfg.StoreSnapshots)
	assert.Equal(t, int32(4), cfg.Database.MaxConns)
	assert.Equal(t, "postgres://sc2path:sc2path@db:6543/sc2path?sslmode=disable", cfg.Database.DSN())
}

func TestLoadAnalyzerErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "choke: [1, 2"},
		{"unknown heuristic", "pathfinding:\n  heuristic: manhattan\n"},
		{"zero max width", "choke:\n  max_width: 0\n"},
		{"negative workers", "workers: -1\n"},
		{"negative max conns", "database:\n  max_conns: -2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "analyzer.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.data), 0o600))

			_, err := LoadAnalyzer(path)
			assert.Error(t, err)
		})
	}
}

func TestDefaultAnalyzerIsValid(t *testing.T) {
	assert.NoError(t, DefaultAnalyzer().Validate())
}
