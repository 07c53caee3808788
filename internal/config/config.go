package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Analyzer holds all configuration for the map analyzer.
type Analyzer struct {
	LogLevel string `yaml:"log_level"`

	// Map files to analyze when none are given on the command line
	Maps []string `yaml:"maps"`

	// Parallel analyses (0 = one per CPU)
	Workers int `yaml:"workers"`

	Choke       ChokeConfig       `yaml:"choke"`
	Tactical    TacticalConfig    `yaml:"tactical"`
	Pathfinding PathfindingConfig `yaml:"pathfinding"`

	// Database
	Database       DatabaseConfig `yaml:"database"`
	StoreSnapshots bool           `yaml:"store_snapshots"`
}

// ChokeConfig tunes narrow-passage detection.
type ChokeConfig struct {
	MaxWidth    float64 `yaml:"max_width"`    // world units, exclusive
	MinWidening float64 `yaml:"min_widening"` // world units
	ProbeDepth  int     `yaml:"probe_depth"`  // tiles
}

// TacticalConfig describes the unit tactical positions are ranked for.
type TacticalConfig struct {
	UnitRadius float64 `yaml:"unit_radius"`
	Range      float64 `yaml:"range"`
	Stride     int     `yaml:"stride"`
}

// PathfindingConfig holds path query defaults.
type PathfindingConfig struct {
	Heuristic   string  `yaml:"heuristic"`    // octile | euclidean
	MaxDistance float64 `yaml:"max_distance"` // 0 = unlimited
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"` // 0 = pgx default
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// DefaultAnalyzer returns Analyzer config with sensible defaults.
func DefaultAnalyzer() Analyzer {
	return Analyzer{
		LogLevel: "info",
		Choke: ChokeConfig{
			MaxWidth:    8,
			MinWidening: 2,
			ProbeDepth:  12,
		},
		Tactical: TacticalConfig{
			UnitRadius: 1.25, // sieged tank
			Range:      13,
			Stride:     2,
		},
		Pathfinding: PathfindingConfig{
			Heuristic: "octile",
		},
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "sc2path",
			Password: "sc2path",
			DBName:   "sc2path",
			SSLMode:  "disable",
			MaxConns: 4,
		},
	}
}

// Validate rejects values the analyzer cannot run with.
func (a Analyzer) Validate() error {
	switch a.Pathfinding.Heuristic {
	case "", "octile", "euclidean":
	default:
		return fmt.Errorf("unknown heuristic %q", a.Pathfinding.Heuristic)
	}
	if a.Choke.MaxWidth <= 0 || a.Choke.ProbeDepth <= 0 {
		return errors.New("choke max_width and probe_depth must be positive")
	}
	if a.Tactical.UnitRadius < 0 || a.Tactical.Range < 0 {
		return errors.New("tactical unit_radius and range must not be negative")
	}
	if a.Database.MaxConns < 0 {
		return errors.New("database max_conns must not be negative")
	}
	if a.Workers < 0 {
		return errors.New("workers must not be negative")
	}
	return nil
}

// LoadAnalyzer loads analyzer config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadAnalyzer(path string) (Analyzer, error) {
	cfg := DefaultAnalyzer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}
