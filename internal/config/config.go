// Package config handles pipeline configuration loading and management.
package config

import (
	"time"

	"github.com/fabian-becker/Terrainy/pkg/heightmap"
)

// Config holds all pipeline settings.
type Config struct {
	Terrain TerrainConfig `yaml:"terrain"`
	Compose ComposeConfig `yaml:"compose"`
	Logging LoggingConfig `yaml:"logging"`
}

// TerrainConfig describes the covered world rectangle and grid.
type TerrainConfig struct {
	// Size of the terrain in world units.
	SizeX float32 `yaml:"size_x"`
	SizeY float32 `yaml:"size_y"`
	// Center of the terrain in world units.
	CenterX float32 `yaml:"center_x"`
	CenterY float32 `yaml:"center_y"`

	// Resolution is the grid cell count per axis, clamped to [16, 1024].
	Resolution int     `yaml:"resolution"`
	BaseHeight float32 `yaml:"base_height"`
}

// ComposeConfig holds rebuild scheduling and execution settings.
type ComposeConfig struct {
	AutoUpdate  bool          `yaml:"auto_update"`
	GPU         bool          `yaml:"gpu"`
	Debounce    time.Duration `yaml:"debounce"`
	MaxFeatures int           `yaml:"max_features"`
	Workers     int           `yaml:"workers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Resolution clamp range, shared with the raster type. Out-of-range
// values are clamped at the boundary, never reported as errors.
const (
	MinResolution = heightmap.MinResolution
	MaxResolution = heightmap.MaxResolution
)

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Terrain: TerrainConfig{
			SizeX:      512,
			SizeY:      512,
			Resolution: 256,
			BaseHeight: 0,
		},
		Compose: ComposeConfig{
			AutoUpdate:  true,
			GPU:         true,
			Debounce:    150 * time.Millisecond,
			MaxFeatures: 256,
			Workers:     0, // 0 = all cores
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Normalize clamps out-of-range values in place.
func (c *Config) Normalize() {
	if c.Terrain.Resolution < MinResolution {
		c.Terrain.Resolution = MinResolution
	}
	if c.Terrain.Resolution > MaxResolution {
		c.Terrain.Resolution = MaxResolution
	}
	if c.Terrain.SizeX <= 0 {
		c.Terrain.SizeX = 512
	}
	if c.Terrain.SizeY <= 0 {
		c.Terrain.SizeY = 512
	}
	if c.Compose.Debounce <= 0 {
		c.Compose.Debounce = 150 * time.Millisecond
	}
	if c.Compose.MaxFeatures <= 0 {
		c.Compose.MaxFeatures = 256
	}
}
