// Package main is the entry point for the terrainy CLI: it composes a
// scene of terrain features into a heightmap and mesh and exports them.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/fabian-becker/Terrainy/internal/compose"
	"github.com/fabian-becker/Terrainy/internal/config"
	"github.com/fabian-becker/Terrainy/internal/gpu"
	"github.com/fabian-becker/Terrainy/internal/logger"
	"github.com/fabian-becker/Terrainy/pkg/heightmap"
)

var (
	flagScene       = flag.String("scene", "", "Path to scene file (YAML)")
	flagHeightOut   = flag.String("out", "heightmap.pgm", "Heightmap output path (PGM)")
	flagMeshOut     = flag.String("mesh", "", "Mesh output path (OBJ), empty to skip")
	flagWriteConfig = flag.Bool("write-config", false, "Write current config to the user config dir and exit")
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Terrainy ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if *flagWriteConfig {
		if err := cfg.Save(); err != nil {
			logger.Error("failed to write config", zap.Error(err))
			os.Exit(1)
		}
		logger.Info("config written", zap.String("dir", config.ConfigDir()))
		return
	}

	if *flagScene == "" {
		fmt.Fprintln(os.Stderr, "Usage: terrainy -scene <scene.yaml> [-out heightmap.pgm] [-mesh terrain.obj]")
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		logger.Error("terrainy failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	features, err := loadScene(*flagScene)
	if err != nil {
		return err
	}
	logger.Info("scene loaded",
		zap.String("path", *flagScene),
		zap.Int("features", len(features)))

	var backend compose.Backend
	if cfg.Compose.GPU {
		gb := gpu.New(logger.Log)
		if gb.Available() {
			backend = gb
			defer gb.Release()
		}
	}

	composer := compose.NewComposer(compose.Options{
		Bounds: heightmap.CenteredRect2(
			mgl32.Vec2{cfg.Terrain.CenterX, cfg.Terrain.CenterY},
			mgl32.Vec2{cfg.Terrain.SizeX, cfg.Terrain.SizeY}),
		Resolution:  cfg.Terrain.Resolution,
		BaseHeight:  cfg.Terrain.BaseHeight,
		AutoUpdate:  cfg.Compose.AutoUpdate,
		PreferGPU:   backend != nil,
		Debounce:    cfg.Compose.Debounce,
		MaxFeatures: cfg.Compose.MaxFeatures,
		Workers:     cfg.Compose.Workers,
	}, backend, logger.Log)
	defer composer.Close()

	for _, f := range features {
		composer.AddFeature(f)
	}

	start := time.Now()
	composer.Rebuild()

	var result *compose.Result
	for result == nil {
		if r, ok := composer.Poll(); ok {
			result = r
			break
		}
		if time.Since(start) > 2*time.Minute {
			return fmt.Errorf("composition timed out")
		}
		time.Sleep(5 * time.Millisecond)
	}

	lo, hi := result.Heightmap.MinMax()
	logger.Info("composition finished",
		zap.Duration("elapsed", result.Elapsed),
		zap.Int("resolution", result.Heightmap.Width),
		zap.Float32("min_height", lo),
		zap.Float32("max_height", hi),
		zap.Int("vertices", len(result.Mesh.Vertices)),
		zap.Int("triangles", len(result.Mesh.Indices)/3))

	cache := composer.Compositor().Cache()
	logger.Debug("cache stats",
		zap.Int("height_hits", cache.HeightHits),
		zap.Int("height_misses", cache.HeightMisses),
		zap.Int("influence_hits", cache.InfluenceHits),
		zap.Int("influence_misses", cache.InfluenceMisses))

	if err := writePGM(*flagHeightOut, result.Heightmap); err != nil {
		return fmt.Errorf("writing heightmap: %w", err)
	}
	logger.Info("heightmap written", zap.String("path", *flagHeightOut))

	if *flagMeshOut != "" {
		if err := writeOBJ(*flagMeshOut, result.Mesh); err != nil {
			return fmt.Errorf("writing mesh: %w", err)
		}
		logger.Info("mesh written", zap.String("path", *flagMeshOut))
	}

	return nil
}
