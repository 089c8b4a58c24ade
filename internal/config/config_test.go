package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Terrain.SizeX != 512 {
		t.Errorf("expected size_x 512, got %f", cfg.Terrain.SizeX)
	}
	if cfg.Terrain.SizeY != 512 {
		t.Errorf("expected size_y 512, got %f", cfg.Terrain.SizeY)
	}
	if cfg.Terrain.Resolution != 256 {
		t.Errorf("expected resolution 256, got %d", cfg.Terrain.Resolution)
	}
	if cfg.Terrain.BaseHeight != 0 {
		t.Errorf("expected base height 0, got %f", cfg.Terrain.BaseHeight)
	}

	if !cfg.Compose.AutoUpdate {
		t.Error("expected auto_update to be true by default")
	}
	if !cfg.Compose.GPU {
		t.Error("expected gpu to be true by default")
	}
	if cfg.Compose.Debounce != 150*time.Millisecond {
		t.Errorf("expected debounce 150ms, got %v", cfg.Compose.Debounce)
	}
	if cfg.Compose.MaxFeatures != 256 {
		t.Errorf("expected max features 256, got %d", cfg.Compose.MaxFeatures)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
}

func TestNormalize(t *testing.T) {
	cfg := Default()
	cfg.Terrain.Resolution = 4
	cfg.Normalize()
	if cfg.Terrain.Resolution != MinResolution {
		t.Errorf("expected resolution clamped to %d, got %d", MinResolution, cfg.Terrain.Resolution)
	}

	cfg.Terrain.Resolution = 9999
	cfg.Normalize()
	if cfg.Terrain.Resolution != MaxResolution {
		t.Errorf("expected resolution clamped to %d, got %d", MaxResolution, cfg.Terrain.Resolution)
	}

	cfg.Terrain.SizeX = -10
	cfg.Compose.Debounce = 0
	cfg.Compose.MaxFeatures = -1
	cfg.Normalize()
	if cfg.Terrain.SizeX != 512 {
		t.Errorf("expected size_x reset to 512, got %f", cfg.Terrain.SizeX)
	}
	if cfg.Compose.Debounce != 150*time.Millisecond {
		t.Errorf("expected debounce reset to 150ms, got %v", cfg.Compose.Debounce)
	}
	if cfg.Compose.MaxFeatures != 256 {
		t.Errorf("expected max features reset to 256, got %d", cfg.Compose.MaxFeatures)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "terrainy.yaml")

	yamlContent := `
terrain:
  size_x: 1024
  size_y: 768
  center_x: 10
  center_y: -20
  resolution: 512
  base_height: 5.5

compose:
  auto_update: false
  gpu: false
  debounce: 300ms
  max_features: 64
  workers: 4

logging:
  level: "debug"
  log_file: "terrainy.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Terrain.SizeX != 1024 {
		t.Errorf("expected size_x 1024, got %f", cfg.Terrain.SizeX)
	}
	if cfg.Terrain.SizeY != 768 {
		t.Errorf("expected size_y 768, got %f", cfg.Terrain.SizeY)
	}
	if cfg.Terrain.CenterX != 10 {
		t.Errorf("expected center_x 10, got %f", cfg.Terrain.CenterX)
	}
	if cfg.Terrain.Resolution != 512 {
		t.Errorf("expected resolution 512, got %d", cfg.Terrain.Resolution)
	}
	if cfg.Terrain.BaseHeight != 5.5 {
		t.Errorf("expected base height 5.5, got %f", cfg.Terrain.BaseHeight)
	}

	if cfg.Compose.AutoUpdate {
		t.Error("expected auto_update to be false")
	}
	if cfg.Compose.GPU {
		t.Error("expected gpu to be false")
	}
	if cfg.Compose.Debounce != 300*time.Millisecond {
		t.Errorf("expected debounce 300ms, got %v", cfg.Compose.Debounce)
	}
	if cfg.Compose.Workers != 4 {
		t.Errorf("expected workers 4, got %d", cfg.Compose.Workers)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "terrainy.log" {
		t.Errorf("expected log file 'terrainy.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
terrain:
  resolution: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/terrainy.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)

	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "terrainy.yaml")
	if err := os.WriteFile(configPath, []byte("terrain:\n  resolution: 128\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	path = findConfigFile()
	if path == "" {
		t.Error("expected to find terrainy.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name: "debug flag",
			setup: func() {
				*flagDebug = true
			},
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() {
				*flagDebug = false
			},
		},
		{
			name: "resolution flag",
			setup: func() {
				*flagResolution = 128
			},
			verify: func(cfg *Config) {
				if cfg.Terrain.Resolution != 128 {
					t.Errorf("expected resolution 128, got %d", cfg.Terrain.Resolution)
				}
			},
			teardown: func() {
				*flagResolution = 0
			},
		},
		{
			name: "no-gpu flag",
			setup: func() {
				*flagNoGPU = true
			},
			verify: func(cfg *Config) {
				if cfg.Compose.GPU {
					t.Error("expected gpu to be false with no-gpu flag")
				}
			},
			teardown: func() {
				*flagNoGPU = false
			},
		},
		{
			name: "workers flag",
			setup: func() {
				*flagWorkers = 8
			},
			verify: func(cfg *Config) {
				if cfg.Compose.Workers != 8 {
					t.Errorf("expected workers 8, got %d", cfg.Compose.Workers)
				}
			},
			teardown: func() {
				*flagWorkers = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)

			tt.verify(cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "terrainy.yaml")

	yamlContent := `
terrain:
  resolution: 512
compose:
  workers: 2
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagResolution = 64
	defer func() {
		*flagConfig = ""
		*flagResolution = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Resolution should come from the flag, not the file.
	if cfg.Terrain.Resolution != 64 {
		t.Errorf("expected resolution 64 from flag, got %d", cfg.Terrain.Resolution)
	}

	// Workers should come from the file since no flag override.
	if cfg.Compose.Workers != 2 {
		t.Errorf("expected workers 2 from file, got %d", cfg.Compose.Workers)
	}
}

func TestSaveAndReload(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "terrainy.yaml")

	cfg := Default()
	cfg.Terrain.Resolution = 128
	cfg.Compose.GPU = false

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	reloaded := Default()
	if err := loadFromFile(reloaded, path); err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}

	if reloaded.Terrain.Resolution != 128 {
		t.Errorf("expected resolution 128 after reload, got %d", reloaded.Terrain.Resolution)
	}
	if reloaded.Compose.GPU {
		t.Error("expected gpu false after reload")
	}
}
