package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagResolution = flag.Int("resolution", 0, "Grid resolution (16-1024)")
	flagGPU        = flag.Bool("gpu", false, "Force GPU composition on")
	flagNoGPU      = flag.Bool("no-gpu", false, "Force GPU composition off")
	flagWorkers    = flag.Int("workers", 0, "CPU worker count (0 = all cores)")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagResolution > 0 {
		cfg.Terrain.Resolution = *flagResolution
	}
	if *flagGPU {
		cfg.Compose.GPU = true
	}
	if *flagNoGPU {
		cfg.Compose.GPU = false
	}
	if *flagWorkers > 0 {
		cfg.Compose.Workers = *flagWorkers
	}
}
