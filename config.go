package scripthost

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cryguy/scripthost/internal/core"
)

// Config holds runtime configuration for a Script.
type Config struct {
	GCInterval    time.Duration // watchdog period; 0 means 10s
	MemoryLimitMB int           // per-heap memory limit; 0 means unlimited
	Bootstrap     string        // environment script path; empty uses the embedded one
	ScenesDB      string        // SQLite file persisting scenes; empty keeps them in memory
	Scenes        []SceneDef    // scenes added to the catalog at startup
	Logger        *slog.Logger  // nil means slog.Default()
}

func (c Config) core() core.Config {
	return core.Config{
		GCInterval:    c.GCInterval,
		MemoryLimitMB: c.MemoryLimitMB,
		BootstrapPath: c.Bootstrap,
		ScenesDB:      c.ScenesDB,
		Logger:        c.Logger,
	}.WithDefaults()
}

// fileConfig is the YAML form of Config.
type fileConfig struct {
	GCInterval    string     `yaml:"gc_interval"`
	MemoryLimitMB int        `yaml:"memory_limit_mb"`
	Bootstrap     string     `yaml:"bootstrap"`
	ScenesDB      string     `yaml:"scenes_db"`
	Scenes        []SceneDef `yaml:"scenes"`
}

// LoadConfig reads a YAML configuration file:
//
//	gc_interval: 10s
//	memory_limit_mb: 64
//	bootstrap: ./obs-script.js
//	scenes_db: ./scenes.db
//	scenes:
//	  - name: Main
//	    items:
//	      - {name: Camera, visible: true}
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg := Config{
		MemoryLimitMB: fc.MemoryLimitMB,
		Bootstrap:     fc.Bootstrap,
		ScenesDB:      fc.ScenesDB,
		Scenes:        fc.Scenes,
	}
	if fc.GCInterval != "" {
		d, err := time.ParseDuration(fc.GCInterval)
		if err != nil {
			return Config{}, fmt.Errorf("parsing gc_interval: %w", err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("gc_interval must be positive, got %s", d)
		}
		cfg.GCInterval = d
	}
	if fc.MemoryLimitMB < 0 {
		return Config{}, fmt.Errorf("memory_limit_mb must not be negative")
	}
	return cfg, nil
}
