package core

import (
	"log/slog"
	"time"
)

// DefaultGCInterval is how long the watchdog waits before forcing a
// collection when the script is otherwise idle.
const DefaultGCInterval = 10 * time.Second

// Config holds runtime configuration for a script host.
type Config struct {
	GCInterval    time.Duration // watchdog period; 0 means DefaultGCInterval
	MemoryLimitMB int           // per-heap memory limit; 0 means unlimited
	BootstrapPath string        // environment script; empty uses the embedded one
	ScenesDB      string        // SQLite file backing the scene catalog; empty keeps it in memory
	Logger        *slog.Logger  // nil means slog.Default()
}

// WithDefaults returns a copy of c with zero values replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.GCInterval <= 0 {
		c.GCInterval = DefaultGCInterval
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
