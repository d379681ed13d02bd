package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration invariants after normalization.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.DatabaseDir) == "" {
		return fmt.Errorf("config: database_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LockDir) == "" {
		return fmt.Errorf("config: lock_dir must be set")
	}
	if c.Scan.Workers < 0 {
		return fmt.Errorf("config: scan.workers must not be negative")
	}
	if c.Scan.MaxDeletedFraction < 0 || c.Scan.MaxDeletedFraction > 1 {
		return fmt.Errorf("config: scan.max_deleted_fraction must be within [0, 1]")
	}
	if c.Scan.MissingGraceHours < 0 {
		return fmt.Errorf("config: scan.missing_grace_hours must not be negative")
	}
	if c.Scan.WatchDebounceMS < 0 {
		return fmt.Errorf("config: scan.watch_debounce_ms must not be negative")
	}
	if c.Analysis.QueueSize <= 0 {
		return fmt.Errorf("config: analysis.queue_size must be positive")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("config: logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
