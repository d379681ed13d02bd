// Package testsupport provides shared scaffolding for package tests:
// temp-directory configs, catalog stores with cleanup, and audio file
// fixtures.
package testsupport

import (
	"path/filepath"
	"testing"

	"crate/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LibraryRoots = []string{filepath.Join(base, "music")}
	cfg.Paths.DatabaseDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.LockDir = filepath.Join(base, "locks")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithLibraryRoots replaces the configured library roots.
func WithLibraryRoots(roots ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Paths.LibraryRoots = roots
	}
}

// WithScanWorkers fixes the scan worker count.
func WithScanWorkers(workers int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Scan.Workers = workers
	}
}

// WithMaxDeletedFraction enables the scan deletion guard.
func WithMaxDeletedFraction(fraction float64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Scan.MaxDeletedFraction = fraction
	}
}

// WithMissingGraceHours keeps absent entries in status missing for the
// given number of hours before purging.
func WithMissingGraceHours(hours int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Scan.MissingGraceHours = hours
	}
}

// LibraryRoot returns the first configured library root.
func LibraryRoot(cfg *config.Config) string {
	if len(cfg.Paths.LibraryRoots) == 0 {
		return ""
	}
	return cfg.Paths.LibraryRoots[0]
}
