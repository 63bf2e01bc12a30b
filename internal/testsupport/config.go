// Package testsupport provides shared fixtures for package tests: temp-dir
// configs and seeded episode datasets.
package testsupport

import (
	"path/filepath"
	"testing"

	"repack/internal/config"
)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	cfg.Logging.Format = "console"
	cfg.Logging.Level = "debug"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return &cfg
}
