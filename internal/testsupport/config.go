package testsupport

import (
	"path/filepath"
	"testing"

	"tellmemore/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Catalog.File = filepath.Join(base, "episodes.json")
	cfg.Whisper.Binary = "whisper-cli"
	cfg.Whisper.ModelPath = filepath.Join(base, "model.bin")
	cfg.Embedding.APIKey = "test"
	cfg.Embedding.Dimension = 3
	cfg.Processing.Backoff = []string{"1ms", "2ms", "4ms", "8ms", "16ms"}

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithBackoff overrides the retry backoff schedule on the test config.
func WithBackoff(entries ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Processing.Backoff = entries
	}
}

// WithDimension overrides the embedding vector dimension on the test config.
func WithDimension(dim int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Embedding.Dimension = dim
	}
}
