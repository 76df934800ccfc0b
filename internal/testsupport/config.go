package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LibraryDir = filepath.Join(base, "library")
	cfgVal.Paths.DatabasePath = filepath.Join(base, "data", "db.json")
	cfgVal.Paths.CatalogPath = filepath.Join(base, "catalog.json")
	cfgVal.Paths.HistoryPath = filepath.Join(base, "data", "history.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Generation.Workers = 2
	cfgVal.Comparison.Workers = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithHashFunctions replaces the configured hash functions.
func WithHashFunctions(fns ...config.HashFunction) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.HashFunctions = fns
	}
}

// WithCompressedDatabase stores the database zstd-compressed.
func WithCompressedDatabase() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.DatabasePath = filepath.Join(b.baseDir, "data", "db.json.zst")
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LibraryDir)
}
