package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"eidoscope/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Environment fallbacks are ignored; the IUCN token is empty.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Checklist.Path = filepath.Join(cfgVal.Paths.CacheDir, "checklist.db")
	cfgVal.IUCN.Token = ""
	cfgVal.EIDOS.RateLimit = 0
	cfgVal.EIDOS.MaxAttempts = 1

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

// WithEIDOSURL points the registry client at a test server.
func WithEIDOSURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.EIDOS.BaseURL = url
	}
}

// WithSources overrides the enabled source set.
func WithSources(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sources.Enabled = names
	}
}

// WithDirectories creates the cache and log directories.
func WithDirectories() ConfigOption {
	return func(b *configBuilder) {
		for _, dir := range []string{b.cfg.Paths.CacheDir, b.cfg.Paths.LogDir} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				b.t.Fatalf("mkdir %s: %v", dir, err)
			}
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.CacheDir)
}
