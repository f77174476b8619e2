package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"eidoscope/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CACHE_DIR", "")
	t.Setenv("EIDOS_RATE", "")
	t.Setenv("IUCN_API_TOKEN", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "eidoscope", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantCache := filepath.Join(tempHome, ".cache", "eidoscope")
	if cfg.Paths.CacheDir != wantCache {
		t.Fatalf("unexpected cache dir: got %q want %q", cfg.Paths.CacheDir, wantCache)
	}
	if cfg.Checklist.Path != filepath.Join(wantCache, "checklist.db") {
		t.Fatalf("unexpected checklist path: %q", cfg.Checklist.Path)
	}
	if cfg.EIDOS.RateLimit != 4 {
		t.Fatalf("expected default rate 4, got %v", cfg.EIDOS.RateLimit)
	}
	if cfg.Batch.Concurrency != 8 {
		t.Fatalf("expected default concurrency 8, got %d", cfg.Batch.Concurrency)
	}
	if cfg.Matching.HighThreshold != 0.92 || cfg.Matching.LowThreshold != 0.85 {
		t.Fatalf("unexpected matching thresholds: %+v", cfg.Matching)
	}
	if cfg.IUCNEnabled() {
		t.Fatal("expected IUCN disabled without token")
	}
	for _, name := range cfg.Sources.Enabled {
		if name == "iucn_red_list" {
			t.Fatal("iucn_red_list should not be enabled without a token")
		}
	}
}

func TestLoadHonoursEnvironment(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	cacheDir := filepath.Join(t.TempDir(), "cache")
	t.Setenv("CACHE_DIR", cacheDir)
	t.Setenv("EIDOS_RATE", "1.5")
	t.Setenv("IUCN_API_TOKEN", " secret ")

	cfg, _, _, err := config.Load(filepath.Join(tempHome, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.CacheDir != cacheDir {
		t.Fatalf("expected cache dir from env, got %q", cfg.Paths.CacheDir)
	}
	if cfg.EIDOS.RateLimit != 1.5 {
		t.Fatalf("expected rate from env, got %v", cfg.EIDOS.RateLimit)
	}
	if cfg.IUCN.Token != "secret" {
		t.Fatalf("expected trimmed token, got %q", cfg.IUCN.Token)
	}
	last := cfg.Sources.Enabled[len(cfg.Sources.Enabled)-1]
	if last != "iucn_red_list" {
		t.Fatalf("expected iucn_red_list appended, got %v", cfg.Sources.Enabled)
	}
}

func TestLoadRejectsBadEIDOSRate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("EIDOS_RATE", "fast")
	if _, _, _, err := config.Load(filepath.Join(t.TempDir(), "none.toml")); err == nil {
		t.Fatal("expected error for non-numeric EIDOS_RATE")
	}
}

func TestLoadCustomConfigFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CACHE_DIR", "")
	t.Setenv("EIDOS_RATE", "")
	t.Setenv("IUCN_API_TOKEN", "")

	configPath := filepath.Join(tempHome, "custom.toml")
	cfgContent := `
[paths]
cache_dir = "~/species-cache"

[eidos]
base_url = "http://localhost:9000/api/"
conservation_path = "rpc/custom"

[batch]
concurrency = 3
timeout_seconds = 0

[sources]
enabled = ["National_Catalog", "common_name", "common_name", " "]

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(configPath, []byte(cfgContent), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom path to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.CacheDir != filepath.Join(tempHome, "species-cache") {
		t.Fatalf("unexpected cache dir: %q", cfg.Paths.CacheDir)
	}
	if cfg.EIDOS.BaseURL != "http://localhost:9000/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.EIDOS.BaseURL)
	}
	if cfg.EIDOS.ConservationPath != "/rpc/custom" {
		t.Fatalf("unexpected conservation path: %q", cfg.EIDOS.ConservationPath)
	}
	if cfg.Batch.Concurrency != 3 || cfg.BatchTimeout() != 0 {
		t.Fatalf("unexpected batch settings: %+v", cfg.Batch)
	}
	if got := strings.Join(cfg.Sources.Enabled, ","); got != "national_catalog,common_name" {
		t.Fatalf("unexpected sources: %q", got)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging: %+v", cfg.Logging)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	configPath := filepath.Join(tempHome, "bad.toml")
	if err := os.WriteFile(configPath, []byte("[batch]\nworkers = 4\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"defaults", func(*config.Config) {}, ""},
		{"zero concurrency", func(c *config.Config) { c.Batch.Concurrency = 0 }, "batch.concurrency"},
		{"huge concurrency", func(c *config.Config) { c.Batch.Concurrency = 1000 }, "batch.concurrency"},
		{"negative timeout", func(c *config.Config) { c.Batch.TimeoutSeconds = -1 }, "batch.timeout_seconds"},
		{"high below low", func(c *config.Config) { c.Matching.HighThreshold = 0.5 }, "matching.high_threshold"},
		{"low zero", func(c *config.Config) { c.Matching.LowThreshold = 0 }, "matching.low_threshold"},
		{"negative edit bound", func(c *config.Config) { c.Matching.SpeciesEditBound = -1 }, "matching.species_edit_bound"},
		{"bad url", func(c *config.Config) { c.EIDOS.BaseURL = "ftp://x" }, "eidos.base_url"},
		{"no sources", func(c *config.Config) { c.Sources.Enabled = nil }, "sources.enabled"},
		{"bad source name", func(c *config.Config) { c.Sources.Enabled = []string{"red list"} }, "invalid source name"},
		{"iucn without token", func(c *config.Config) { c.Sources.Enabled = []string{"iucn_red_list"} }, "IUCN token"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	var cfg config.Config
	decoder := toml.NewDecoder(strings.NewReader(config.SampleConfig()))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		t.Fatalf("decode sample config: %v", err)
	}
	def := config.Default()
	if cfg.Batch != def.Batch || cfg.Matching != def.Matching {
		t.Fatalf("sample batch/matching drifted from defaults: %+v %+v", cfg.Batch, cfg.Matching)
	}
	if strings.Join(cfg.Sources.Enabled, ",") != strings.Join(config.DefaultSources, ",") {
		t.Fatalf("sample sources drifted from defaults: %v", cfg.Sources.Enabled)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[matching]") {
		t.Fatal("expected sample to contain matching section")
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.CacheDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q", dir)
		}
	}
}
