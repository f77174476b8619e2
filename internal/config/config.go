package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains cache and log directory configuration.
type Paths struct {
	CacheDir string `toml:"cache_dir"`
	LogDir   string `toml:"log_dir"`
}

// EIDOS contains configuration for the IEPNB EIDOS species registry API.
type EIDOS struct {
	BaseURL          string  `toml:"base_url"`
	ConservationPath string  `toml:"conservation_path"`
	RateLimit        float64 `toml:"rate_limit"`
	Burst            int     `toml:"burst"`
	TimeoutSeconds   int     `toml:"timeout_seconds"`
	MaxAttempts      int     `toml:"max_attempts"`
	UserAgent        string  `toml:"user_agent"`
}

// IUCN contains configuration for the IUCN Red List API.
type IUCN struct {
	Token          string  `toml:"token"`
	BaseURL        string  `toml:"base_url"`
	RateLimit      float64 `toml:"rate_limit"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Batch contains configuration for a single resolution run.
type Batch struct {
	Concurrency    int `toml:"concurrency"`
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Matching contains the fuzzy name acceptance policy.
type Matching struct {
	HighThreshold    float64 `toml:"high_threshold"`
	LowThreshold     float64 `toml:"low_threshold"`
	SpeciesEditBound int     `toml:"species_edit_bound"`
	AmbiguityMargin  float64 `toml:"ambiguity_margin"`
}

// Checklist contains configuration for the local reference checklist snapshot.
type Checklist struct {
	Enabled    bool   `toml:"enabled"`
	Path       string `toml:"path"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Sources selects which status sources a run queries.
type Sources struct {
	Enabled []string `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for eidoscope.
//
// Configuration sections by subsystem:
//   - Paths: cache and log directories
//   - EIDOS: registry endpoint, throttling, and retries
//   - IUCN: optional global red list lookups
//   - Batch: concurrency bound and run timeout
//   - Matching: fuzzy acceptance thresholds
//   - Checklist: reference checklist snapshot used as the candidate pool
//   - Sources: enabled status sources
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	EIDOS     EIDOS     `toml:"eidos"`
	IUCN      IUCN      `toml:"iucn"`
	Batch     Batch     `toml:"batch"`
	Matching  Matching  `toml:"matching"`
	Checklist Checklist `toml:"checklist"`
	Sources   Sources   `toml:"sources"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("eidoscope.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the cache and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// BatchTimeout returns the overall deadline for one resolution run. Zero
// disables the deadline.
func (c *Config) BatchTimeout() time.Duration {
	return time.Duration(c.Batch.TimeoutSeconds) * time.Second
}

// EIDOSTimeout returns the per-request HTTP timeout for registry calls.
func (c *Config) EIDOSTimeout() time.Duration {
	return time.Duration(c.EIDOS.TimeoutSeconds) * time.Second
}

// IUCNTimeout returns the per-request HTTP timeout for IUCN calls.
func (c *Config) IUCNTimeout() time.Duration {
	return time.Duration(c.IUCN.TimeoutSeconds) * time.Second
}

// IUCNEnabled reports whether an IUCN token is configured.
func (c *Config) IUCNEnabled() bool {
	return strings.TrimSpace(c.IUCN.Token) != ""
}

// ChecklistMaxAge returns how old a checklist snapshot may get before it is
// reported as stale. Zero means never stale.
func (c *Config) ChecklistMaxAge() time.Duration {
	return time.Duration(c.Checklist.MaxAgeDays) * 24 * time.Hour
}

// ChecklistLockPath returns the lock file guarding checklist refreshes.
func (c *Config) ChecklistLockPath() string {
	return c.Checklist.Path + ".lock"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
