package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeEIDOS(); err != nil {
		return err
	}
	c.normalizeIUCN()
	if err := c.normalizeChecklist(); err != nil {
		return err
	}
	c.normalizeSources()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("CACHE_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.CacheDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	var err error
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEIDOS() error {
	c.EIDOS.BaseURL = strings.TrimRight(strings.TrimSpace(c.EIDOS.BaseURL), "/")
	if c.EIDOS.BaseURL == "" {
		c.EIDOS.BaseURL = defaultEIDOSBaseURL
	}
	c.EIDOS.ConservationPath = strings.TrimSpace(c.EIDOS.ConservationPath)
	if c.EIDOS.ConservationPath == "" {
		c.EIDOS.ConservationPath = defaultConservationPath
	}
	if !strings.HasPrefix(c.EIDOS.ConservationPath, "/") {
		c.EIDOS.ConservationPath = "/" + c.EIDOS.ConservationPath
	}
	if value, ok := os.LookupEnv("EIDOS_RATE"); ok && strings.TrimSpace(value) != "" {
		rate, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("EIDOS_RATE: %w", err)
		}
		c.EIDOS.RateLimit = rate
	}
	if c.EIDOS.Burst <= 0 {
		c.EIDOS.Burst = defaultEIDOSBurst
	}
	if c.EIDOS.TimeoutSeconds <= 0 {
		c.EIDOS.TimeoutSeconds = defaultEIDOSTimeoutSeconds
	}
	if c.EIDOS.MaxAttempts <= 0 {
		c.EIDOS.MaxAttempts = defaultEIDOSMaxAttempts
	}
	c.EIDOS.UserAgent = strings.TrimSpace(c.EIDOS.UserAgent)
	if c.EIDOS.UserAgent == "" {
		c.EIDOS.UserAgent = defaultUserAgent
	}
	return nil
}

func (c *Config) normalizeIUCN() {
	c.IUCN.Token = strings.TrimSpace(c.IUCN.Token)
	if c.IUCN.Token == "" {
		if value, ok := os.LookupEnv("IUCN_API_TOKEN"); ok {
			c.IUCN.Token = strings.TrimSpace(value)
		}
	}
	c.IUCN.BaseURL = strings.TrimRight(strings.TrimSpace(c.IUCN.BaseURL), "/")
	if c.IUCN.BaseURL == "" {
		c.IUCN.BaseURL = defaultIUCNBaseURL
	}
	if c.IUCN.TimeoutSeconds <= 0 {
		c.IUCN.TimeoutSeconds = defaultIUCNTimeoutSeconds
	}
}

func (c *Config) normalizeChecklist() error {
	if strings.TrimSpace(c.Checklist.Path) == "" {
		c.Checklist.Path = filepath.Join(c.Paths.CacheDir, defaultChecklistFile)
	}
	var err error
	if c.Checklist.Path, err = expandPath(c.Checklist.Path); err != nil {
		return fmt.Errorf("checklist.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeSources() {
	seen := make(map[string]struct{}, len(c.Sources.Enabled))
	enabled := make([]string, 0, len(c.Sources.Enabled)+1)
	for _, name := range c.Sources.Enabled {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		enabled = append(enabled, name)
	}
	if _, ok := seen["iucn_red_list"]; !ok && c.IUCNEnabled() {
		enabled = append(enabled, "iucn_red_list")
	}
	c.Sources.Enabled = enabled
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
