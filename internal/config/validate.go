package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEIDOS(); err != nil {
		return err
	}
	if err := c.validateIUCN(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateChecklist(); err != nil {
		return err
	}
	if err := c.validateSources(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateEIDOS() error {
	if err := validateURL("eidos.base_url", c.EIDOS.BaseURL); err != nil {
		return err
	}
	if c.EIDOS.RateLimit < 0 {
		return errors.New("eidos.rate_limit must be >= 0 (0 disables throttling)")
	}
	if c.EIDOS.MaxAttempts > 10 {
		return errors.New("eidos.max_attempts must be <= 10")
	}
	return nil
}

func (c *Config) validateIUCN() error {
	if !c.IUCNEnabled() {
		return nil
	}
	if err := validateURL("iucn.base_url", c.IUCN.BaseURL); err != nil {
		return err
	}
	if c.IUCN.RateLimit < 0 {
		return errors.New("iucn.rate_limit must be >= 0")
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.Concurrency < 1 || c.Batch.Concurrency > maxBatchConcurrency {
		return fmt.Errorf("batch.concurrency must be between 1 and %d", maxBatchConcurrency)
	}
	if c.Batch.TimeoutSeconds < 0 {
		return errors.New("batch.timeout_seconds must be >= 0 (0 disables the deadline)")
	}
	return nil
}

func (c *Config) validateMatching() error {
	m := c.Matching
	if m.LowThreshold <= 0 || m.LowThreshold > 1 {
		return errors.New("matching.low_threshold must be in (0, 1]")
	}
	if m.HighThreshold < m.LowThreshold || m.HighThreshold > 1 {
		return errors.New("matching.high_threshold must be between matching.low_threshold and 1")
	}
	if m.SpeciesEditBound < 0 {
		return errors.New("matching.species_edit_bound must be >= 0")
	}
	if m.AmbiguityMargin < 0 || m.AmbiguityMargin >= 1 {
		return errors.New("matching.ambiguity_margin must be in [0, 1)")
	}
	return nil
}

func (c *Config) validateChecklist() error {
	if c.Checklist.MaxAgeDays < 0 {
		return errors.New("checklist.max_age_days must be >= 0")
	}
	return nil
}

func (c *Config) validateSources() error {
	if len(c.Sources.Enabled) == 0 {
		return errors.New("sources.enabled must list at least one source")
	}
	for _, name := range c.Sources.Enabled {
		if strings.Trim(name, "abcdefghijklmnopqrstuvwxyz0123456789_") != "" {
			return fmt.Errorf("sources.enabled: invalid source name %q", name)
		}
	}
	for _, name := range c.Sources.Enabled {
		if name == "iucn_red_list" && !c.IUCNEnabled() {
			return errors.New("sources.enabled includes iucn_red_list but no IUCN token is set (iucn.token or IUCN_API_TOKEN)")
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func validateURL(field, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL", field)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", field)
	}
	return nil
}
