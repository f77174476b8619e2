// Package config loads, normalizes, and validates eidoscope configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// EIDOS_RATE, CACHE_DIR, and IUCN_API_TOKEN. The Config type centralizes every
// knob the resolver and CLI need: registry endpoints, throttling, batch
// concurrency, fuzzy matching thresholds, and the enabled status sources.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
