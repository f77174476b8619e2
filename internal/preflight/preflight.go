package preflight

import (
	"context"

	"eidoscope/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// registry may be nil, in which case the reachability check is skipped.
func RunAll(ctx context.Context, cfg *config.Config, registry Pinger) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Cache directory holds the checklist snapshot and lock.
	results = append(results, CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	if registry != nil {
		results = append(results, CheckRegistry(ctx, "EIDOS registry", registry))
	}

	if cfg.Checklist.Enabled {
		results = append(results, CheckChecklist(ctx, cfg))
	}

	results = append(results, CheckIUCNToken(cfg))
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
