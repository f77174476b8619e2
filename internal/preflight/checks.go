package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"eidoscope/internal/checklist"
	"eidoscope/internal/config"
	"eidoscope/internal/services"
	"eidoscope/internal/species"
)

// Pinger is implemented by registry clients that can confirm reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckRegistry verifies the registry answers a minimal request. It uses a
// 15-second timeout.
func CheckRegistry(ctx context.Context, name string, registry Pinger) Result {
	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	started := time.Now()
	if err := registry.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeRegistryError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("Reachable (%s)", time.Since(started).Round(time.Millisecond))}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckChecklist reports whether the local checklist snapshot exists and is
// fresh.
func CheckChecklist(ctx context.Context, cfg *config.Config) Result {
	const name = "Checklist snapshot"

	if _, err := os.Stat(cfg.Checklist.Path); err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: "missing (run 'eidoscope checklist refresh')"}
		}
		return Result{Name: name, Detail: fmt.Sprintf("stat: %v", err)}
	}
	store, err := checklist.Open(ctx, cfg.Checklist.Path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	defer store.Close()

	status, err := store.Status(ctx)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if status.Stale(time.Now(), cfg.ChecklistMaxAge()) {
		return Result{Name: name, Detail: fmt.Sprintf("stale: %d names, refreshed %s", status.Entries, formatRefreshed(status.RefreshedAt))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d names, refreshed %s", status.Entries, formatRefreshed(status.RefreshedAt))}
}

// CheckIUCNToken reports whether the IUCN source can be enabled. A missing
// token is not a failure unless the source is explicitly enabled.
func CheckIUCNToken(cfg *config.Config) Result {
	const name = "IUCN Red List"

	enabled := false
	for _, s := range cfg.Sources.Enabled {
		if s == species.SourceIUCNRedList {
			enabled = true
		}
	}
	switch {
	case cfg.IUCNEnabled() && enabled:
		return Result{Name: name, Passed: true, Detail: "Token configured"}
	case cfg.IUCNEnabled():
		return Result{Name: name, Passed: true, Detail: "Token configured (source not enabled)"}
	case enabled:
		return Result{Name: name, Detail: "source enabled without IUCN_API_TOKEN"}
	default:
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
}

func formatRefreshed(ts time.Time) string {
	if ts.IsZero() {
		return "never"
	}
	return ts.Local().Format("2006-01-02 15:04")
}

// summarizeRegistryError produces a human-readable summary for registry check failures.
func summarizeRegistryError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, services.ErrTimeout) {
		return "health check timed out (registry unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (registry unreachable)"
	}
	return err.Error()
}
