package checklist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"eidoscope/internal/config"
	"eidoscope/internal/eidos"
	"eidoscope/internal/logging"
	"eidoscope/internal/matching"
	"eidoscope/internal/services"
)

// ErrRefreshInProgress indicates another process holds the refresh lock.
var ErrRefreshInProgress = errors.New("checklist refresh already in progress")

// Downloader fetches the full reference checklist.
type Downloader interface {
	Checklist(ctx context.Context) ([]eidos.ChecklistEntry, error)
}

// Refresh downloads the checklist and replaces the snapshot at cfg's
// checklist path. Only one process refreshes at a time.
func Refresh(ctx context.Context, cfg *config.Config, source Downloader, sourceName string, logger *slog.Logger) (Status, error) {
	logger = logging.NewComponentLogger(logger, "checklist")
	lock := flock.New(cfg.ChecklistLockPath())
	if err := os.MkdirAll(filepath.Dir(cfg.ChecklistLockPath()), 0o755); err != nil {
		return Status{}, fmt.Errorf("create lock directory: %w", err)
	}
	locked, err := lock.TryLock()
	if err != nil {
		return Status{}, fmt.Errorf("acquire checklist lock: %w", err)
	}
	if !locked {
		return Status{}, ErrRefreshInProgress
	}
	defer func() { _ = lock.Unlock() }()

	started := time.Now()
	entries, err := source.Checklist(ctx)
	if err != nil {
		return Status{}, services.Wrap(services.ErrTransient, "checklist", "download", "", err)
	}
	if len(entries) == 0 {
		return Status{}, services.Wrap(services.ErrValidation, "checklist", "download", "registry returned an empty checklist", nil)
	}

	store, err := Open(ctx, cfg.Checklist.Path)
	if err != nil {
		return Status{}, err
	}
	defer store.Close()

	stored, err := store.Replace(ctx, entries, sourceName, time.Now())
	if err != nil {
		return Status{}, err
	}
	logger.Info("checklist snapshot replaced",
		logging.String("path", cfg.Checklist.Path),
		logging.Int("downloaded", len(entries)),
		logging.Int("stored", stored),
		logging.Duration("elapsed", time.Since(started)))
	return store.Status(ctx)
}

// LoadPool opens the snapshot and builds the shared candidate pool. A missing
// or disabled snapshot yields an empty pool and a warning; resolution then
// relies on registry searches alone.
func LoadPool(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*matching.Pool, Status, error) {
	logger = logging.NewComponentLogger(logger, "checklist")
	if !cfg.Checklist.Enabled {
		return matching.NewPool(nil), Status{}, nil
	}
	if _, err := os.Stat(cfg.Checklist.Path); errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(logger, "checklist snapshot missing", "checklist_missing",
			logging.String("path", cfg.Checklist.Path),
			logging.String(logging.FieldErrorHint, "run 'eidoscope checklist refresh'"),
			logging.String(logging.FieldImpact, "typos resolve only through exact registry search"),
		)
		return matching.NewPool(nil), Status{Path: cfg.Checklist.Path}, nil
	}

	store, err := Open(ctx, cfg.Checklist.Path)
	if err != nil {
		return nil, Status{}, err
	}
	defer store.Close()

	status, err := store.Status(ctx)
	if err != nil {
		return nil, status, err
	}
	candidates, err := store.Candidates(ctx)
	if err != nil {
		return nil, status, err
	}
	if status.Stale(time.Now(), cfg.ChecklistMaxAge()) {
		logging.WarnWithContext(logger, "checklist snapshot is stale", "checklist_stale",
			logging.String("path", status.Path),
			logging.Int("entries", status.Entries),
			logging.String(logging.FieldErrorHint, "run 'eidoscope checklist refresh'"),
			logging.String(logging.FieldImpact, "recently added names may not resolve"),
		)
	}
	return matching.NewPool(candidates), status, nil
}
