// Package checklist keeps a local SQLite snapshot of the registry's reference
// checklist ("lista patrón") and turns it into the candidate pool used for
// fuzzy name resolution. The snapshot is read-only during a batch run;
// refreshes replace it atomically under a file lock.
package checklist

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"eidoscope/internal/eidos"
	"eidoscope/internal/matching"
	"eidoscope/internal/taxon"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when schema.sql changes. Older snapshots must be
// refreshed.
const schemaVersion = 1

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	metaRefreshedAt = "refreshed_at"
	metaSource      = "source"
)

// ErrSchemaMismatch indicates the snapshot was written by an incompatible version.
var ErrSchemaMismatch = errors.New("checklist schema version mismatch")

// Store manages the checklist snapshot.
type Store struct {
	db   *sql.DB
	path string
}

// Status summarizes the snapshot.
type Status struct {
	Path        string
	Entries     int
	RefreshedAt time.Time
	Source      string
}

// Stale reports whether the snapshot is older than maxAge. A zero maxAge
// never goes stale; an empty snapshot is always stale.
func (s Status) Stale(now time.Time, maxAge time.Duration) bool {
	if s.Entries == 0 || s.RefreshedAt.IsZero() {
		return true
	}
	return maxAge > 0 && now.Sub(s.RefreshedAt) > maxAge
}

// Open initializes or connects to the snapshot database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create checklist directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: snapshot has version %d, expected %d (delete %s and run 'eidoscope checklist refresh')",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Replace swaps the snapshot contents for entries in one transaction and
// returns the number of names stored.
func (s *Store) Replace(ctx context.Context, entries []eidos.ChecklistEntry, source string, refreshedAt time.Time) (int, error) {
	var stored int
	err := retryOnBusy(ctx, func() error {
		stored = 0
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin replace tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, "DELETE FROM entries"); err != nil {
			return fmt.Errorf("clear entries: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			"INSERT INTO entries (taxon_id, name, name_key, accepted, accepted_name) VALUES (?, ?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, entry := range entries {
			name := entry.FullName()
			key := taxon.Normalize(name)
			id := entry.TaxonID.String()
			if key == "" || id == "" {
				continue
			}
			accepted := 0
			if entry.Accepted() {
				accepted = 1
			}
			if _, err := stmt.ExecContext(ctx, id, name, key, accepted, strings.TrimSpace(entry.AcceptedName)); err != nil {
				return fmt.Errorf("insert entry %s: %w", id, err)
			}
			stored++
		}

		meta := map[string]string{
			metaRefreshedAt: refreshedAt.UTC().Format(time.RFC3339),
			metaSource:      source,
		}
		for key, value := range meta {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
				key, value); err != nil {
				return fmt.Errorf("write metadata %s: %w", key, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit replace: %w", err)
		}
		return nil
	})
	return stored, err
}

// Candidates loads every snapshot name as a matching candidate, in insertion
// order. Accepted names referenced by synonyms are included even when the
// checklist lists them under a different spelling.
func (s *Store) Candidates(ctx context.Context) ([]matching.Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT taxon_id, name, accepted, accepted_name FROM entries ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var candidates []matching.Candidate
	for rows.Next() {
		var (
			id, name, acceptedName string
			accepted               int
		)
		if err := rows.Scan(&id, &name, &accepted, &acceptedName); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		candidates = append(candidates, matching.NewCandidate(name, id, accepted == 1))
		if acceptedName != "" && accepted == 0 {
			candidates = append(candidates, matching.NewCandidate(acceptedName, id, true))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return candidates, nil
}

// Status reports the snapshot size and refresh metadata.
func (s *Store) Status(ctx context.Context) (Status, error) {
	status := Status{Path: s.path}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM entries").Scan(&status.Entries); err != nil {
		return status, fmt.Errorf("count entries: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM metadata")
	if err != nil {
		return status, fmt.Errorf("query metadata: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return status, fmt.Errorf("scan metadata: %w", err)
		}
		switch key {
		case metaRefreshedAt:
			if ts, err := time.Parse(time.RFC3339, value); err == nil {
				status.RefreshedAt = ts
			}
		case metaSource:
			status.Source = value
		}
	}
	return status, rows.Err()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
