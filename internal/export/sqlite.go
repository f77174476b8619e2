package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"eidoscope/internal/species"
)

const resultsSchema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    created_at TEXT NOT NULL,
    rows INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS run_sources (
    run_id TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    source TEXT NOT NULL,
    PRIMARY KEY (run_id, ordinal)
);

CREATE TABLE IF NOT EXISTS results (
    run_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    raw_text TEXT NOT NULL,
    canonical_name TEXT NOT NULL,
    registry_id TEXT NOT NULL,
    match_kind TEXT NOT NULL,
    match_score REAL NOT NULL,
    alternatives TEXT NOT NULL,
    protected INTEGER NOT NULL,
    note TEXT NOT NULL,
    PRIMARY KEY (run_id, position)
);

CREATE TABLE IF NOT EXISTS records (
    run_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    source TEXT NOT NULL,
    outcome TEXT NOT NULL,
    status_code TEXT NOT NULL,
    status_label TEXT NOT NULL,
    detail TEXT NOT NULL,
    PRIMARY KEY (run_id, position, source)
);
`

// WriteSQLite appends the table to the SQLite database at path, creating the
// file and schema on first use. Rewriting a run ID replaces that run.
func WriteSQLite(ctx context.Context, path string, t species.Table) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open sqlite db: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, resultsSchema); err != nil {
		return fmt.Errorf("create export schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin export tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		"DELETE FROM records WHERE run_id = ?",
		"DELETE FROM results WHERE run_id = ?",
		"DELETE FROM run_sources WHERE run_id = ?",
		"DELETE FROM runs WHERE run_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, t.RunID); err != nil {
			return fmt.Errorf("clear previous run: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO runs (run_id, created_at, rows) VALUES (?, ?, ?)",
		t.RunID, time.Now().UTC().Format(time.RFC3339), len(t.Rows)); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	for i, name := range t.SourceNames() {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO run_sources (run_id, ordinal, source) VALUES (?, ?, ?)",
			t.RunID, i, name); err != nil {
			return fmt.Errorf("insert run source %s: %w", name, err)
		}
	}

	rowStmt, err := tx.PrepareContext(ctx, `INSERT INTO results
		(run_id, position, raw_text, canonical_name, registry_id, match_kind, match_score, alternatives, protected, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare result insert: %w", err)
	}
	defer rowStmt.Close()
	recStmt, err := tx.PrepareContext(ctx, `INSERT INTO records
		(run_id, position, source, outcome, status_code, status_label, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare record insert: %w", err)
	}
	defer recStmt.Close()

	for _, row := range t.Rows {
		protected := 0
		if row.Protected() {
			protected = 1
		}
		alternatives := ""
		if len(row.Alternatives) > 0 {
			alternatives = strings.Join(row.Alternatives, " | ")
		}
		if _, err := rowStmt.ExecContext(ctx, t.RunID, row.Position, row.RawText, row.CanonicalName,
			row.RegistryID, string(row.MatchKind), row.MatchScore, alternatives, protected, row.Note); err != nil {
			return fmt.Errorf("insert row %d: %w", row.Position, err)
		}
		names := make([]string, 0, len(row.Records))
		for name := range row.Records {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			rec := row.Records[name]
			if _, err := recStmt.ExecContext(ctx, t.RunID, row.Position, name, string(rec.Outcome),
				rec.StatusCode, rec.StatusLabel, rec.Detail); err != nil {
				return fmt.Errorf("insert record %d/%s: %w", row.Position, name, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit export: %w", err)
	}
	return nil
}
