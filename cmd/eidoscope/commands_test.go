package main

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"eidoscope/internal/species"
	"eidoscope/internal/testsupport"
)

func parseCSV(t *testing.T, out string) (map[string]int, [][]string) {
	t.Helper()
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v\n%s", err, out)
	}
	if len(records) == 0 {
		t.Fatal("empty csv output")
	}
	cols := map[string]int{}
	for i, h := range records[0] {
		cols[h] = i
	}
	return cols, records[1:]
}

func TestResolveWritesOneRowPerInput(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env.configPath, "checklist", "refresh"); err != nil {
		t.Fatalf("checklist refresh: %v", err)
	}

	stdout, stderr, err := runCLI(t, env.configPath, "resolve", "--format", "csv",
		"Lynx pardinus", "Lynx pardinuss", "", "Nonexistent thing")
	if err != nil {
		t.Fatalf("resolve: %v\n%s", err, stderr)
	}
	cols, rows := parseCSV(t, stdout)
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d\n%s", len(rows), stdout)
	}
	for _, col := range []string{"position", "input", "registry_id", "match_kind", "national_catalog", "common_name", "protected", "note"} {
		if _, ok := cols[col]; !ok {
			t.Fatalf("missing column %q in %v", col, cols)
		}
	}

	want := []struct {
		kind, id, catalog, protected string
	}{
		{"exact", "14389", "En peligro de extinción", "yes"},
		{"fuzzy", "14389", "En peligro de extinción", "yes"},
		{"unresolved", "", "", "no"},
		{"unresolved", "", "", "no"},
	}
	for i, w := range want {
		row := rows[i]
		if row[cols["match_kind"]] != w.kind || row[cols["registry_id"]] != w.id {
			t.Fatalf("row %d: got kind %q id %q", i+1, row[cols["match_kind"]], row[cols["registry_id"]])
		}
		if row[cols["national_catalog"]] != w.catalog || row[cols["protected"]] != w.protected {
			t.Fatalf("row %d: got catalog %q protected %q", i+1, row[cols["national_catalog"]], row[cols["protected"]])
		}
	}
	if rows[0][cols["common_name"]] != "Lince ibérico" {
		t.Fatalf("unexpected common name %q", rows[0][cols["common_name"]])
	}
	requireContains(t, stderr, "2/4 resolved")
}

func TestResolveReadsFileAndIDs(t *testing.T) {
	env := setupCLITestEnv(t, "national_catalog")
	input := filepath.Join(t.TempDir(), "names.txt")
	testsupport.WriteFile(t, input, "Lynx pardinus\nCanis lupus; Lynx pardinus\n")
	output := filepath.Join(t.TempDir(), "result.json")

	_, stderr, err := runCLI(t, env.configPath, "resolve", "--file", input, "--ids", "14.389", "--output", output)
	if err != nil {
		t.Fatalf("resolve: %v\n%s", err, stderr)
	}
	requireContains(t, stderr, "Wrote 4 rows")

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var doc struct {
		Sources []string            `json:"sources"`
		Rows    []species.ResultRow `json:"rows"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode json: %v\n%s", err, data)
	}
	if len(doc.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(doc.Rows))
	}
	for i, row := range doc.Rows {
		if row.Position != i {
			t.Fatalf("row %d has position %d", i, row.Position)
		}
	}
	if doc.Rows[3].RegistryID != "14389" || doc.Rows[3].CanonicalName != "Lynx pardinus" {
		t.Fatalf("expected id input to resolve, got %+v", doc.Rows[3])
	}
	if !slices.Equal(doc.Sources, []string{"national_catalog"}) {
		t.Fatalf("unexpected sources %v", doc.Sources)
	}
}

func TestResolveFromStdin(t *testing.T) {
	env := setupCLITestEnv(t, "national_catalog")
	stdout, stderr, err := runCLIWithInput(t, env.configPath, "Lynx pardinus\n", "resolve", "--file", "-", "--format", "tsv", "--quiet")
	if err != nil {
		t.Fatalf("resolve: %v\n%s", err, stderr)
	}
	if stderr != "" {
		t.Fatalf("expected quiet stderr, got %q", stderr)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", stdout)
	}
	requireContains(t, lines[1], "14389")
}

func TestResolveRejectsBadInput(t *testing.T) {
	env := setupCLITestEnv(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no input", []string{"resolve"}, "provide names"},
		{"bad id", []string{"resolve", "--ids", "lynx"}, "not a registry id"},
		{"bad format", []string{"resolve", "--format", "xml", "Lynx pardinus"}, "unsupported format"},
		{"unknown source", []string{"resolve", "--sources", "bogus", "Lynx pardinus"}, "bogus"},
		{"bad concurrency", []string{"resolve", "--concurrency=-1", "Lynx pardinus"}, "batch.concurrency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, env.configPath, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestChecklistStatus(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, env.configPath, "checklist", "status", "--json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var before checklistStatusView
	if err := json.Unmarshal([]byte(stdout), &before); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if before.Present || !before.Stale {
		t.Fatalf("expected missing snapshot, got %+v", before)
	}

	stdout, _, err = runCLI(t, env.configPath, "checklist", "refresh")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	requireContains(t, stdout, "Stored 2 checklist entries")

	stdout, _, err = runCLI(t, env.configPath, "checklist", "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, stdout, "== Checklist ==")
	requireContains(t, stdout, "[OK] 2")
}

func TestSourcesCommand(t *testing.T) {
	env := setupCLITestEnv(t, "national_catalog")
	stdout, _, err := runCLI(t, env.configPath, "sources", "--json")
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	var views []sourceView
	if err := json.Unmarshal([]byte(stdout), &views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	enabled := map[string]bool{}
	for _, v := range views {
		enabled[v.Name] = v.Enabled
		if v.Description == "" {
			t.Fatalf("source %s has no description", v.Name)
		}
	}
	if !enabled["national_catalog"] || enabled["common_name"] {
		t.Fatalf("unexpected enabled set %v", enabled)
	}
	if _, ok := enabled["iucn_red_list"]; !ok {
		t.Fatal("expected iucn_red_list to be listed")
	}

	stdout, _, err = runCLI(t, env.configPath, "sources")
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	requireContains(t, stdout, "national_catalog")
}

func TestDoctorCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	stdout, _, err := runCLI(t, env.configPath, "doctor")
	if err == nil {
		t.Fatal("expected doctor to fail without a checklist snapshot")
	}
	requireContains(t, stdout, "EIDOS registry:")

	if _, _, err := runCLI(t, env.configPath, "checklist", "refresh"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	stdout, _, err = runCLI(t, env.configPath, "doctor", "--offline")
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, stdout)
	}
	if strings.Contains(stdout, "EIDOS registry:") {
		t.Fatal("offline doctor should skip the registry check")
	}
}

func TestConfigCommands(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CACHE_DIR", "")
	t.Setenv("EIDOS_RATE", "")
	t.Setenv("IUCN_API_TOKEN", "")
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	stdout, _, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, stdout, "Wrote sample configuration")

	if _, _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse to overwrite")
	}
	if _, _, err := runCLI(t, "", "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	stdout, _, err = runCLI(t, target, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, stdout, "Configuration valid")
	requireContains(t, stdout, "IUCN token:  no")
}
