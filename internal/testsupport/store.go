package testsupport

import (
	"context"
	"testing"
	"time"

	"eidoscope/internal/checklist"
	"eidoscope/internal/config"
	"eidoscope/internal/eidos"
)

// SeedChecklist writes entries to the checklist snapshot at cfg's checklist
// path, marking it refreshed now.
func SeedChecklist(t testing.TB, cfg *config.Config, entries ...eidos.ChecklistEntry) {
	t.Helper()

	store, err := checklist.Open(context.Background(), cfg.Checklist.Path)
	if err != nil {
		t.Fatalf("checklist.Open: %v", err)
	}
	defer store.Close()
	if _, err := store.Replace(context.Background(), entries, "test", time.Now()); err != nil {
		t.Fatalf("checklist.Replace: %v", err)
	}
}

// Entry builds a checklist entry for an accepted name.
func Entry(id, genus, epithet string) eidos.ChecklistEntry {
	return eidos.ChecklistEntry{TaxonID: eidos.ID(id), Genus: genus, Species: epithet}
}
