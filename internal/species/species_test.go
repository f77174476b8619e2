package species

import (
	"reflect"
	"testing"
)

func TestQueryItemTaxonID(t *testing.T) {
	tests := []struct {
		raw    string
		wantID string
		wantOK bool
	}{
		{"14389", "14389", true},
		{" 14.389 ", "14389", true},
		{"ID:14389", "14389", true},
		{"id 14389", "14389", true},
		{"1.234.567", "1234567", true},
		{"0", "", false},
		{"Lynx pardinus", "", false},
		{"14,389", "", false},
		{"14.38", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			id, ok := QueryItem{RawText: tt.raw}.TaxonID()
			if id != tt.wantID || ok != tt.wantOK {
				t.Fatalf("TaxonID(%q) = (%q, %v), want (%q, %v)", tt.raw, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestParseItems(t *testing.T) {
	got := ParseItems("Lynx pardinus\nCanis lupus; Ursus arctos,\r\n\n , Borderea pyrenaica")
	want := []QueryItem{
		{RawText: "Lynx pardinus", Position: 0},
		{RawText: "Canis lupus", Position: 1},
		{RawText: "Ursus arctos", Position: 2},
		{RawText: "Borderea pyrenaica", Position: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseItems = %#v, want %#v", got, want)
	}
	if len(ParseItems("  \n ")) != 0 {
		t.Fatal("expected no items from blank text")
	}
}

func TestNewItemsKeepsBlankEntries(t *testing.T) {
	items := NewItems([]string{"Lynx pardinus", ""})
	if len(items) != 2 || items[1].Position != 1 || items[1].RawText != "" {
		t.Fatalf("unexpected items: %#v", items)
	}
}

func TestNewRowDefaultsRecords(t *testing.T) {
	row := NewRow(ResolvedEntity{Item: QueryItem{RawText: "", Position: 3}, Match: Unresolved()}, nil)
	if row.Records == nil || len(row.Records) != 0 {
		t.Fatalf("expected empty records map, got %#v", row.Records)
	}
	if row.MatchKind != MatchUnresolved || row.RegistryID != "" || row.MatchScore != 0 {
		t.Fatalf("unexpected row: %#v", row)
	}
}

func TestResultRowProtected(t *testing.T) {
	tests := []struct {
		name    string
		records map[string]SourceRecord
		want    bool
	}{
		{"no records", nil, false},
		{"national listed", map[string]SourceRecord{
			SourceNationalCatalog: OK(SourceNationalCatalog, "En peligro de extinción", "En peligro de extinción"),
		}, true},
		{"legal not found", map[string]SourceRecord{
			SourceNationalCatalog: NotFound(SourceNationalCatalog),
		}, false},
		{"legal error", map[string]SourceRecord{
			SourceRegionalCatalogs: Failed(SourceRegionalCatalogs, "timeout"),
		}, false},
		{"red list only", map[string]SourceRecord{
			SourceGlobalRedList: OK(SourceGlobalRedList, "EN", "EN"),
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (ResultRow{Records: tt.records}).Protected(); got != tt.want {
				t.Fatalf("Protected() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSourceRecordDisplay(t *testing.T) {
	if got := Failed("x", "timeout").Display(); got != "error: timeout" {
		t.Fatalf("unexpected error display %q", got)
	}
	if got := NotFound("x").Display(); got != "" {
		t.Fatalf("unexpected not found display %q", got)
	}
	if got := OK("x", "VU", "").Display(); got != "VU" {
		t.Fatalf("unexpected ok display %q", got)
	}
}

func TestTableSortRowsAndSources(t *testing.T) {
	table := Table{Rows: []ResultRow{
		{Position: 2, Records: map[string]SourceRecord{"zeta": {}, SourceGlobalRedList: {}}},
		{Position: 0, Records: map[string]SourceRecord{SourceNationalCatalog: {}, SourceCommonName: {}}},
		{Position: 1, Records: map[string]SourceRecord{SourceEUBirdsDirective: {}, "alpha": {}}},
	}}
	table.SortRows()
	for i, row := range table.Rows {
		if row.Position != i {
			t.Fatalf("row %d has position %d", i, row.Position)
		}
	}
	want := []string{SourceCommonName, SourceEUBirdsDirective, SourceNationalCatalog, SourceGlobalRedList, "alpha", "zeta"}
	if got := table.SourceNames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("SourceNames() = %v, want %v", got, want)
	}
}

func TestTableSourceNamesKeepsQueriedSources(t *testing.T) {
	table := Table{
		Sources: []string{SourceNationalRedList, SourceNationalCatalog},
		Rows: []ResultRow{
			{Position: 0, MatchKind: MatchUnresolved, Records: map[string]SourceRecord{}},
			{Position: 1, MatchKind: MatchUnresolved},
		},
	}
	want := []string{SourceNationalCatalog, SourceNationalRedList}
	if got := table.SourceNames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("SourceNames() = %v, want %v", got, want)
	}
}
