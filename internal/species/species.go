// Package species defines the data model shared by the resolution pipeline:
// query items, candidate matches, per-source records, and the ordered result
// table produced by a batch run.
package species

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// QueryItem is one line of user input. Position is its 0-based index in the
// submitted batch and fixes the output order.
type QueryItem struct {
	RawText  string `json:"raw_text"`
	Position int    `json:"position"`
}

var idPattern = regexp.MustCompile(`^(?i:id\s*[:#]?\s*)?(\d{1,3}(?:\.\d{3})+|\d+)$`)

// TaxonID returns the registry identifier when the raw text is an ID rather
// than a name. Accepted forms are "14389", "14.389", and "ID:14389".
func (q QueryItem) TaxonID() (string, bool) {
	match := idPattern.FindStringSubmatch(strings.TrimSpace(q.RawText))
	if match == nil {
		return "", false
	}
	digits := strings.ReplaceAll(match[1], ".", "")
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n <= 0 {
		return "", false
	}
	return strconv.FormatInt(n, 10), true
}

// ParseItems splits free text into query items on newlines, commas, and
// semicolons. Empty fragments are dropped.
func ParseItems(text string) []QueryItem {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ',' || r == ';'
	})
	items := make([]QueryItem, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		items = append(items, QueryItem{RawText: field, Position: len(items)})
	}
	return items
}

// NewItems wraps raw strings as query items, keeping blank entries so every
// input line produces a row.
func NewItems(raw []string) []QueryItem {
	items := make([]QueryItem, len(raw))
	for i, text := range raw {
		items[i] = QueryItem{RawText: text, Position: i}
	}
	return items
}

// MatchKind classifies how a query was mapped to the registry.
type MatchKind string

const (
	MatchExact      MatchKind = "exact"
	MatchFuzzy      MatchKind = "fuzzy"
	MatchAmbiguous  MatchKind = "ambiguous"
	MatchUnresolved MatchKind = "unresolved"
)

// Resolved reports whether the kind carries a usable registry identifier.
func (k MatchKind) Resolved() bool {
	return k == MatchExact || k == MatchFuzzy
}

// CandidateMatch is the best registry identity found for a query.
type CandidateMatch struct {
	CanonicalName string    `json:"canonical_name"`
	RegistryID    string    `json:"registry_id"`
	Score         float64   `json:"score"`
	Kind          MatchKind `json:"kind"`
	Alternatives  []string  `json:"alternatives,omitempty"`
}

// Unresolved returns the empty match used for blank or unmatched input.
func Unresolved() CandidateMatch {
	return CandidateMatch{Kind: MatchUnresolved}
}

// ResolvedEntity links an input item to its registry identity.
type ResolvedEntity struct {
	Item  QueryItem      `json:"item"`
	Match CandidateMatch `json:"match"`
	Note  string         `json:"note,omitempty"`
}

// Outcome is a source's answer category for one entity.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeNotFound Outcome = "not_found"
	OutcomeError    Outcome = "error"
)

// SourceRecord is one source's answer for one entity. An empty StatusCode
// means the source reported no status.
type SourceRecord struct {
	Source      string  `json:"source"`
	StatusCode  string  `json:"status_code,omitempty"`
	StatusLabel string  `json:"status_label,omitempty"`
	Outcome     Outcome `json:"outcome"`
	Detail      string  `json:"detail,omitempty"`
}

// OK builds a successful record.
func OK(source, code, label string) SourceRecord {
	return SourceRecord{Source: source, StatusCode: code, StatusLabel: label, Outcome: OutcomeOK}
}

// NotFound builds a record for a definitive absence.
func NotFound(source string) SourceRecord {
	return SourceRecord{Source: source, Outcome: OutcomeNotFound}
}

// Failed builds an error record. The status fields stay empty.
func Failed(source, detail string) SourceRecord {
	return SourceRecord{Source: source, Outcome: OutcomeError, Detail: detail}
}

// Display returns the cell text for the record.
func (r SourceRecord) Display() string {
	switch r.Outcome {
	case OutcomeOK:
		if r.StatusLabel != "" {
			return r.StatusLabel
		}
		return r.StatusCode
	case OutcomeError:
		if r.Detail != "" {
			return "error: " + r.Detail
		}
		return "error"
	default:
		return ""
	}
}

// ResultRow is the merged output for one input item.
type ResultRow struct {
	Position      int                     `json:"position"`
	RawText       string                  `json:"raw_text"`
	CanonicalName string                  `json:"canonical_name"`
	RegistryID    string                  `json:"registry_id"`
	MatchKind     MatchKind               `json:"match_kind"`
	MatchScore    float64                 `json:"match_score"`
	Alternatives  []string                `json:"alternatives,omitempty"`
	Note          string                  `json:"note,omitempty"`
	Records       map[string]SourceRecord `json:"records"`
}

// NewRow assembles a row from a resolved entity and its source records. A nil
// records map is replaced with an empty one.
func NewRow(entity ResolvedEntity, records map[string]SourceRecord) ResultRow {
	if records == nil {
		records = map[string]SourceRecord{}
	}
	return ResultRow{
		Position:      entity.Item.Position,
		RawText:       entity.Item.RawText,
		CanonicalName: entity.Match.CanonicalName,
		RegistryID:    entity.Match.RegistryID,
		MatchKind:     entity.Match.Kind,
		MatchScore:    entity.Match.Score,
		Alternatives:  entity.Match.Alternatives,
		Note:          entity.Note,
		Records:       records,
	}
}

// Record returns the named source record and whether it exists.
func (r ResultRow) Record(source string) (SourceRecord, bool) {
	rec, ok := r.Records[source]
	return rec, ok
}

// Protected reports whether any legal-protection source returned a status.
func (r ResultRow) Protected() bool {
	for name, rec := range r.Records {
		if !IsLegalSource(name) {
			continue
		}
		if rec.Outcome == OutcomeOK && rec.StatusCode != "" {
			return true
		}
	}
	return false
}

// Table is the ordered output of one batch run. Sources lists the sources
// the run queried, so the column set does not depend on which rows resolved.
type Table struct {
	RunID   string      `json:"run_id"`
	Sources []string    `json:"sources,omitempty"`
	Rows    []ResultRow `json:"rows"`
}

// SortRows orders rows by input position.
func (t *Table) SortRows() {
	slices.SortStableFunc(t.Rows, func(a, b ResultRow) int {
		return a.Position - b.Position
	})
}

// SourceNames returns the table's source columns in display order: the
// queried sources when known, plus any other source present in the rows.
func (t Table) SourceNames() []string {
	seen := map[string]struct{}{}
	var names []string
	for _, name := range t.Sources {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	for _, row := range t.Rows {
		for name := range row.Records {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	SortSources(names)
	return names
}

// Taxon is a registry identity as returned by an ID lookup.
type Taxon struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
