package export

import (
	"strconv"
	"strings"

	"eidoscope/internal/species"
)

// Identity and trailing column headers.
const (
	ColumnPosition      = "position"
	ColumnInput         = "input"
	ColumnCanonicalName = "canonical_name"
	ColumnRegistryID    = "registry_id"
	ColumnMatchKind     = "match_kind"
	ColumnMatchScore    = "match_score"
	ColumnAlternatives  = "alternatives"
	ColumnProtected     = "protected"
	ColumnNote          = "note"
)

var identityColumns = []string{
	ColumnPosition,
	ColumnInput,
	ColumnCanonicalName,
	ColumnRegistryID,
	ColumnMatchKind,
	ColumnMatchScore,
	ColumnAlternatives,
}

// Flatten returns the ordered headers and one string row per table row. Every
// row has exactly len(headers) cells.
func Flatten(table species.Table) (headers []string, rows [][]string) {
	sourceNames := table.SourceNames()
	headers = make([]string, 0, len(identityColumns)+len(sourceNames)+2)
	headers = append(headers, identityColumns...)
	headers = append(headers, sourceNames...)
	headers = append(headers, ColumnProtected, ColumnNote)

	rows = make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		cells := make([]string, 0, len(headers))
		cells = append(cells,
			strconv.Itoa(row.Position),
			row.RawText,
			row.CanonicalName,
			row.RegistryID,
			string(row.MatchKind),
			formatScore(row),
			strings.Join(row.Alternatives, " | "),
		)
		for _, name := range sourceNames {
			rec, ok := row.Record(name)
			if !ok {
				cells = append(cells, "")
				continue
			}
			cells = append(cells, rec.Display())
		}
		cells = append(cells, formatBool(row.Protected()), row.Note)
		rows = append(rows, cells)
	}
	return headers, rows
}

func formatScore(row species.ResultRow) string {
	if row.MatchKind == species.MatchUnresolved || row.MatchKind == "" {
		return ""
	}
	return strconv.FormatFloat(row.MatchScore, 'f', 3, 64)
}

func formatBool(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
