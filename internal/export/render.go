package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"eidoscope/internal/services"
	"eidoscope/internal/species"
)

// Format selects an output encoding.
type Format string

const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatTSV      Format = "tsv"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatJSON     Format = "json"
)

// Formats lists every supported format.
var Formats = []Format{FormatTable, FormatCSV, FormatTSV, FormatMarkdown, FormatHTML, FormatJSON}

// ParseFormat validates a user-supplied format name. "md" is accepted for
// Markdown.
func ParseFormat(value string) (Format, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "md" {
		return FormatMarkdown, nil
	}
	if v == "" {
		return FormatTable, nil
	}
	for _, f := range Formats {
		if string(f) == v {
			return f, nil
		}
	}
	return "", services.Wrap(services.ErrInvalidInput, "export", "parse format",
		fmt.Sprintf("unsupported format %q (want one of %s)", value, formatList()), nil)
}

// FormatForPath guesses a format from a file extension, falling back to CSV.
func FormatForPath(path string) Format {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".tsv"):
		return FormatTSV
	case strings.HasSuffix(lower, ".md"), strings.HasSuffix(lower, ".markdown"):
		return FormatMarkdown
	case strings.HasSuffix(lower, ".html"), strings.HasSuffix(lower, ".htm"):
		return FormatHTML
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON
	case strings.HasSuffix(lower, ".txt"):
		return FormatTable
	default:
		return FormatCSV
	}
}

func formatList() string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// Render writes table to w in format.
func Render(w io.Writer, format Format, t species.Table) error {
	if format == FormatJSON {
		return renderJSON(w, t)
	}
	headers, rows := Flatten(t)
	tw := newWriter(headers, rows)

	var out string
	switch format {
	case FormatTable, "":
		tw.SetStyle(table.StyleRounded)
		out = tw.Render()
	case FormatCSV:
		out = tw.RenderCSV()
	case FormatTSV:
		out = tw.RenderTSV()
	case FormatMarkdown:
		out = tw.RenderMarkdown()
	case FormatHTML:
		out = tw.RenderHTML()
	default:
		return services.Wrap(services.ErrInvalidInput, "export", "render", "unsupported format "+string(format), nil)
	}
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	_, err := io.WriteString(w, out)
	return err
}

func newWriter(headers []string, rows [][]string) table.Writer {
	tw := table.NewWriter()
	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(headers))
	for i, h := range headers {
		align := text.AlignLeft
		if h == ColumnPosition || h == ColumnMatchScore {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw
}

type jsonRow struct {
	species.ResultRow
	Protected bool `json:"protected"`
}

type jsonTable struct {
	RunID   string    `json:"run_id"`
	Sources []string  `json:"sources"`
	Rows    []jsonRow `json:"rows"`
}

func renderJSON(w io.Writer, t species.Table) error {
	doc := jsonTable{RunID: t.RunID, Sources: t.SourceNames(), Rows: make([]jsonRow, 0, len(t.Rows))}
	if doc.Sources == nil {
		doc.Sources = []string{}
	}
	for _, row := range t.Rows {
		doc.Rows = append(doc.Rows, jsonRow{ResultRow: row, Protected: row.Protected()})
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}
