// Package export flattens a species.Table into columns and writes it as a
// terminal table, CSV, TSV, Markdown, HTML, JSON, or an SQLite database.
//
// Column order is fixed: identity columns, then one column per source in
// display order (descriptive sources, international instruments, national
// law, regional law, red lists, unknown sources), then the protected flag and
// the note.
package export
