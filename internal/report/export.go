package report

import (
	"fmt"
	"io"
	"regexp"
	"strings"
)

// WriteGroupCSV serializes one group's rows as CSV. The header comes from
// the first row's columns; fields are quoted only when they contain a
// comma, quote, or newline, with embedded quotes doubled.
func WriteGroupCSV(w io.Writer, g *SubBottlerGroup) error {
	if len(g.Rows) == 0 {
		return fmt.Errorf("group %q has no rows to export", g.Name)
	}

	columns := g.Rows[0].Columns()
	if err := writeCSVLine(w, columns); err != nil {
		return err
	}

	fields := make([]string, len(columns))
	for _, row := range g.Rows {
		for i, col := range columns {
			fields[i] = row.Get(col)
		}
		if err := writeCSVLine(w, fields); err != nil {
			return err
		}
	}
	return nil
}

// GroupCSV renders the group as a CSV string.
func GroupCSV(g *SubBottlerGroup) (string, error) {
	var b strings.Builder
	if err := WriteGroupCSV(&b, g); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeCSVLine(w io.Writer, fields []string) error {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = escapeCSVField(f)
	}
	_, err := io.WriteString(w, strings.Join(escaped, ",")+"\n")
	return err
}

// escapeCSVField wraps a field in quotes only when needed, doubling any
// embedded quotes.
func escapeCSVField(f string) string {
	if !strings.ContainsAny(f, ",\"\n\r") {
		return f
	}
	return `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

// ExportFilename derives the download filename for a group's CSV export:
// non-alphanumerics become underscores, lowercased, prefixed "Report-".
func ExportFilename(groupName string) string {
	safe := strings.ToLower(nonAlphanumeric.ReplaceAllString(groupName, "_"))
	return "Report-" + safe + ".csv"
}
