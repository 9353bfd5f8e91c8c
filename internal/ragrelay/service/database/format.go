package database

import (
	"fmt"
	"strings"
)

// Markdown renders the page as a markdown table.
func (r *QueryResult) Markdown() string {
	if len(r.Rows) == 0 {
		if r.Page > 1 {
			return fmt.Sprintf("No rows on page %d.", r.Page)
		}
		return "No rows."
	}

	var b strings.Builder
	b.WriteString("|")
	for _, c := range r.Columns {
		b.WriteString(" " + cell(c) + " |")
	}
	b.WriteString("\n|")
	for range r.Columns {
		b.WriteString(" --- |")
	}
	for _, row := range r.Rows {
		b.WriteString("\n|")
		for _, v := range row {
			b.WriteString(" " + cell(v) + " |")
		}
	}
	if r.HasMore {
		fmt.Fprintf(&b, "\n\n_Page %d; more rows on page %d._", r.Page, r.Page+1)
	}
	return b.String()
}

// Records returns the rows keyed by column name.
func (r *QueryResult) Records() []map[string]any {
	records := make([]map[string]any, len(r.Rows))
	for i, row := range r.Rows {
		rec := make(map[string]any, len(r.Columns))
		for j, c := range r.Columns {
			rec[c] = row[j]
		}
		records[i] = rec
	}
	return records
}

func cell(v any) string {
	if v == nil {
		return "NULL"
	}
	s := fmt.Sprint(v)
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
