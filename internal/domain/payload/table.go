package payload

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// ParseCSV reads delimited data. The first record is the header.
func ParseCSV(data []byte, comma rune) (Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return Table{}, nil
	}
	return Table{Header: records[0], Rows: records[1:]}, nil
}

// CSV renders the table as comma-separated values.
func (t Table) CSV() (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if len(t.Header) > 0 {
		if err := w.Write(t.Header); err != nil {
			return "", fmt.Errorf("write csv header: %w", err)
		}
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return "", fmt.Errorf("write csv rows: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// Markdown renders the table as a markdown pipe table.
func (t Table) Markdown() string {
	if len(t.Header) == 0 && len(t.Rows) == 0 {
		return ""
	}
	var sb strings.Builder
	row := func(cells []string) {
		sb.WriteString("| ")
		sb.WriteString(strings.Join(cells, " | "))
		sb.WriteString(" |\n")
	}
	row(t.Header)
	sep := make([]string, len(t.Header))
	for i := range sep {
		sep[i] = "---"
	}
	row(sep)
	for _, r := range t.Rows {
		row(r)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Limit keeps the first n rows.
func (t Table) Limit(n int) Table {
	if n < 0 || n >= len(t.Rows) {
		return t
	}
	return Table{Header: t.Header, Rows: t.Rows[:n]}
}

// Columns keeps the named columns in the given order. Unknown names are skipped.
func (t Table) Columns(names []string) Table {
	var idx []int
	for _, name := range names {
		for i, h := range t.Header {
			if strings.EqualFold(strings.TrimSpace(name), h) {
				idx = append(idx, i)
				break
			}
		}
	}
	pick := func(r []string) []string {
		out := make([]string, 0, len(idx))
		for _, i := range idx {
			if i < len(r) {
				out = append(out, r[i])
			} else {
				out = append(out, "")
			}
		}
		return out
	}
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = pick(r)
	}
	return Table{Header: pick(t.Header), Rows: rows}
}

// Chunk splits the rows into tables of at most n rows, repeating the header.
func (t Table) Chunk(n int) []Table {
	if n <= 0 || len(t.Rows) <= n {
		return []Table{t}
	}
	var out []Table
	for start := 0; start < len(t.Rows); start += n {
		end := min(start+n, len(t.Rows))
		out = append(out, Table{Header: t.Header, Rows: t.Rows[start:end]})
	}
	return out
}
