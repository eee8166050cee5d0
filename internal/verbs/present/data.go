package present

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/kailas-cloud/attachments/internal/domain/payload"
	"github.com/kailas-cloud/attachments/internal/domain/unit"
)

const (
	headRows  = 5
	headChars = 200
)

func plainTable(t payload.Table) (string, error) {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(t.Header, "\t"))
	for _, r := range t.Rows {
		fmt.Fprintln(w, strings.Join(r, "\t"))
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("render table: %w", err)
	}
	return strings.TrimRight(sb.String(), "\n "), nil
}

func csvOfTable(_ context.Context, u *unit.Unit) error {
	s, err := u.Payload().(payload.Table).CSV()
	if err != nil {
		return err
	}
	u.AppendText(strings.TrimRight(s, "\n"), blockSeparator)
	return nil
}

func summaryOfTable(_ context.Context, u *unit.Unit) error {
	t := u.Payload().(payload.Table)
	u.AppendText(fmt.Sprintf("## Summary Statistics\n\n- **Rows**: %d\n- **Columns**: %d\n- **Numeric Columns**: [%s]",
		len(t.Rows), len(t.Header), strings.Join(numericColumns(t), ", ")), blockSeparator)
	return nil
}

func summaryFallback(_ context.Context, u *unit.Unit) error {
	u.AppendText(fmt.Sprintf("## Object Summary\n\n- **Type**: %s\n- **Description**: %s",
		u.Kind(), describe(u.Payload())), blockSeparator)
	return nil
}

// numericColumns lists the columns whose non-empty cells all parse as numbers.
func numericColumns(t payload.Table) []string {
	var out []string
	for i, h := range t.Header {
		seen := false
		numeric := true
		for _, r := range t.Rows {
			if i >= len(r) || strings.TrimSpace(r[i]) == "" {
				continue
			}
			seen = true
			if _, err := strconv.ParseFloat(strings.TrimSpace(r[i]), 64); err != nil {
				numeric = false
				break
			}
		}
		if seen && numeric {
			out = append(out, h)
		}
	}
	return out
}

func headOfTable(_ context.Context, u *unit.Unit) error {
	t := u.Payload().(payload.Table).Limit(headRows)
	u.AppendText("## Data Preview\n\n"+t.Markdown(), blockSeparator)
	return nil
}

func headFallback(_ context.Context, u *unit.Unit) error {
	var preview string
	switch p := u.Payload().(type) {
	case payload.Text:
		preview = p.Content
	case payload.HTML:
		preview = p.PlainText()
	default:
		preview = describe(p)
	}
	if r := []rune(preview); len(r) > headChars {
		preview = string(r[:headChars])
	}
	u.AppendText("## Preview\n\n"+preview, blockSeparator)
	return nil
}
