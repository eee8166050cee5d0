// Package split provides the decomposition verbs that break one unit into a
// collection of members.
package split

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/attachments/internal/domain"
	"github.com/kailas-cloud/attachments/internal/domain/payload"
	"github.com/kailas-cloud/attachments/internal/domain/unit"
	"github.com/kailas-cloud/attachments/internal/registry"
)

var (
	paragraphBreak = regexp.MustCompile(`\n\s*\n`)
	sentenceEnd    = regexp.MustCompile(`[.!?]+(\s+|$)`)
)

// Entries returns the decomposition verbs in dispatch order.
func Entries() []registry.Entry {
	return []registry.Entry{
		{
			Name: "entries", Stage: domain.StageDecompose, Match: registry.KindIs(payload.KindArchive),
			Description: "split archives into image and text members",
			Split:       entries,
		},
		{
			Name: "paragraphs", Stage: domain.StageDecompose, Match: registry.KindIs(payload.KindText),
			Description: "split text on blank lines",
			Split:       textSplitter("paragraph", paragraphs),
		},
		{
			Name: "sentences", Stage: domain.StageDecompose, Match: registry.KindIs(payload.KindText),
			Description: "split text after sentence punctuation",
			Split:       textSplitter("sentence", sentences),
		},
		{
			Name: "characters", Stage: domain.StageDecompose,
			Match:       registry.All(registry.HasDirective("characters"), registry.KindIs(payload.KindText)),
			Description: "split text into [characters:N] rune chunks",
			Split:       sized("characters", characters),
		},
		{
			Name: "tokens", Stage: domain.StageDecompose,
			Match:       registry.All(registry.HasDirective("tokens"), registry.KindIs(payload.KindText)),
			Description: "split text into chunks of [tokens:N] whitespace tokens",
			Split:       sized("tokens", tokens),
		},
		{
			Name: "rows", Stage: domain.StageDecompose,
			Match:       registry.All(registry.HasDirective("rows"), registry.KindIs(payload.KindTable)),
			Description: "split tables into [rows:N] row chunks, repeating the header",
			Split:       rows,
		},
	}
}

func entries(_ context.Context, u *unit.Unit) ([]*unit.Unit, error) {
	a := u.Payload().(payload.Archive)
	members := make([]*unit.Unit, 0, len(a.Entries))
	skipped := 0
	for _, e := range a.Entries {
		p, ok := decodeEntry(e)
		if !ok {
			skipped++
			continue
		}
		m := u.Derive(e.Name, p)
		m.MergeMeta(map[string]any{"from_zip": u.Path(), "zip_filename": e.Name})
		if img, ok := p.(payload.Image); ok {
			w, h := img.Size()
			m.MergeMeta(map[string]any{"format": img.Format, "size": []int{w, h}})
		}
		members = append(members, m)
	}
	if skipped > 0 {
		u.SetMeta("skipped_entries", skipped)
	}
	return members, nil
}

func decodeEntry(e payload.Entry) (domain.Payload, bool) {
	switch strings.ToLower(path.Ext(e.Name)) {
	case ".png", ".jpg", ".jpeg", ".gif":
		img, err := payload.DecodeImage(e.Data)
		if err != nil {
			return nil, false
		}
		return img, true
	case ".txt", ".md", ".markdown", ".csv", ".json", ".log", ".yaml", ".yml", ".xml", ".html", ".htm":
		if !utf8.Valid(e.Data) {
			return nil, false
		}
		return payload.Text{Content: string(e.Data), Format: strings.TrimPrefix(strings.ToLower(path.Ext(e.Name)), ".")}, true
	default:
		return nil, false
	}
}

// textSplitter turns a chunking function into a splitter over text payloads.
func textSplitter(label string, chunk func(string) []string) registry.SplitFunc {
	return func(_ context.Context, u *unit.Unit) ([]*unit.Unit, error) {
		t := u.Payload().(payload.Text)
		return members(u, label, t, chunk(t.Content)), nil
	}
}

// sized is a textSplitter whose chunk size comes from the directive key.
func sized(key string, chunk func(string, int) []string) registry.SplitFunc {
	return func(_ context.Context, u *unit.Unit) ([]*unit.Unit, error) {
		n := u.Directives().Int(key, 0)
		if n <= 0 {
			return nil, fmt.Errorf("%w: %s must be a positive integer, got %q",
				domain.ErrInvalidDirective, key, u.Directives().Value(key))
		}
		t := u.Payload().(payload.Text)
		return members(u, strings.TrimSuffix(key, "s"), t, chunk(t.Content, n)), nil
	}
}

func members(u *unit.Unit, label string, t payload.Text, chunks []string) []*unit.Unit {
	out := make([]*unit.Unit, len(chunks))
	for i, c := range chunks {
		m := u.Derive(fmt.Sprintf("%s#%s-%d", u.Path(), label, i+1), payload.Text{Content: c, Format: t.Format})
		m.MergeMeta(map[string]any{
			"chunk_type":  label,
			"chunk_index": i,
			"chunk_count": len(chunks),
			"source":      u.Path(),
		})
		out[i] = m
	}
	return out
}

func paragraphs(s string) []string {
	return nonEmpty(paragraphBreak.Split(s, -1))
}

func sentences(s string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(s, -1) {
		out = append(out, s[last:loc[1]])
		last = loc[1]
	}
	out = append(out, s[last:])
	return nonEmpty(out)
}

func characters(s string, n int) []string {
	runes := []rune(s)
	var out []string
	for start := 0; start < len(runes); start += n {
		out = append(out, string(runes[start:min(start+n, len(runes))]))
	}
	return out
}

func tokens(s string, n int) []string {
	fields := strings.Fields(s)
	var out []string
	for start := 0; start < len(fields); start += n {
		out = append(out, strings.Join(fields[start:min(start+n, len(fields))], " "))
	}
	return out
}

func nonEmpty(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func rows(_ context.Context, u *unit.Unit) ([]*unit.Unit, error) {
	n := u.Directives().Int("rows", 0)
	if n <= 0 {
		return nil, fmt.Errorf("%w: rows must be a positive integer, got %q",
			domain.ErrInvalidDirective, u.Directives().Value("rows"))
	}
	chunks := u.Payload().(payload.Table).Chunk(n)
	out := make([]*unit.Unit, len(chunks))
	for i, c := range chunks {
		m := u.Derive(fmt.Sprintf("%s#rows-%d", u.Path(), i+1), c)
		m.MergeMeta(map[string]any{"chunk_type": "rows", "chunk_index": i, "chunk_count": len(chunks), "source": u.Path()})
		out[i] = m
	}
	return out, nil
}
