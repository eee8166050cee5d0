// Package present provides the extraction verbs that render payloads into the
// text and media buffers. Every verb has typed variants followed by at most
// one fallback variant that runs only when no typed variant matched.
package present

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/kailas-cloud/attachments/internal/domain"
	"github.com/kailas-cloud/attachments/internal/domain/payload"
	"github.com/kailas-cloud/attachments/internal/domain/unit"
	"github.com/kailas-cloud/attachments/internal/filter"
	"github.com/kailas-cloud/attachments/internal/registry"
)

// blockSeparator separates successive presentations in the text buffer.
const blockSeparator = "\n\n"

var (
	isText  = registry.KindIs(payload.KindText)
	isHTML  = registry.KindIs(payload.KindHTML)
	isTable = registry.KindIs(payload.KindTable)
	isImage = registry.KindIs(payload.KindImage)
)

// Entries returns the extraction verbs in dispatch order.
func Entries() []registry.Entry {
	text := func(match registry.Predicate, desc string, fn registry.Func, fallback bool) registry.Entry {
		return registry.Entry{
			Name: "text", Stage: domain.StageExtract, Category: domain.CategoryText, Format: filter.FormatPlain,
			Match: match, Description: desc, Apply: fn, Fallback: fallback,
		}
	}
	markdown := func(match registry.Predicate, desc string, fn registry.Func, fallback bool) registry.Entry {
		return registry.Entry{
			Name: "markdown", Stage: domain.StageExtract, Category: domain.CategoryText, Format: filter.FormatMarkdown,
			Match: match, Description: desc, Apply: fn, Fallback: fallback,
		}
	}
	htmlEntry := func(match registry.Predicate, desc string, fn registry.Func, fallback bool) registry.Entry {
		return registry.Entry{
			Name: "html", Stage: domain.StageExtract, Category: domain.CategoryText, Format: filter.FormatHTML,
			Match: match, Description: desc, Apply: fn, Fallback: fallback,
		}
	}

	return []registry.Entry{
		text(isText, "text documents as-is", textOfText, false),
		text(isHTML, "visible text of HTML documents", textOfHTML, false),
		text(isTable, "tables as aligned plain text", textOfTable, false),
		text(registry.HasPayload, "short description of any payload", textFallback, true),

		markdown(isText, "text documents, code in fenced blocks", markdownOfText, false),
		markdown(isHTML, "HTML documents converted to markdown", markdownOfHTML, false),
		markdown(isTable, "tables as markdown tables", markdownOfTable, false),
		markdown(isImage, "image properties as a markdown list", markdownOfImage, false),
		markdown(registry.HasPayload, "heading and description of any payload", markdownFallback, true),

		htmlEntry(isText, "markdown rendered to HTML, other text preformatted", htmlOfText, false),
		htmlEntry(isHTML, "HTML documents serialized", htmlOfHTML, false),
		htmlEntry(isTable, "tables as HTML tables", htmlOfTable, false),
		htmlEntry(registry.HasPayload, "description of any payload in a paragraph", htmlFallback, true),

		{
			Name: "csv", Stage: domain.StageExtract, Category: domain.CategoryText, Match: isTable,
			Description: "tables as comma-separated values", Apply: csvOfTable,
		},
		{
			Name: "images", Stage: domain.StageExtract, Category: domain.CategoryMedia, Match: isImage,
			Description: "images encoded as PNG media", Apply: imagesOfImage,
		},
		{
			Name: "metadata", Stage: domain.StageExtract, Category: domain.CategoryBoth, Match: registry.Always,
			Description: "user-facing metadata as a File Info list", Apply: metadata,
		},
		{
			Name: "summary", Stage: domain.StageExtract, Category: domain.CategoryText, Match: isTable,
			Description: "table summary statistics", Apply: summaryOfTable,
		},
		{
			Name: "summary", Stage: domain.StageExtract, Category: domain.CategoryText, Match: registry.HasPayload,
			Description: "payload kind and size", Apply: summaryFallback, Fallback: true,
		},
		{
			Name: "head", Stage: domain.StageExtract, Category: domain.CategoryText, Match: isTable,
			Description: "first rows of a table", Apply: headOfTable,
		},
		{
			Name: "head", Stage: domain.StageExtract, Category: domain.CategoryText, Match: registry.HasPayload,
			Description: "first characters of any payload", Apply: headFallback, Fallback: true,
		},
	}
}

// --- text ---

func textOfText(_ context.Context, u *unit.Unit) error {
	u.AppendText(u.Payload().(payload.Text).Content, blockSeparator)
	return nil
}

func textOfHTML(_ context.Context, u *unit.Unit) error {
	u.AppendText(u.Payload().(payload.HTML).PlainText(), blockSeparator)
	return nil
}

func textOfTable(_ context.Context, u *unit.Unit) error {
	t := u.Payload().(payload.Table)
	title := "Data from " + u.Path()
	body, err := plainTable(t)
	if err != nil {
		return err
	}
	u.AppendText(fmt.Sprintf("%s\n%s\n\n%s\n\nShape: %s", title, strings.Repeat("=", len(title)), body, shape(t)), blockSeparator)
	return nil
}

func textFallback(_ context.Context, u *unit.Unit) error {
	u.AppendText(u.Path()+": "+describe(u.Payload()), blockSeparator)
	return nil
}

// --- markdown ---

var codeFormats = map[string]bool{"go": true, "py": true, "json": true, "yaml": true, "xml": true, "html": true, "htm": true}

func markdownOfText(_ context.Context, u *unit.Unit) error {
	t := u.Payload().(payload.Text)
	content := t.Content
	if codeFormats[t.Format] {
		content = "```" + t.Format + "\n" + strings.TrimRight(content, "\n") + "\n```"
	}
	u.AppendText(content, blockSeparator)
	return nil
}

func markdownOfHTML(_ context.Context, u *unit.Unit) error {
	doc := u.Payload().(payload.HTML)
	md := doc.Markdown()
	if title := doc.Title(); title != "" && !strings.HasPrefix(md, "# ") {
		md = "# " + title + "\n\n" + md
	}
	u.AppendText(md, blockSeparator)
	return nil
}

func markdownOfTable(_ context.Context, u *unit.Unit) error {
	t := u.Payload().(payload.Table)
	u.AppendText(fmt.Sprintf("## Data from %s\n\n%s\n\n*Shape: %s*", u.Path(), t.Markdown(), shape(t)), blockSeparator)
	return nil
}

func markdownOfImage(_ context.Context, u *unit.Unit) error {
	img := u.Payload().(payload.Image)
	w, h := img.Size()
	u.AppendText(fmt.Sprintf("# Image: %s\n\n- **Format**: %s\n- **Size**: %d × %d pixels", u.Path(), img.Format, w, h), blockSeparator)
	return nil
}

func markdownFallback(_ context.Context, u *unit.Unit) error {
	u.AppendText(fmt.Sprintf("# %s\n\n*Object type: %s*", u.Path(), describe(u.Payload())), blockSeparator)
	return nil
}

// --- html ---

func htmlOfText(_ context.Context, u *unit.Unit) error {
	t := u.Payload().(payload.Text)
	if t.Format != "markdown" {
		u.AppendText("<pre>"+html.EscapeString(t.Content)+"</pre>", blockSeparator)
		return nil
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(t.Content), &buf); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	u.AppendText(strings.TrimSpace(buf.String()), blockSeparator)
	return nil
}

func htmlOfHTML(_ context.Context, u *unit.Unit) error {
	s, err := u.Payload().(payload.HTML).Render()
	if err != nil {
		return err
	}
	u.AppendText(s, blockSeparator)
	return nil
}

func htmlOfTable(_ context.Context, u *unit.Unit) error {
	t := u.Payload().(payload.Table)
	var sb strings.Builder
	sb.WriteString("<table>\n<thead><tr>")
	for _, h := range t.Header {
		sb.WriteString("<th>" + html.EscapeString(h) + "</th>")
	}
	sb.WriteString("</tr></thead>\n<tbody>\n")
	for _, r := range t.Rows {
		sb.WriteString("<tr>")
		for _, c := range r {
			sb.WriteString("<td>" + html.EscapeString(c) + "</td>")
		}
		sb.WriteString("</tr>\n")
	}
	sb.WriteString("</tbody>\n</table>")
	u.AppendText(sb.String(), blockSeparator)
	return nil
}

func htmlFallback(_ context.Context, u *unit.Unit) error {
	u.AppendText("<p>"+html.EscapeString(u.Path()+": "+describe(u.Payload()))+"</p>", blockSeparator)
	return nil
}

// describe summarizes a payload in a few words.
func describe(p domain.Payload) string {
	switch v := p.(type) {
	case payload.Text:
		return fmt.Sprintf("%s text, %d characters", v.Format, len([]rune(v.Content)))
	case payload.HTML:
		if t := v.Title(); t != "" {
			return fmt.Sprintf("HTML document %q", t)
		}
		return "HTML document"
	case payload.Table:
		return "table " + shape(v)
	case payload.Image:
		w, h := v.Size()
		return fmt.Sprintf("%s image %dx%d", v.Format, w, h)
	case payload.Archive:
		return fmt.Sprintf("archive with %d entries", len(v.Entries))
	case nil:
		return "empty"
	default:
		return string(p.Kind())
	}
}

func shape(t payload.Table) string {
	return fmt.Sprintf("(%d, %d)", len(t.Rows), len(t.Header))
}
