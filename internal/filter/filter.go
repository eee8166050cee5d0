// Package filter decides which extraction and refinement handlers may run for
// a unit, based on its format and media directives.
package filter

import (
	"strings"

	"github.com/kailas-cloud/attachments/internal/domain"
	"github.com/kailas-cloud/attachments/internal/domain/directive"
)

// Canonical presentation formats.
const (
	FormatPlain    = "plain"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

var formatAliases = map[string]string{
	"plain":    FormatPlain,
	"text":     FormatPlain,
	"txt":      FormatPlain,
	"md":       FormatMarkdown,
	"markdown": FormatMarkdown,
	"html":     FormatHTML,
	"xml":      FormatHTML,
	"code":     FormatHTML,
}

// CanonicalFormat resolves a format alias. Unknown names are returned lowercased.
func CanonicalFormat(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if c, ok := formatAliases[name]; ok {
		return c
	}
	return name
}

// Selection is the resolved effect of a unit's filtering directives.
type Selection struct {
	TextOnly     bool
	MediaOnly    bool
	ExcludeMedia bool
	Format       string
}

// Resolve reads the filtering directives in directive order, so when aliases
// disagree the one appearing last wins.
func Resolve(d directive.Directives) Selection {
	var s Selection
	for _, key := range d.Keys() {
		v := strings.ToLower(strings.TrimSpace(d.Value(key)))
		switch key {
		case "focus":
			switch v {
			case "text":
				s.TextOnly, s.MediaOnly = true, false
			case "images", "image", "media":
				s.TextOnly, s.MediaOnly = false, true
			default:
				s.TextOnly, s.MediaOnly = false, false
			}
		case "images", "media":
			s.ExcludeMedia = !d.Bool(key, true)
		case "format":
			s.Format = CanonicalFormat(v)
		}
	}
	return s
}

// Allows reports whether a handler with the given output category and declared
// format may run under s. Category both always passes the category check.
func (s Selection) Allows(cat domain.Category, format string) bool {
	if format != "" && s.Format != "" && CanonicalFormat(format) != s.Format {
		return false
	}
	switch cat {
	case domain.CategoryText:
		return !s.MediaOnly
	case domain.CategoryMedia:
		return !s.TextOnly && !s.ExcludeMedia
	default:
		return true
	}
}

// Allows is a shorthand for Resolve(d).Allows(cat, format).
func Allows(d directive.Directives, cat domain.Category, format string) bool {
	return Resolve(d).Allows(cat, format)
}

var (
	textFragments  = []string{"text", "markdown", "md", "csv", "html", "xml", "summary", "head", "truncate", "header", "table", "join", "content"}
	mediaFragments = []string{"image", "img", "thumbnail", "tile", "picture", "photo", "media", "png", "jpeg"}
)

// InferCategory classifies a handler by name fragments. Names matching both
// groups or neither are classified as both so nothing is dropped by default.
func InferCategory(name string) domain.Category {
	name = strings.ToLower(name)
	isText := containsAny(name, textFragments)
	isMedia := containsAny(name, mediaFragments)
	switch {
	case isText && !isMedia:
		return domain.CategoryText
	case isMedia && !isText:
		return domain.CategoryMedia
	default:
		return domain.CategoryBoth
	}
}

func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}
