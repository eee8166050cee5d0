package filter

import (
	"testing"

	"github.com/kailas-cloud/attachments/internal/domain"
	"github.com/kailas-cloud/attachments/internal/domain/directive"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		d    directive.Directives
		want Selection
	}{
		{"none", directive.New(), Selection{}},
		{"focus text", directive.New("focus", "text"), Selection{TextOnly: true}},
		{"focus images", directive.New("focus", "images"), Selection{MediaOnly: true}},
		{"images false", directive.New("images", "false"), Selection{ExcludeMedia: true}},
		{"media off", directive.New("media", "off"), Selection{ExcludeMedia: true}},
		{"images true", directive.New("images", "true"), Selection{}},
		{"format alias", directive.New("format", "md"), Selection{Format: FormatMarkdown}},
		{"unknown format", directive.New("format", "PDF"), Selection{Format: "pdf"}},
		{"last alias wins", directive.New("images", "false", "media", "true"), Selection{}},
		{"last alias wins reversed", directive.New("media", "true", "images", "false"), Selection{ExcludeMedia: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.d); got != tt.want {
				t.Errorf("Resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAllows_Policy(t *testing.T) {
	tests := []struct {
		sel  Selection
		cat  domain.Category
		want bool
	}{
		{Selection{}, domain.CategoryText, true},
		{Selection{}, domain.CategoryMedia, true},
		{Selection{}, domain.CategoryBoth, true},
		{Selection{MediaOnly: true}, domain.CategoryText, false},
		{Selection{MediaOnly: true}, domain.CategoryMedia, true},
		{Selection{MediaOnly: true}, domain.CategoryBoth, true},
		{Selection{TextOnly: true}, domain.CategoryMedia, false},
		{Selection{TextOnly: true}, domain.CategoryText, true},
		{Selection{ExcludeMedia: true}, domain.CategoryMedia, false},
		{Selection{ExcludeMedia: true}, domain.CategoryText, true},
		{Selection{ExcludeMedia: true, TextOnly: true}, domain.CategoryBoth, true},
	}
	for _, tt := range tests {
		if got := tt.sel.Allows(tt.cat, ""); got != tt.want {
			t.Errorf("%+v.Allows(%s) = %v, want %v", tt.sel, tt.cat, got, tt.want)
		}
	}
}

func TestAllows_Format(t *testing.T) {
	sel := Selection{Format: FormatPlain}
	if !sel.Allows(domain.CategoryText, "text") {
		t.Error("plain selection should allow a handler declaring text")
	}
	if sel.Allows(domain.CategoryText, FormatMarkdown) {
		t.Error("plain selection should reject a markdown handler")
	}
	if !sel.Allows(domain.CategoryText, "") {
		t.Error("handlers without a declared format always pass the format check")
	}
	if !(Selection{}).Allows(domain.CategoryText, FormatMarkdown) {
		t.Error("no format directive should allow any format")
	}
}

func TestInferCategory(t *testing.T) {
	tests := map[string]domain.Category{
		"text":          domain.CategoryText,
		"markdown":      domain.CategoryText,
		"format_tables": domain.CategoryText,
		"add_headers":   domain.CategoryText,
		"images":        domain.CategoryMedia,
		"tile_images":   domain.CategoryMedia,
		"thumbnails":    domain.CategoryMedia,
		"metadata":      domain.CategoryBoth,
		"image_text":    domain.CategoryBoth,
	}
	for name, want := range tests {
		if got := InferCategory(name); got != want {
			t.Errorf("InferCategory(%q) = %q, want %q", name, got, want)
		}
	}
}
