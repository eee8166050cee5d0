// Package collection holds ordered groups of units and the value type that
// flows between pipeline steps.
package collection

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/attachments/internal/domain/unit"
)

// Collection is an ordered sequence of independently owned units.
type Collection struct {
	units []*unit.Unit
}

// New creates a collection from units, preserving order.
func New(units ...*unit.Unit) *Collection {
	return &Collection{units: slices.Clone(units)}
}

// Len returns the member count.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.units)
}

// Units returns the members in order.
func (c *Collection) Units() []*unit.Unit {
	if c == nil {
		return nil
	}
	return slices.Clone(c.units)
}

// At returns the i-th member.
func (c *Collection) At(i int) *unit.Unit { return c.units[i] }

// Value is either a single unit or a collection.
type Value struct {
	one  *unit.Unit
	many *Collection
}

// Single wraps one unit.
func Single(u *unit.Unit) Value { return Value{one: u} }

// Many wraps a collection.
func Many(c *Collection) Value { return Value{many: c} }

// Of wraps units: one unit stays single, anything else becomes a collection.
func Of(units ...*unit.Unit) Value {
	if len(units) == 1 {
		return Single(units[0])
	}
	return Many(New(units...))
}

// IsCollection reports whether v holds a collection.
func (v Value) IsCollection() bool { return v.many != nil }

// IsZero reports whether v holds nothing.
func (v Value) IsZero() bool { return v.one == nil && v.many == nil }

// Unit returns the single unit, or nil for a collection.
func (v Value) Unit() *unit.Unit { return v.one }

// Collection returns the collection, or nil for a single unit.
func (v Value) Collection() *Collection { return v.many }

// Units flattens v into its units.
func (v Value) Units() []*unit.Unit {
	if v.many != nil {
		return v.many.Units()
	}
	if v.one != nil {
		return []*unit.Unit{v.one}
	}
	return nil
}

// Clone deep-copies every unit in v.
func (v Value) Clone() Value {
	if v.many != nil {
		units := v.many.Units()
		for i, u := range units {
			units[i] = u.Clone()
		}
		return Many(&Collection{units: units})
	}
	if v.one != nil {
		return Single(v.one.Clone())
	}
	return v
}

// Text concatenates the text of every unit with a blank line between them.
func (v Value) Text() string {
	var parts []string
	for _, u := range v.Units() {
		if t := u.Text(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Media returns every unit's media in order.
func (v Value) Media() []unit.Blob {
	var out []unit.Blob
	for _, u := range v.Units() {
		out = append(out, u.Media()...)
	}
	return out
}

// Section separators used when merging several units into one.
const (
	SectionSeparator = "\n\n---\n\n"
	summaryFormat    = "Processing Summary: %d files processed"
)

// Merge folds v into one unit for adaptation or display. A single unit is
// returned unchanged. Several units become `## path` sections joined by a rule,
// prefixed by a processing summary, with all media in order and metadata
// describing each member.
func Merge(v Value) *unit.Unit {
	if !v.IsCollection() {
		return v.one
	}
	units := v.Units()
	out := unit.New("combined")

	var sections []string
	files := make([]map[string]any, 0, len(units))
	imageCount := 0
	for i, u := range units {
		if t := u.Text(); t != "" {
			name := u.Path()
			if name == "" {
				name = fmt.Sprintf("File %d", i+1)
			}
			if len(units) > 1 {
				sections = append(sections, "## "+name+"\n\n"+t)
			} else {
				sections = append(sections, t)
			}
		}
		out.AddMedia(u.Media()...)
		imageCount += u.MediaCount()
		files = append(files, map[string]any{
			"path":        u.Path(),
			"text_length": len(u.Text()),
			"image_count": u.MediaCount(),
			"metadata":    u.Metadata(),
		})
		for _, err := range u.Failures() {
			out.Fail(err)
		}
	}

	text := strings.Join(sections, SectionSeparator)
	if len(units) > 1 {
		summary := fmt.Sprintf(summaryFormat, len(units))
		if imageCount > 0 {
			summary += fmt.Sprintf(", %d images extracted", imageCount)
		}
		text = summary + "\n\n" + text
	}
	out.SetText(text)
	out.MergeMeta(map[string]any{
		"file_count":  len(units),
		"image_count": imageCount,
		"files":       files,
	})
	return out
}
