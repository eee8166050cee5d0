// Package unit defines the mutable carrier threaded through a pipeline.
package unit

import (
	"errors"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/kailas-cloud/attachments/internal/domain"
	"github.com/kailas-cloud/attachments/internal/domain/directive"
)

// Unit is one resource in flight: identity, directives, payload and the
// accumulated text, media and metadata. A unit is owned by one goroutine at a time.
type Unit struct {
	id         string
	identifier string
	path       string
	directives directive.Directives

	payload  domain.Payload
	text     string
	media    []Blob
	metadata map[string]any

	trail    []string
	failures []error
	acquired bool
}

// New creates a unit from an identifier carrying optional bracketed directives.
func New(identifier string) *Unit {
	path, d := directive.Parse(identifier)
	return &Unit{
		id:         uuid.NewString(),
		identifier: identifier,
		path:       path,
		directives: d,
		metadata:   make(map[string]any),
	}
}

// NewWithPayload creates a synthetic unit around an in-memory payload.
func NewWithPayload(path string, p domain.Payload, d directive.Directives) *Unit {
	return &Unit{
		id:         uuid.NewString(),
		identifier: path + d.String(),
		path:       path,
		directives: d,
		payload:    p,
		metadata:   make(map[string]any),
		acquired:   p != nil,
	}
}

// Derive creates a member unit inheriting the directives of u.
// Decomposition handlers use it so every member sees the parent's directive set.
func (u *Unit) Derive(path string, p domain.Payload) *Unit {
	return &Unit{
		id:         uuid.NewString(),
		identifier: path + u.directives.String(),
		path:       path,
		directives: u.directives,
		payload:    p,
		metadata:   make(map[string]any),
		trail:      slices.Clone(u.trail),
		acquired:   u.acquired || p != nil,
	}
}

// Clone returns an independent copy of u. The payload is shared since
// handlers replace payloads instead of mutating them.
func (u *Unit) Clone() *Unit {
	return &Unit{
		id:         u.id,
		identifier: u.identifier,
		path:       u.path,
		directives: u.directives,
		payload:    u.payload,
		text:       u.text,
		media:      slices.Clone(u.media),
		metadata:   maps.Clone(u.metadata),
		trail:      slices.Clone(u.trail),
		failures:   slices.Clone(u.failures),
		acquired:   u.acquired,
	}
}

// ID returns the unique unit ID.
func (u *Unit) ID() string { return u.id }

// Identifier returns the raw identifier including directives.
func (u *Unit) Identifier() string { return u.identifier }

// Path returns the identifier without directives.
func (u *Unit) Path() string { return u.path }

// Directives returns the parsed directives.
func (u *Unit) Directives() directive.Directives { return u.directives }

// SetDirectives replaces the directives.
func (u *Unit) SetDirectives(d directive.Directives) { u.directives = d }

// Payload returns the current payload, possibly nil.
func (u *Unit) Payload() domain.Payload { return u.payload }

// HasPayload reports whether a payload is set.
func (u *Unit) HasPayload() bool { return u.payload != nil }

// Kind returns the payload kind.
func (u *Unit) Kind() domain.Kind { return domain.KindOf(u.payload) }

// SetPayload replaces the payload.
func (u *Unit) SetPayload(p domain.Payload) { u.payload = p }

// Text returns the accumulated text.
func (u *Unit) Text() string { return u.text }

// SetText replaces the accumulated text.
func (u *Unit) SetText(s string) { u.text = s }

// AppendText appends s, separated from existing text by sep when both are non-empty.
func (u *Unit) AppendText(s, sep string) {
	switch {
	case s == "":
	case u.text == "":
		u.text = s
	default:
		u.text += sep + s
	}
}

// Media returns a copy of the media blobs.
func (u *Unit) Media() []Blob { return slices.Clone(u.media) }

// MediaCount returns the number of media blobs.
func (u *Unit) MediaCount() int { return len(u.media) }

// AddMedia appends media blobs.
func (u *Unit) AddMedia(b ...Blob) { u.media = append(u.media, b...) }

// SetMedia replaces the media blobs.
func (u *Unit) SetMedia(b []Blob) { u.media = slices.Clone(b) }

// Metadata returns a copy of the metadata.
func (u *Unit) Metadata() map[string]any { return maps.Clone(u.metadata) }

// Meta returns one metadata value.
func (u *Unit) Meta(key string) (any, bool) {
	v, ok := u.metadata[key]
	return v, ok
}

// SetMeta sets one metadata value.
func (u *Unit) SetMeta(key string, v any) {
	if u.metadata == nil {
		u.metadata = make(map[string]any)
	}
	u.metadata[key] = v
}

// MergeMeta unions m into the metadata. Keys of m win.
func (u *Unit) MergeMeta(m map[string]any) {
	if u.metadata == nil {
		u.metadata = make(map[string]any, len(m))
	}
	maps.Copy(u.metadata, m)
}

// Acquired reports whether the unit was loaded, or derived from a loaded unit.
// It stays true when later stages replace or drop the payload.
func (u *Unit) Acquired() bool { return u.acquired }

// MarkAcquired records that acquisition succeeded.
func (u *Unit) MarkAcquired() { u.acquired = true }

// Trail returns the names of the steps applied so far.
func (u *Unit) Trail() []string { return slices.Clone(u.trail) }

// Record appends a step name to the trail.
func (u *Unit) Record(step string) { u.trail = append(u.trail, step) }

// Fail records a handler failure on the unit.
func (u *Unit) Fail(err error) { u.failures = append(u.failures, err) }

// Failures returns the recorded failures.
func (u *Unit) Failures() []error { return slices.Clone(u.failures) }

// Err joins the recorded failures, or returns nil.
func (u *Unit) Err() error { return errors.Join(u.failures...) }

// View returns the read-only state predicates match against.
func (u *Unit) View() View {
	return View{
		Path:       u.path,
		Kind:       u.Kind(),
		Payload:    u.payload,
		Directives: u.directives,
		TextLen:    len(u.text),
		MediaCount: len(u.media),
	}
}

// View is the read-only projection of a unit passed to match predicates.
type View struct {
	Path       string
	Kind       domain.Kind
	Payload    domain.Payload
	Directives directive.Directives
	TextLen    int
	MediaCount int
}

// Ext returns the lowercase extension of the path including the dot.
func (v View) Ext() string {
	p := v.Path
	if i := strings.IndexAny(p, "?#"); i >= 0 && strings.Contains(p, "://") {
		p = p[:i]
	}
	i := strings.LastIndexByte(p, '.')
	if i < 0 || strings.ContainsRune(p[i:], '/') {
		return ""
	}
	return strings.ToLower(p[i:])
}
