// Package directive parses the bracketed command language embedded in identifiers.
//
//	report.pdf[pages:1-3][format:md]
//
// yields the base "report.pdf" and the ordered directives pages=1-3, format=md.
package directive

import (
	"regexp"
	"strings"
)

var segmentRegex = regexp.MustCompile(`\[([^:\[\]]+):([^\]]+)\]`)

// Directives is an ordered, immutable key/value mapping.
// A repeated key keeps its first position and takes the last value.
type Directives struct {
	keys   []string
	values map[string]string
}

// Parse splits an identifier into its base and directives.
// Segments without a colon or with an empty key stay in the base untouched.
func Parse(identifier string) (string, Directives) {
	var d Directives
	base := segmentRegex.ReplaceAllStringFunc(identifier, func(seg string) string {
		m := segmentRegex.FindStringSubmatch(seg)
		key := strings.TrimSpace(m[1])
		if key == "" {
			return seg
		}
		d.set(key, strings.TrimSpace(m[2]))
		return ""
	})
	return strings.TrimSpace(base), d
}

// New builds directives from alternating key/value pairs. A trailing key without value is dropped.
func New(kv ...string) Directives {
	var d Directives
	for i := 0; i+1 < len(kv); i += 2 {
		d.set(kv[i], kv[i+1])
	}
	return d
}

func (d *Directives) set(key, value string) {
	if d.values == nil {
		d.values = make(map[string]string)
	}
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Get returns the value for key.
func (d Directives) Get(key string) (string, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Value returns the value for key or "".
func (d Directives) Value(key string) string {
	return d.values[key]
}

// Has reports whether key is present.
func (d Directives) Has(key string) bool {
	_, ok := d.values[key]
	return ok
}

// Len returns the number of distinct keys.
func (d Directives) Len() int { return len(d.keys) }

// Keys returns the keys in insertion order.
func (d Directives) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// With returns a copy of d with key set to value.
func (d Directives) With(key, value string) Directives {
	out := d.clone()
	out.set(key, value)
	return out
}

// Merge returns a copy of d overlaid with other. Keys of other win.
func (d Directives) Merge(other Directives) Directives {
	out := d.clone()
	for _, k := range other.keys {
		out.set(k, other.values[k])
	}
	return out
}

// Map returns a copy of the directives as a plain map.
func (d Directives) Map() map[string]string {
	out := make(map[string]string, len(d.values))
	for k, v := range d.values {
		out[k] = v
	}
	return out
}

// String serializes the directives back to bracket form.
func (d Directives) String() string {
	var b strings.Builder
	for _, k := range d.keys {
		b.WriteByte('[')
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(d.values[k])
		b.WriteByte(']')
	}
	return b.String()
}

func (d Directives) clone() Directives {
	out := Directives{
		keys:   make([]string, len(d.keys), len(d.keys)+1),
		values: make(map[string]string, len(d.values)+1),
	}
	copy(out.keys, d.keys)
	for k, v := range d.values {
		out.values[k] = v
	}
	return out
}
