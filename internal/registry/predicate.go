package registry

import (
	"slices"
	"strings"

	"github.com/kailas-cloud/attachments/internal/domain"
	"github.com/kailas-cloud/attachments/internal/domain/unit"
)

// Predicate decides whether an entry applies to a unit. It must not mutate anything.
type Predicate func(v unit.View) bool

// Always matches every unit.
func Always(unit.View) bool { return true }

// KindIs matches units whose payload is one of kinds.
func KindIs(kinds ...domain.Kind) Predicate {
	return func(v unit.View) bool { return slices.Contains(kinds, v.Kind) }
}

// HasPayload matches units carrying any payload.
func HasPayload(v unit.View) bool { return v.Kind != domain.KindNone }

// HasContent matches units with accumulated text or media.
func HasContent(v unit.View) bool { return v.TextLen > 0 || v.MediaCount > 0 }

// HasText matches units with accumulated text.
func HasText(v unit.View) bool { return v.TextLen > 0 }

// HasMedia matches units with media.
func HasMedia(v unit.View) bool { return v.MediaCount > 0 }

// HasDirective matches units carrying any of keys.
func HasDirective(keys ...string) Predicate {
	return func(v unit.View) bool {
		for _, k := range keys {
			if v.Directives.Has(k) {
				return true
			}
		}
		return false
	}
}

// DirectiveIs matches units whose directive key equals value (case-insensitive).
func DirectiveIs(key, value string) Predicate {
	return func(v unit.View) bool {
		got, ok := v.Directives.Get(key)
		return ok && strings.EqualFold(got, value)
	}
}

// Ext matches units whose path ends with one of the extensions (".csv").
func Ext(exts ...string) Predicate {
	return func(v unit.View) bool { return slices.Contains(exts, v.Ext()) }
}

// PathPrefix matches units whose path starts with one of prefixes (case-insensitive).
func PathPrefix(prefixes ...string) Predicate {
	return func(v unit.View) bool {
		p := strings.ToLower(v.Path)
		for _, pre := range prefixes {
			if strings.HasPrefix(p, pre) {
				return true
			}
		}
		return false
	}
}

// All matches when every predicate matches.
func All(ps ...Predicate) Predicate {
	return func(v unit.View) bool {
		for _, p := range ps {
			if !p(v) {
				return false
			}
		}
		return true
	}
}

// Any matches when at least one predicate matches.
func Any(ps ...Predicate) Predicate {
	return func(v unit.View) bool {
		for _, p := range ps {
			if p(v) {
				return true
			}
		}
		return false
	}
}

// Not negates a predicate.
func Not(p Predicate) Predicate {
	return func(v unit.View) bool { return !p(v) }
}
