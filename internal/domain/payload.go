package domain

// Kind names a payload variant. Predicates match on it.
type Kind string

// KindNone is the kind of a unit without payload.
const KindNone Kind = ""

// Payload is the opaque object a unit carries between acquisition and extraction.
// Concrete variants live in the payload package; external collaborators may add
// their own by implementing Kind.
type Payload interface {
	Kind() Kind
}

// KindOf returns the kind of p, or KindNone for a nil payload.
func KindOf(p Payload) Kind {
	if p == nil {
		return KindNone
	}
	return p.Kind()
}
