package registry

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/attachments/internal/domain"
	"github.com/kailas-cloud/attachments/internal/domain/unit"
)

// Func transforms a unit in place. Handlers replace the payload rather than
// mutate it and must not keep a reference to the unit after returning.
type Func func(ctx context.Context, u *unit.Unit) error

// SplitFunc decomposes a unit into members. Members should be created with
// unit.Derive so they inherit the parent's directives.
type SplitFunc func(ctx context.Context, u *unit.Unit) ([]*unit.Unit, error)

// ReduceFunc folds every member of a collection into one unit.
type ReduceFunc func(ctx context.Context, members []*unit.Unit) (*unit.Unit, error)

// AdaptFunc converts a unit into an external payload shape.
type AdaptFunc func(ctx context.Context, u *unit.Unit, prompt string) (any, error)

// Entry is one registered verb variant.
type Entry struct {
	Name  string
	Stage domain.Stage
	Match Predicate

	// Category is the output category for extraction and refinement filtering.
	// Left unset it is inferred from Name at registration.
	Category domain.Category
	// Format is the presentation format the handler produces, if it is one of
	// several alternatives selected by the format directive.
	Format string
	// Fallback marks an untyped variant that runs only when no other variant
	// of the same name matched the unit.
	Fallback    bool
	Description string

	Apply  Func
	Split  SplitFunc
	Reduce ReduceFunc
	Adapt  AdaptFunc
}

// Ref returns "stage.name".
func (e *Entry) Ref() string { return string(e.Stage) + "." + e.Name }

// Reducer reports whether the entry consumes a whole collection.
func (e *Entry) Reducer() bool { return e.Reduce != nil }

// Kind describes the handler shape.
func (e *Entry) Kind() string {
	switch {
	case e.Split != nil:
		return "decompose"
	case e.Reduce != nil:
		return "reduce"
	case e.Adapt != nil:
		return "adapt"
	default:
		return "scalar"
	}
}

// Validate checks that the entry has a name, a predicate and exactly one
// handler suited to its stage.
func (e *Entry) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("%w: empty name", domain.ErrInvalidEntry)
	}
	if e.Match == nil {
		return fmt.Errorf("%w: %s has no predicate", domain.ErrInvalidEntry, e.Ref())
	}
	n := 0
	for _, set := range []bool{e.Apply != nil, e.Split != nil, e.Reduce != nil, e.Adapt != nil} {
		if set {
			n++
		}
	}
	if n != 1 {
		return fmt.Errorf("%w: %s must set exactly one handler, has %d", domain.ErrInvalidEntry, e.Ref(), n)
	}
	if e.Category != domain.CategoryUnset && !e.Category.Valid() {
		return fmt.Errorf("%w: %s has unknown category %q", domain.ErrInvalidEntry, e.Ref(), e.Category)
	}

	var ok bool
	switch e.Stage {
	case domain.StageAcquire:
		ok = e.Apply != nil
	case domain.StageTransform, domain.StageExtract, domain.StageRefine:
		ok = e.Apply != nil || e.Reduce != nil
	case domain.StageDecompose:
		ok = e.Split != nil
	case domain.StageAdapt:
		ok = e.Adapt != nil
	default:
		return fmt.Errorf("%w: %s has unknown stage", domain.ErrInvalidEntry, e.Ref())
	}
	if !ok {
		return fmt.Errorf("%w: %s handler kind %s not allowed in stage %s",
			domain.ErrInvalidEntry, e.Ref(), e.Kind(), e.Stage)
	}
	return nil
}
