// Package pipeline composes registry verbs into runnable pipelines.
//
// Steps combine with Seq, which threads each step's output into the next, and
// Add, which runs steps on copies of the same input and merges the results.
// Both are associative. An optional adapter turns the final value into a
// provider-specific message.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/kailas-cloud/attachments/internal/dispatch"
	"github.com/kailas-cloud/attachments/internal/domain"
	"github.com/kailas-cloud/attachments/internal/domain/collection"
	"github.com/kailas-cloud/attachments/internal/domain/unit"
)

// Pipeline is an immutable, validated step tree bound to a dispatcher.
type Pipeline struct {
	d        *dispatch.Dispatcher
	root     Step
	acquires bool
	adapter  string
	prompt   string
}

// Result is the outcome of Process.
type Result struct {
	Value  collection.Value
	Output any // adapter output, nil without an adapter
}

// New validates steps against the dispatcher's registry and composes them in sequence.
func New(d *dispatch.Dispatcher, steps ...Step) (*Pipeline, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: empty pipeline", domain.ErrInvalidComposition)
	}
	root := Seq(steps...)
	reg := d.Registry()
	if err := root.validate(reg); err != nil {
		return nil, fmt.Errorf("validate pipeline: %w", err)
	}
	return &Pipeline{d: d, root: root, acquires: root.info(reg).acquires}, nil
}

// MustNew is New that panics on error.
func MustNew(d *dispatch.Dispatcher, steps ...Step) *Pipeline {
	p, err := New(d, steps...)
	if err != nil {
		panic(err)
	}
	return p
}

// WithAdapter returns a copy of p that adapts its output with the named adapter.
func (p *Pipeline) WithAdapter(name, prompt string) *Pipeline {
	cp := *p
	cp.adapter = name
	cp.prompt = prompt
	return &cp
}

// Adapter returns the configured adapter name, if any.
func (p *Pipeline) Adapter() string { return p.adapter }

// String renders the step tree.
func (p *Pipeline) String() string { return p.root.String() }

// Run executes the step tree over v.
//
// Handler failures are recorded on the units they hit. For a single-unit
// input they are also returned, joined, alongside the value.
func (p *Pipeline) Run(ctx context.Context, v collection.Value) (collection.Value, error) {
	if v.IsZero() {
		return v, fmt.Errorf("%w: empty input", domain.ErrInvalidComposition)
	}
	out, err := p.root.run(ctx, p, v)
	if err != nil {
		return out, err
	}
	if p.acquires {
		for _, u := range out.Units() {
			markUnloaded(u)
		}
	}
	if u := out.Unit(); u != nil {
		return out, handlerFailures(u)
	}
	return out, nil
}

// RunIdentifier runs the pipeline over a fresh unit built from identifier.
func (p *Pipeline) RunIdentifier(ctx context.Context, identifier string) (collection.Value, error) {
	return p.Run(ctx, collection.Single(unit.New(identifier)))
}

// Process runs the pipeline and, when an adapter is configured, adapts the result.
// Handler failures do not prevent adaptation; adaptation failures are fatal.
// Adapting fails when no unit was loaded by the pipeline's own acquisition.
func (p *Pipeline) Process(ctx context.Context, v collection.Value) (Result, error) {
	out, err := p.Run(ctx, v)
	res := Result{Value: out}
	if err != nil && !errors.Is(err, domain.ErrHandlerFailure) {
		return res, err
	}
	if p.adapter == "" {
		return res, err
	}
	if units := out.Units(); p.acquires && len(units) > 0 && !slices.ContainsFunc(units, loaded) {
		return res, fmt.Errorf("%w: nothing was loaded from %s", domain.ErrAdaptationFailed, units[0].Path())
	}
	output, aerr := p.d.Adapt(ctx, out, p.adapter, p.prompt)
	if aerr != nil {
		return res, aerr
	}
	res.Output = output
	return res, err
}

func loaded(u *unit.Unit) bool {
	if errors.Is(u.Err(), domain.ErrNoLoader) {
		return false
	}
	return u.Acquired() || u.Text() != "" || u.MediaCount() > 0
}

// markUnloaded flags a unit no loader acquired. Units that arrived with text
// or media are not flagged.
func markUnloaded(u *unit.Unit) {
	if u.Acquired() || u.Text() != "" || u.MediaCount() > 0 {
		return
	}
	if _, ok := u.Meta(string(domain.StageAcquire) + "_error"); ok {
		return
	}
	u.SetMeta(string(domain.StageAcquire)+"_error", "no loader matched "+u.Path())
	u.Fail(fmt.Errorf("%w: %s", domain.ErrNoLoader, u.Path()))
}

func handlerFailures(u *unit.Unit) error {
	var errs []error
	for _, err := range u.Failures() {
		if errors.Is(err, domain.ErrHandlerFailure) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
