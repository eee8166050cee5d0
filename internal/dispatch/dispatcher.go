// Package dispatch applies registry entries to units and collections.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/attachments/internal/domain"
	"github.com/kailas-cloud/attachments/internal/domain/collection"
	"github.com/kailas-cloud/attachments/internal/domain/unit"
	"github.com/kailas-cloud/attachments/internal/filter"
	logpkg "github.com/kailas-cloud/attachments/internal/logger"
	"github.com/kailas-cloud/attachments/internal/metrics"
	"github.com/kailas-cloud/attachments/internal/registry"
)

const defaultWorkers = 4

// Dispatcher resolves entries against units. It is safe for concurrent use.
type Dispatcher struct {
	reg     *registry.Registry
	workers int
	logger  *zap.Logger
	rec     *metrics.Recorder
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWorkers bounds the goroutines used per vectorized step. Values below 1 mean sequential.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) { d.workers = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r *metrics.Recorder) Option {
	return func(d *Dispatcher) { d.rec = r }
}

// New creates a dispatcher over reg and freezes the registry.
func New(reg *registry.Registry, opts ...Option) *Dispatcher {
	reg.Freeze()
	d := &Dispatcher{reg: reg, workers: defaultWorkers, logger: zap.NewNop()}
	for _, o := range opts {
		o(d)
	}
	if d.workers < 1 {
		d.workers = 1
	}
	return d
}

// Registry returns the frozen registry.
func (d *Dispatcher) Registry() *registry.Registry { return d.reg }

// Stage dispatches every entry of stage against v. Reducers only run when v is
// a collection; a single unit is left to the scalar entries.
func (d *Dispatcher) Stage(ctx context.Context, stage domain.Stage, v collection.Value) (collection.Value, error) {
	return d.apply(ctx, stage, d.reg.Entries(stage), v, true)
}

// Verb dispatches every variant of stage.name against v.
func (d *Dispatcher) Verb(ctx context.Context, stage domain.Stage, name string, v collection.Value) (collection.Value, error) {
	entries, err := d.reg.Lookup(stage, name)
	if err != nil {
		return v, err
	}
	return d.apply(ctx, stage, entries, v, false)
}

// Apply runs entries of one stage against v.
//
// Acquisition stops at the first entry that succeeds. Decomposition folds the
// matching splitters over every unit and yields a collection. Other stages fold
// the matching entries over each unit in registration order; runs of scalar
// entries are vectorized over collection members while reducers act as barriers.
// Handler failures are recorded on the unit and never returned; only reduction
// failures and context cancellation are. A reducer named here also reduces a
// single unit, as a one-member collection.
func (d *Dispatcher) Apply(
	ctx context.Context, stage domain.Stage, entries []*registry.Entry, v collection.Value,
) (collection.Value, error) {
	return d.apply(ctx, stage, entries, v, false)
}

func (d *Dispatcher) apply(
	ctx context.Context, stage domain.Stage, entries []*registry.Entry, v collection.Value, wholeStage bool,
) (collection.Value, error) {
	if err := ctx.Err(); err != nil {
		return v, fmt.Errorf("dispatch %s: %w", stage, err)
	}
	if v.IsZero() {
		return v, nil
	}

	switch stage {
	case domain.StageAcquire:
		d.forEach(v.Units(), func(u *unit.Unit) { d.acquire(ctx, entries, u) })
		return v, nil
	case domain.StageDecompose:
		return d.decompose(ctx, entries, v), nil
	case domain.StageAdapt:
		return v, fmt.Errorf("%w: adapt stage must be dispatched with Adapt", domain.ErrInvalidComposition)
	}

	for start := 0; start < len(entries); {
		if entries[start].Reducer() {
			if wholeStage && !v.IsCollection() {
				start++
				continue
			}
			var err error
			if v, err = d.reduce(ctx, stage, entries[start], v); err != nil {
				return v, err
			}
			start++
			continue
		}
		end := start
		for end < len(entries) && !entries[end].Reducer() {
			end++
		}
		run := entries[start:end]
		d.forEach(v.Units(), func(u *unit.Unit) { d.fold(ctx, stage, run, u) })
		start = end
	}
	return v, nil
}

// acquire runs the first matching entry that succeeds. A unit that already
// carries a payload is left alone, which makes chained loaders a fallback list.
func (d *Dispatcher) acquire(ctx context.Context, entries []*registry.Entry, u *unit.Unit) {
	if u.HasPayload() {
		u.MarkAcquired()
		return
	}
	var errs []error
	matched := false
	for _, e := range entries {
		if !e.Match(u.View()) {
			continue
		}
		matched = true
		err := d.invoke(ctx, domain.StageAcquire, e, u)
		if err == nil {
			u.MarkAcquired()
			return
		}
		u.SetPayload(nil)
		errs = append(errs, err)
	}
	if !matched {
		d.rec.NoMatch(string(domain.StageAcquire))
		return
	}
	for _, err := range errs {
		note(u, err)
	}
}

// fold applies every matching entry of a scalar run to u in order.
// A fallback entry is skipped once another variant of its name matched u.
func (d *Dispatcher) fold(ctx context.Context, stage domain.Stage, run []*registry.Entry, u *unit.Unit) {
	matchedNames := make(map[string]bool)
	hit := false
	for _, e := range run {
		if e.Fallback && matchedNames[e.Name] {
			continue
		}
		if !d.eligible(stage, e, u) {
			continue
		}
		matchedNames[e.Name] = true
		hit = true
		if err := d.invoke(ctx, stage, e, u); err != nil {
			note(u, err)
		}
	}
	if !hit {
		d.rec.NoMatch(string(stage))
	}
}

func (d *Dispatcher) eligible(stage domain.Stage, e *registry.Entry, u *unit.Unit) bool {
	if !e.Match(u.View()) {
		return false
	}
	if stage.Filtered() && !filter.Allows(u.Directives(), e.Category, e.Format) {
		return false
	}
	return true
}

func (d *Dispatcher) decompose(ctx context.Context, entries []*registry.Entry, v collection.Value) collection.Value {
	units := v.Units()
	parts := make([][]*unit.Unit, len(units))
	split := make([]bool, len(units))
	d.forEachIndex(len(units), func(i int) {
		parts[i], split[i] = d.splitAll(ctx, entries, units[i])
	})

	var out []*unit.Unit
	anySplit := v.IsCollection()
	for i := range units {
		out = append(out, parts[i]...)
		anySplit = anySplit || split[i]
	}
	if !anySplit {
		return v
	}
	return collection.Many(collection.New(out...))
}

// splitAll folds the matching splitters over u. Members of a split are fed to
// the remaining splitters, so a chain of splitters refines progressively.
func (d *Dispatcher) splitAll(ctx context.Context, entries []*registry.Entry, u *unit.Unit) ([]*unit.Unit, bool) {
	for i, e := range entries {
		if !e.Match(u.View()) {
			continue
		}
		members, err := d.split(ctx, e, u)
		if err != nil {
			note(u, err)
			continue
		}
		var out []*unit.Unit
		for _, m := range members {
			sub, _ := d.splitAll(ctx, entries[i+1:], m)
			out = append(out, sub...)
		}
		return out, true
	}
	return []*unit.Unit{u}, false
}

func (d *Dispatcher) split(ctx context.Context, e *registry.Entry, u *unit.Unit) ([]*unit.Unit, error) {
	start := time.Now()
	var members []*unit.Unit
	err := safeCall(func() error {
		var err error
		members, err = e.Split(ctx, u)
		return err
	})
	d.rec.Handler(string(e.Stage), e.Name, time.Since(start), err)
	if err != nil {
		herr := domain.NewHandlerError(e.Stage, e.Name, u.Path(), err)
		d.logFailure(herr, e, u)
		return nil, herr
	}
	for _, m := range members {
		m.SetDirectives(u.Directives().Merge(m.Directives()))
		m.Record(e.Ref())
	}
	d.logger.Debug("unit decomposed",
		logpkg.Verb(e.Ref()),
		logpkg.Identifier(u.Path()),
		zap.Int("members", len(members)),
	)
	return members, nil
}

// reduce is a barrier: it runs after every member finished the previous steps.
// It runs when any member is eligible. An empty collection passes through, a
// single unit is reduced as a one-member collection.
func (d *Dispatcher) reduce(
	ctx context.Context, stage domain.Stage, e *registry.Entry, v collection.Value,
) (collection.Value, error) {
	members := v.Units()
	eligible := func(m *unit.Unit) bool { return d.eligible(stage, e, m) }
	if len(members) == 0 || !slices.ContainsFunc(members, eligible) {
		d.rec.NoMatch(string(stage))
		return v, nil
	}

	start := time.Now()
	var out *unit.Unit
	err := safeCall(func() error {
		var err error
		out, err = e.Reduce(ctx, members)
		return err
	})
	if err == nil && out == nil {
		err = errors.New("reducer returned no unit")
	}
	d.rec.Handler(string(stage), e.Name, time.Since(start), err)
	d.rec.Reduction(err)
	if err != nil {
		d.logger.Error("reduction failed",
			logpkg.Verb(e.Ref()),
			zap.Int("members", len(members)),
			zap.Error(err),
		)
		return v, fmt.Errorf("%w: %s: %w", domain.ErrReductionFailed, e.Ref(), err)
	}
	if out.Directives().Len() == 0 {
		out.SetDirectives(members[0].Directives())
	}
	if slices.ContainsFunc(members, (*unit.Unit).Acquired) {
		out.MarkAcquired()
	}
	out.Record(e.Ref())
	return collection.Single(out), nil
}

// Adapt converts v into the external shape produced by adapter, or by the first
// matching adapter when name is empty. A collection is merged first. Units
// without payload, text or media cannot be adapted.
func (d *Dispatcher) Adapt(ctx context.Context, v collection.Value, name, prompt string) (any, error) {
	if v.IsZero() || !slices.ContainsFunc(v.Units(), hasContent) {
		d.rec.Adaptation(name, domain.ErrNoMatch)
		return nil, fmt.Errorf("%w: nothing to adapt", domain.ErrAdaptationFailed)
	}
	entries := d.reg.Entries(domain.StageAdapt)
	if name != "" {
		var err error
		if entries, err = d.reg.Lookup(domain.StageAdapt, name); err != nil {
			d.rec.Adaptation(name, err)
			return nil, fmt.Errorf("%w: %w", domain.ErrAdaptationFailed, err)
		}
	}

	u := collection.Merge(v)
	for _, e := range entries {
		if !e.Match(u.View()) {
			continue
		}
		start := time.Now()
		var out any
		err := safeCall(func() error {
			var err error
			out, err = e.Adapt(ctx, u, prompt)
			return err
		})
		d.rec.Handler(string(domain.StageAdapt), e.Name, time.Since(start), err)
		d.rec.Adaptation(e.Name, err)
		if err != nil {
			d.logger.Error("adaptation failed", zap.String("adapter", e.Name), zap.Error(err))
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrAdaptationFailed, e.Name, err)
		}
		return out, nil
	}

	d.rec.NoMatch(string(domain.StageAdapt))
	d.rec.Adaptation(name, domain.ErrNoMatch)
	return nil, fmt.Errorf("%w: no adapter matched %q", domain.ErrAdaptationFailed, u.Path())
}

func hasContent(u *unit.Unit) bool {
	return u.HasPayload() || u.Text() != "" || u.MediaCount() > 0
}
