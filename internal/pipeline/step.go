package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/attachments/internal/domain"
	"github.com/kailas-cloud/attachments/internal/domain/collection"
	"github.com/kailas-cloud/attachments/internal/filter"
	"github.com/kailas-cloud/attachments/internal/registry"
)

// Step is a node of a pipeline tree.
type Step interface {
	String() string
	validate(reg *registry.Registry) error
	info(reg *registry.Registry) stepInfo
	run(ctx context.Context, p *Pipeline, v collection.Value) (collection.Value, error)
}

// stepInfo describes what a step writes, for the extraction overwrite rule.
type stepInfo struct {
	stage    domain.Stage
	category domain.Category
	acquires bool
}

// Verb dispatches every variant of stage.name.
func Verb(stage domain.Stage, name string) Step { return verbStep{stage: stage, name: name} }

// Stage dispatches every entry registered for stage.
func Stage(stage domain.Stage) Step { return stageStep{stage: stage} }

// Handler dispatches an ad hoc entry that is not part of the registry.
func Handler(e registry.Entry) Step {
	if e.Category == domain.CategoryUnset && e.Stage.Filtered() {
		e.Category = filter.InferCategory(e.Name)
	}
	return handlerStep{entry: &e}
}

// Seq composes steps sequentially: each step sees the previous step's output.
// Nested sequences are flattened, so Seq is associative.
func Seq(steps ...Step) Step {
	var flat []Step
	for _, s := range steps {
		if inner, ok := s.(seqStep); ok {
			flat = append(flat, inner.steps...)
			continue
		}
		flat = append(flat, s)
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return seqStep{steps: flat}
}

// Add composes steps additively: every step runs on its own copy of the same
// input and the results are merged. Nested additions are flattened, so Add is
// associative.
func Add(steps ...Step) Step {
	var flat []Step
	for _, s := range steps {
		if inner, ok := s.(addStep); ok {
			flat = append(flat, inner.steps...)
			continue
		}
		flat = append(flat, s)
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return addStep{steps: flat}
}

// --- verb ---

type verbStep struct {
	stage domain.Stage
	name  string
}

func (s verbStep) String() string { return string(s.stage) + "." + s.name }

func (s verbStep) validate(reg *registry.Registry) error {
	if s.stage == domain.StageAdapt {
		return fmt.Errorf("%w: %s: adapters are selected with WithAdapter", domain.ErrInvalidComposition, s)
	}
	if _, err := reg.Lookup(s.stage, s.name); err != nil {
		return err
	}
	return nil
}

func (s verbStep) info(reg *registry.Registry) stepInfo {
	entries, _ := reg.Lookup(s.stage, s.name)
	return stepInfo{stage: s.stage, category: commonCategory(entries), acquires: s.stage == domain.StageAcquire}
}

func (s verbStep) run(ctx context.Context, p *Pipeline, v collection.Value) (collection.Value, error) {
	return p.d.Verb(ctx, s.stage, s.name, v)
}

// --- stage ---

type stageStep struct {
	stage domain.Stage
}

func (s stageStep) String() string { return string(s.stage) }

func (s stageStep) validate(*registry.Registry) error {
	if s.stage == domain.StageAdapt {
		return fmt.Errorf("%w: adapt stage: adapters are selected with WithAdapter", domain.ErrInvalidComposition)
	}
	if _, err := domain.ParseStage(string(s.stage)); err != nil {
		return err
	}
	return nil
}

func (s stageStep) info(*registry.Registry) stepInfo {
	return stepInfo{stage: s.stage, category: domain.CategoryBoth, acquires: s.stage == domain.StageAcquire}
}

func (s stageStep) run(ctx context.Context, p *Pipeline, v collection.Value) (collection.Value, error) {
	return p.d.Stage(ctx, s.stage, v)
}

// --- ad hoc handler ---

type handlerStep struct {
	entry *registry.Entry
}

func (s handlerStep) String() string { return s.entry.Ref() }

func (s handlerStep) validate(*registry.Registry) error {
	if s.entry.Stage == domain.StageAdapt {
		return fmt.Errorf("%w: %s: adapters are selected with WithAdapter", domain.ErrInvalidComposition, s)
	}
	return s.entry.Validate()
}

func (s handlerStep) info(*registry.Registry) stepInfo {
	return stepInfo{stage: s.entry.Stage, category: s.entry.Category, acquires: s.entry.Stage == domain.StageAcquire}
}

func (s handlerStep) run(ctx context.Context, p *Pipeline, v collection.Value) (collection.Value, error) {
	return p.d.Apply(ctx, s.entry.Stage, []*registry.Entry{s.entry}, v)
}

// --- seq ---

type seqStep struct {
	steps []Step
}

func (s seqStep) String() string { return joinSteps(s.steps, " | ") }

func (s seqStep) validate(reg *registry.Registry) error {
	for _, c := range s.steps {
		if err := c.validate(reg); err != nil {
			return err
		}
	}
	return nil
}

func (s seqStep) info(reg *registry.Registry) stepInfo {
	out := stepInfo{category: domain.CategoryBoth}
	for _, c := range s.steps {
		out.acquires = out.acquires || c.info(reg).acquires
	}
	return out
}

// run threads v through the children. When an extraction step follows an
// extraction step that wrote the same slot (text or media), the later step
// overwrites that slot instead of appending to it. Metadata always accumulates.
func (s seqStep) run(ctx context.Context, p *Pipeline, v collection.Value) (collection.Value, error) {
	var (
		prev *stepInfo
		base snapshots
		err  error
	)
	for _, c := range s.steps {
		info := c.info(p.d.Registry())
		conflict := prev != nil && overwrites(*prev, info)
		if info.stage == domain.StageExtract && !conflict {
			base = capture(v)
		}

		var pending rewinds
		if conflict {
			pending = rewind(v, base, info.category)
		}
		if v, err = c.run(ctx, p, v); err != nil {
			return v, err
		}
		pending.settle()
		prev = &info
	}
	return v, nil
}

func overwrites(prev, next stepInfo) bool {
	if prev.stage != domain.StageExtract || next.stage != domain.StageExtract {
		return false
	}
	return next.category == prev.category &&
		(next.category == domain.CategoryText || next.category == domain.CategoryMedia)
}

// --- add ---

type addStep struct {
	steps []Step
}

func (s addStep) String() string { return "(" + joinSteps(s.steps, " + ") + ")" }

func (s addStep) validate(reg *registry.Registry) error {
	for _, c := range s.steps {
		if err := c.validate(reg); err != nil {
			return err
		}
		switch c.info(reg).stage {
		case domain.StageAcquire, domain.StageDecompose:
			return fmt.Errorf("%w: %s cannot be combined additively", domain.ErrInvalidComposition, c)
		}
	}
	return nil
}

func (s addStep) info(reg *registry.Registry) stepInfo {
	return stepInfo{stage: s.steps[0].info(reg).stage, category: domain.CategoryBoth}
}

func (s addStep) run(ctx context.Context, p *Pipeline, v collection.Value) (collection.Value, error) {
	base := v.Units()
	branches := make([][]unitState, 0, len(s.steps))
	for _, c := range s.steps {
		out, err := c.run(ctx, p, v.Clone())
		if err != nil {
			return v, err
		}
		if out.IsCollection() != v.IsCollection() || len(out.Units()) != len(base) {
			return v, fmt.Errorf("%w: branch %s changed the shape of its input", domain.ErrInvalidComposition, c)
		}
		branches = append(branches, states(out))
	}

	for i, u := range base {
		parts := make([]unitState, len(branches))
		for b := range branches {
			parts[b] = branches[b][i]
		}
		mergeBranches(snapshotOf(u), parts).applyTo(u)
	}
	return v, nil
}

func commonCategory(entries []*registry.Entry) domain.Category {
	if len(entries) == 0 {
		return domain.CategoryBoth
	}
	c := entries[0].Category
	for _, e := range entries[1:] {
		if e.Category != c {
			return domain.CategoryBoth
		}
	}
	if c == domain.CategoryUnset {
		return domain.CategoryBoth
	}
	return c
}

func joinSteps(steps []Step, sep string) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = s.String()
	}
	return strings.Join(parts, sep)
}
