package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kailas-cloud/attachments/internal/domain"
	"github.com/kailas-cloud/attachments/internal/domain/directive"
	"github.com/kailas-cloud/attachments/internal/domain/unit"
)

func noop(context.Context, *unit.Unit) error { return nil }

func TestRegister_OrderAndNames(t *testing.T) {
	r := New()
	r.MustRegister(
		Entry{Name: "text", Stage: domain.StageExtract, Match: Always, Apply: noop},
		Entry{Name: "images", Stage: domain.StageExtract, Match: Always, Apply: noop},
		Entry{Name: "text", Stage: domain.StageExtract, Match: Always, Apply: noop, Fallback: true},
	)

	if diff := cmp.Diff([]string{"text", "images"}, r.Names(domain.StageExtract)); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	variants, err := r.Lookup(domain.StageExtract, "text")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(variants) != 2 || variants[0].Fallback || !variants[1].Fallback {
		t.Errorf("variants out of order: %+v", variants)
	}
	if got := r.Entries(domain.StageExtract); len(got) != 3 || got[1].Name != "images" {
		t.Errorf("Entries order wrong")
	}
}

func TestRegister_InfersCategory(t *testing.T) {
	r := New()
	r.MustRegister(
		Entry{Name: "images", Stage: domain.StageExtract, Match: Always, Apply: noop},
		Entry{Name: "text", Stage: domain.StageExtract, Match: Always, Apply: noop},
		Entry{Name: "metadata", Stage: domain.StageExtract, Match: Always, Apply: noop},
		Entry{Name: "images", Stage: domain.StageTransform, Match: Always, Apply: noop},
		Entry{Name: "custom", Stage: domain.StageRefine, Match: Always, Apply: noop, Category: domain.CategoryText},
	)
	want := map[string]domain.Category{
		"present.images":   domain.CategoryMedia,
		"present.text":     domain.CategoryText,
		"present.metadata": domain.CategoryBoth,
		"modify.images":    domain.CategoryUnset,
		"refine.custom":    domain.CategoryText,
	}
	for _, info := range r.List() {
		key := string(info.Stage) + "." + info.Name
		if info.Category != want[key] {
			t.Errorf("%s category = %q, want %q", key, info.Category, want[key])
		}
	}
}

func TestRegister_Invalid(t *testing.T) {
	split := func(context.Context, *unit.Unit) ([]*unit.Unit, error) { return nil, nil }
	tests := []struct {
		name string
		e    Entry
	}{
		{"no name", Entry{Stage: domain.StageExtract, Match: Always, Apply: noop}},
		{"no predicate", Entry{Name: "x", Stage: domain.StageExtract, Apply: noop}},
		{"no handler", Entry{Name: "x", Stage: domain.StageExtract, Match: Always}},
		{"two handlers", Entry{Name: "x", Stage: domain.StageDecompose, Match: Always, Apply: noop, Split: split}},
		{"split outside decompose", Entry{Name: "x", Stage: domain.StageExtract, Match: Always, Split: split}},
		{"apply in adapt", Entry{Name: "x", Stage: domain.StageAdapt, Match: Always, Apply: noop}},
		{"bad stage", Entry{Name: "x", Stage: "nope", Match: Always, Apply: noop}},
		{"bad category", Entry{Name: "x", Stage: domain.StageExtract, Match: Always, Apply: noop, Category: "audio"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New().Register(tt.e)
			if !errors.Is(err, domain.ErrInvalidEntry) {
				t.Errorf("expected ErrInvalidEntry, got %v", err)
			}
		})
	}
}

func TestFreeze(t *testing.T) {
	r := New()
	r.MustRegister(Entry{Name: "a", Stage: domain.StageAcquire, Match: Always, Apply: noop})
	r.Freeze()
	r.Freeze()
	if !r.Frozen() {
		t.Fatal("expected frozen")
	}
	err := r.Register(Entry{Name: "b", Stage: domain.StageAcquire, Match: Always, Apply: noop})
	if !errors.Is(err, domain.ErrRegistryFrozen) {
		t.Errorf("expected ErrRegistryFrozen, got %v", err)
	}
	if !r.Has(domain.StageAcquire, "a") {
		t.Error("frozen registry lost entries")
	}
}

func TestLookup_Unknown(t *testing.T) {
	_, err := New().Lookup(domain.StageRefine, "nope")
	if !errors.Is(err, domain.ErrUnknownVerb) {
		t.Errorf("expected ErrUnknownVerb, got %v", err)
	}
}

func TestPredicates(t *testing.T) {
	v := unit.New("Report.CSV[limit:5][format:MD]").View()
	tests := []struct {
		name string
		p    Predicate
		want bool
	}{
		{"ext", Ext(".csv"), true},
		{"ext miss", Ext(".tsv"), false},
		{"has directive", HasDirective("other", "limit"), true},
		{"has directive miss", HasDirective("select"), false},
		{"directive is", DirectiveIs("format", "md"), true},
		{"kind none", KindIs("table"), false},
		{"has payload", HasPayload, false},
		{"all", All(Ext(".csv"), HasDirective("limit")), true},
		{"all miss", All(Ext(".csv"), HasDirective("x")), false},
		{"any", Any(Ext(".x"), HasDirective("limit")), true},
		{"not", Not(HasContent), true},
		{"prefix", PathPrefix("report"), true},
	}
	for _, tt := range tests {
		if got := tt.p(v); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}

	withPayload := unit.NewWithPayload("x", fakePayload{}, directive.New())
	if !KindIs("fake")(withPayload.View()) {
		t.Error("KindIs should match payload kind")
	}
}

type fakePayload struct{}

func (fakePayload) Kind() domain.Kind { return "fake" }
