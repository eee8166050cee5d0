// Package registry holds the ordered verb entries for every stage.
//
// Entries are registered once at startup, then the registry is frozen and read
// without locks. Registration order is the dispatch tie-break.
package registry

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kailas-cloud/attachments/internal/domain"
	"github.com/kailas-cloud/attachments/internal/filter"
)

// Registry is the per-stage ordered list of entries.
type Registry struct {
	mu      sync.Mutex
	frozen  atomic.Bool
	entries map[domain.Stage][]*Entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[domain.Stage][]*Entry)}
}

// Register appends an entry to its stage. Extraction and refinement entries
// without a category get one inferred from their name.
func (r *Registry) Register(e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.Category == domain.CategoryUnset && e.Stage.Filtered() {
		e.Category = filter.InferCategory(e.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen.Load() {
		return fmt.Errorf("%w: cannot register %s", domain.ErrRegistryFrozen, e.Ref())
	}
	r.entries[e.Stage] = append(r.entries[e.Stage], &e)
	return nil
}

// MustRegister calls Register and panics on error.
func (r *Registry) MustRegister(entries ...Entry) {
	for _, e := range entries {
		if err := r.Register(e); err != nil {
			panic(err)
		}
	}
}

// Freeze makes the registry read-only. It is idempotent.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen.Store(true)
}

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool { return r.frozen.Load() }

// Entries returns the entries of a stage in registration order.
// The returned entries must not be modified.
func (r *Registry) Entries(stage domain.Stage) []*Entry {
	return r.snapshot(stage)
}

// Lookup returns every variant of stage.name in registration order.
func (r *Registry) Lookup(stage domain.Stage, name string) ([]*Entry, error) {
	var out []*Entry
	for _, e := range r.snapshot(stage) {
		if e.Name == name {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s.%s", domain.ErrUnknownVerb, stage, name)
	}
	return out, nil
}

// Has reports whether stage.name is registered.
func (r *Registry) Has(stage domain.Stage, name string) bool {
	_, err := r.Lookup(stage, name)
	return err == nil
}

// Names returns the distinct verb names of a stage in first-registration order.
func (r *Registry) Names(stage domain.Stage) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range r.snapshot(stage) {
		if _, ok := seen[e.Name]; ok {
			continue
		}
		seen[e.Name] = struct{}{}
		out = append(out, e.Name)
	}
	return out
}

// Info describes one registered entry for listings.
type Info struct {
	Stage       domain.Stage    `json:"stage"`
	Name        string          `json:"name"`
	Kind        string          `json:"kind"`
	Category    domain.Category `json:"category,omitempty"`
	Format      string          `json:"format,omitempty"`
	Fallback    bool            `json:"fallback,omitempty"`
	Description string          `json:"description,omitempty"`
}

// List enumerates every entry, stages in pipeline order.
func (r *Registry) List() []Info {
	var out []Info
	for _, stage := range domain.Stages() {
		for _, e := range r.snapshot(stage) {
			out = append(out, Info{
				Stage:       e.Stage,
				Name:        e.Name,
				Kind:        e.Kind(),
				Category:    e.Category,
				Format:      e.Format,
				Fallback:    e.Fallback,
				Description: e.Description,
			})
		}
	}
	return out
}

func (r *Registry) snapshot(stage domain.Stage) []*Entry {
	if r.frozen.Load() {
		return r.entries[stage]
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Entry(nil), r.entries[stage]...)
}
