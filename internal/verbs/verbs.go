// Package verbs registers the built-in verb set.
package verbs

import (
	"fmt"

	"github.com/kailas-cloud/attachments/internal/registry"
	"github.com/kailas-cloud/attachments/internal/verbs/adapt"
	"github.com/kailas-cloud/attachments/internal/verbs/load"
	"github.com/kailas-cloud/attachments/internal/verbs/modify"
	"github.com/kailas-cloud/attachments/internal/verbs/present"
	"github.com/kailas-cloud/attachments/internal/verbs/refine"
	"github.com/kailas-cloud/attachments/internal/verbs/split"
)

// Deps are the collaborators the built-in verbs need.
type Deps struct {
	// Fetcher serves the url loader. Nil disables remote loading.
	Fetcher load.Fetcher
	// MaxImagePixels bounds resized image area. Zero means directive.DefaultMaxPixels.
	MaxImagePixels int
}

// RegisterAll registers every built-in verb, stage by stage in pipeline order.
// Registration order is dispatch order within a stage.
func RegisterAll(reg *registry.Registry, deps Deps) error {
	groups := [][]registry.Entry{
		load.Entries(deps.Fetcher),
		modify.Entries(deps.MaxImagePixels),
		split.Entries(),
		present.Entries(),
		refine.Entries(deps.MaxImagePixels),
		adapt.Entries(),
	}
	for _, entries := range groups {
		for _, e := range entries {
			if err := reg.Register(e); err != nil {
				return fmt.Errorf("register %s: %w", e.Ref(), err)
			}
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-in verbs.
func NewRegistry(deps Deps) (*registry.Registry, error) {
	reg := registry.New()
	if err := RegisterAll(reg, deps); err != nil {
		return nil, err
	}
	return reg, nil
}
