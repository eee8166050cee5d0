package health

import (
	"context"

	"github.com/kailas-cloud/attachments/internal/registry"
)

// CachePinger checks fetch cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// VerbLister exposes the verb registry state.
type VerbLister interface {
	Frozen() bool
	List() []registry.Info
}
