package process

import (
	"context"

	"github.com/kailas-cloud/attachments/internal/domain/collection"
)

// Adapter converts a processed value into a provider message shape.
type Adapter interface {
	Adapt(ctx context.Context, v collection.Value, name, prompt string) (any, error)
}
