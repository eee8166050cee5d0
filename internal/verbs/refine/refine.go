// Package refine provides the refinement verbs that post-process extracted
// text and media, including the reducers that fold collections.
package refine

import (
	"context"
	"strings"

	"github.com/kailas-cloud/attachments/internal/domain"
	"github.com/kailas-cloud/attachments/internal/domain/payload"
	"github.com/kailas-cloud/attachments/internal/domain/unit"
	"github.com/kailas-cloud/attachments/internal/registry"
)

// DefaultTruncate is the truncate limit used when [truncate:N] carries no valid N.
const DefaultTruncate = 1000

const ellipsis = "..."

// Entries returns the refinement verbs in dispatch order. maxPixels bounds the
// area of resized images; zero means directive.DefaultMaxPixels.
func Entries(maxPixels int) []registry.Entry {
	return []registry.Entry{
		{
			Name: "truncate", Stage: domain.StageRefine, Category: domain.CategoryText,
			Match:       registry.All(registry.HasText, registry.HasDirective("truncate")),
			Description: "cut text to [truncate:N] characters", Apply: truncate,
		},
		{
			Name: "add_headers", Stage: domain.StageRefine, Category: domain.CategoryText, Match: registry.HasText,
			Description: "prefix text with a heading naming the source", Apply: addHeaders,
		},
		{
			Name: "format_tables", Stage: domain.StageRefine, Category: domain.CategoryText, Match: registry.HasText,
			Description: "turn tab separated text into pipe separated columns", Apply: formatTables,
		},
		{
			Name: "resize_images", Stage: domain.StageRefine, Category: domain.CategoryMedia, Match: registry.HasMedia,
			Description: "resize media by [resize_images:50%|800x600|800]", Apply: resizeImagesWithin(maxPixels),
		},
		{
			Name: "tile_images", Stage: domain.StageRefine, Category: domain.CategoryMedia, Match: registry.Any(registry.HasMedia, registry.KindIs(payload.KindImage)),
			Description: "tile the images of a collection into one [tile:CxR] grid", Reduce: tileImages,
		},
		{
			Name: "join", Stage: domain.StageRefine, Category: domain.CategoryText, Match: registry.Always,
			Description: "concatenate the text and media of a collection", Reduce: join,
		},
	}
}

// TruncateTo is an ad hoc truncate entry with a fixed limit, ignoring directives.
func TruncateTo(limit int) registry.Entry {
	return registry.Entry{
		Name: "truncate", Stage: domain.StageRefine, Category: domain.CategoryText, Match: registry.HasText,
		Apply: func(_ context.Context, u *unit.Unit) error {
			cut(u, limit)
			return nil
		},
	}
}

func truncate(_ context.Context, u *unit.Unit) error {
	limit := u.Directives().Int("truncate", DefaultTruncate)
	if limit < 0 {
		limit = DefaultTruncate
	}
	cut(u, limit)
	return nil
}

// cut keeps the first limit runes of the text followed by an ellipsis.
func cut(u *unit.Unit, limit int) {
	runes := []rune(u.Text())
	if len(runes) <= limit {
		return
	}
	u.SetText(string(runes[:limit]) + ellipsis)
	appendProcessing(u, map[string]any{
		"operation":        "truncate",
		"original_length":  len(runes),
		"truncated_length": limit,
	})
}

func addHeaders(_ context.Context, u *unit.Unit) error {
	text := u.Text()
	if strings.HasPrefix(text, "#") {
		return nil
	}
	name := u.Path()
	if name == "" {
		name = "Document"
	}
	u.SetText("# " + name + "\n\n" + text)
	return nil
}

func formatTables(_ context.Context, u *unit.Unit) error {
	u.SetText(strings.ReplaceAll(u.Text(), "\t", " | "))
	return nil
}

// appendProcessing adds an entry to the unit's "processing" log.
func appendProcessing(u *unit.Unit, entry map[string]any) {
	var log []map[string]any
	if v, ok := u.Meta("processing"); ok {
		log, _ = v.([]map[string]any)
	}
	u.SetMeta("processing", append(log, entry))
}
