// Package modify provides the transformation verbs. Each verb is gated by the
// directive of the same name and leaves units without it untouched.
package modify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/attachments/internal/domain"
	"github.com/kailas-cloud/attachments/internal/domain/directive"
	"github.com/kailas-cloud/attachments/internal/domain/payload"
	"github.com/kailas-cloud/attachments/internal/domain/unit"
	"github.com/kailas-cloud/attachments/internal/registry"
)

// pageBreak separates pages in plain text documents.
const pageBreak = "\f"

func gated(key string, kinds ...domain.Kind) registry.Predicate {
	return registry.All(registry.HasDirective(key), registry.KindIs(kinds...))
}

// Entries returns the transformation verbs in dispatch order. maxPixels bounds
// the area of resized images; zero means directive.DefaultMaxPixels.
func Entries(maxPixels int) []registry.Entry {
	return []registry.Entry{
		{Name: "pages", Stage: domain.StageTransform, Match: gated("pages", payload.KindArchive), Description: "keep archive entries by [pages:1-3,-1]", Apply: archivePages},
		{Name: "pages", Stage: domain.StageTransform, Match: gated("pages", payload.KindText), Description: "keep form-feed separated text pages", Apply: textPages},
		{Name: "limit", Stage: domain.StageTransform, Match: gated("limit", payload.KindTable), Description: "keep the first [limit:N] table rows", Apply: limitRows},
		{Name: "select", Stage: domain.StageTransform, Match: gated("select", payload.KindTable), Description: "keep table columns by [select:a,b]", Apply: selectColumns},
		{Name: "select", Stage: domain.StageTransform, Match: gated("select", payload.KindHTML), Description: "keep HTML nodes matching [select:tag|#id|.class]", Apply: selectNodes},
		{Name: "crop", Stage: domain.StageTransform, Match: gated("crop", payload.KindImage), Description: "crop images to [crop:x1,y1,x2,y2]", Apply: crop},
		{Name: "rotate", Stage: domain.StageTransform, Match: gated("rotate", payload.KindImage), Description: "rotate images clockwise by [rotate:90]", Apply: rotate},
		{Name: "resize", Stage: domain.StageTransform, Match: gated("resize", payload.KindImage), Description: "resize images by [resize:50%|800x600|800]", Apply: resizeWithin(maxPixels)},
	}
}

func archivePages(_ context.Context, u *unit.Unit) error {
	a := u.Payload().(payload.Archive)
	idx, err := directive.ParseRanges(u.Directives().Value("pages"), len(a.Entries))
	if err != nil {
		return err
	}
	out := payload.Archive{Entries: make([]payload.Entry, 0, len(idx))}
	for _, i := range idx {
		out.Entries = append(out.Entries, a.Entries[i])
	}
	u.SetPayload(out)
	u.SetMeta("selected_pages", oneBased(idx))
	return nil
}

func textPages(_ context.Context, u *unit.Unit) error {
	t := u.Payload().(payload.Text)
	pages := strings.Split(t.Content, pageBreak)
	idx, err := directive.ParseRanges(u.Directives().Value("pages"), len(pages))
	if err != nil {
		return err
	}
	kept := make([]string, 0, len(idx))
	for _, i := range idx {
		kept = append(kept, pages[i])
	}
	u.SetPayload(payload.Text{Content: strings.Join(kept, pageBreak), Format: t.Format})
	u.MergeMeta(map[string]any{"selected_pages": oneBased(idx), "total_pages": len(pages)})
	return nil
}

func oneBased(idx []int) []int {
	out := make([]int, len(idx))
	for i, n := range idx {
		out[i] = n + 1
	}
	return out
}

func limitRows(_ context.Context, u *unit.Unit) error {
	n, err := strconv.Atoi(strings.TrimSpace(u.Directives().Value("limit")))
	if err != nil || n < 0 {
		return fmt.Errorf("%w: limit %q", domain.ErrInvalidDirective, u.Directives().Value("limit"))
	}
	t := u.Payload().(payload.Table)
	u.SetPayload(t.Limit(n))
	u.SetMeta("limit_applied", n)
	return nil
}

func selectColumns(_ context.Context, u *unit.Unit) error {
	spec := u.Directives().Value("select")
	t := u.Payload().(payload.Table).Columns(strings.Split(spec, ","))
	if len(t.Header) == 0 {
		return fmt.Errorf("%w: no columns match %q", domain.ErrInvalidDirective, spec)
	}
	u.SetPayload(t)
	u.MergeMeta(map[string]any{"selector": spec, "selection_applied": true})
	return nil
}

func selectNodes(_ context.Context, u *unit.Unit) error {
	spec := u.Directives().Value("select")
	doc, ok := u.Payload().(payload.HTML).Select(spec)
	if !ok {
		doc, _ = payload.ParseHTML(nil)
	}
	u.SetPayload(doc)
	u.MergeMeta(map[string]any{"selector": spec, "selection_applied": true, "selected": ok})
	return nil
}

func crop(_ context.Context, u *unit.Unit) error {
	spec := u.Directives().Value("crop")
	parts := strings.Split(spec, ",")
	if len(parts) != 4 {
		return fmt.Errorf("%w: crop box must be x1,y1,x2,y2, got %q", domain.ErrInvalidDirective, spec)
	}
	var box [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return fmt.Errorf("%w: crop box %q", domain.ErrInvalidDirective, spec)
		}
		box[i] = n
	}
	if box[2] <= box[0] || box[3] <= box[1] {
		return fmt.Errorf("%w: crop box %q is empty", domain.ErrInvalidDirective, spec)
	}
	img, err := u.Payload().(payload.Image).Crop(box[0], box[1], box[2], box[3])
	if err != nil {
		return err
	}
	u.SetPayload(img)
	return nil
}

func rotate(_ context.Context, u *unit.Unit) error {
	spec := u.Directives().Value("rotate")
	deg, err := strconv.Atoi(strings.TrimSpace(spec))
	if err != nil {
		return fmt.Errorf("%w: rotate %q", domain.ErrInvalidDirective, spec)
	}
	img, err := u.Payload().(payload.Image).Rotate(deg)
	if err != nil {
		return err
	}
	u.SetPayload(img)
	return nil
}

func resizeWithin(maxPixels int) registry.Func {
	return func(ctx context.Context, u *unit.Unit) error {
		return resize(ctx, u, maxPixels)
	}
}

func resize(_ context.Context, u *unit.Unit, maxPixels int) error {
	spec := u.Directives().Value("resize")
	img := u.Payload().(payload.Image)
	w, h := img.Size()
	nw, nh, err := directive.ParseSize(spec, w, h, maxPixels)
	if err != nil {
		return err
	}
	u.SetPayload(img.Resize(nw, nh))
	u.MergeMeta(map[string]any{
		"resize_applied": true,
		"original_size":  []int{w, h},
		"new_size":       []int{nw, nh},
	})
	return nil
}
