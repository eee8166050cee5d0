package refine

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/attachments/internal/domain"
	"github.com/kailas-cloud/attachments/internal/domain/directive"
	"github.com/kailas-cloud/attachments/internal/domain/payload"
	"github.com/kailas-cloud/attachments/internal/domain/unit"
	"github.com/kailas-cloud/attachments/internal/registry"
)

const (
	defaultResize = "800x600"
	defaultTile   = "2x2"
)

func resizeImagesWithin(maxPixels int) registry.Func {
	return func(ctx context.Context, u *unit.Unit) error {
		return resizeImages(ctx, u, maxPixels)
	}
}

func resizeImages(_ context.Context, u *unit.Unit, maxPixels int) error {
	spec := u.Directives().Value("resize_images")
	if spec == "" {
		spec = defaultResize
	}
	var (
		out    []unit.Blob
		failed []map[string]any
	)
	for i, b := range u.Media() {
		resized, err := resizeBlob(b, spec, maxPixels)
		if err != nil {
			failed = append(failed, map[string]any{"operation": "resize_images", "image_index": i, "error": err.Error()})
			continue
		}
		out = append(out, resized)
	}
	u.SetMedia(out)
	if len(failed) > 0 {
		u.SetMeta("processing_errors", failed)
	}
	appendProcessing(u, map[string]any{
		"operation":        "resize_images",
		"resize_spec":      spec,
		"images_processed": len(out),
		"images_failed":    len(failed),
	})
	return nil
}

func resizeBlob(b unit.Blob, spec string, maxPixels int) (unit.Blob, error) {
	img, err := decodeBlob(b)
	if err != nil {
		return unit.Blob{}, err
	}
	w, h := img.Size()
	nw, nh, err := directive.ParseSize(spec, w, h, maxPixels)
	if err != nil {
		return unit.Blob{}, err
	}
	data, err := img.Resize(nw, nh).PNG()
	if err != nil {
		return unit.Blob{}, err
	}
	return unit.NewBlob("image/png", data), nil
}

func decodeBlob(b unit.Blob) (payload.Image, error) {
	raw, err := b.Bytes()
	if err != nil {
		return payload.Image{}, fmt.Errorf("decode media: %w", err)
	}
	return payload.DecodeImage(raw)
}

// tileImages combines the images of every member into one grid. Member image
// payloads are used first, otherwise their media. All images are scaled to
// the smallest width and height before tiling. Without any image a lone member
// is returned as is and several members are joined.
func tileImages(ctx context.Context, members []*unit.Unit) (*unit.Unit, error) {
	var images []payload.Image
	for _, m := range members {
		if img, ok := m.Payload().(payload.Image); ok {
			images = append(images, img)
			continue
		}
		for _, b := range m.Media() {
			img, err := decodeBlob(b)
			if err != nil {
				return nil, err
			}
			images = append(images, img)
		}
	}
	if len(images) == 0 {
		if len(members) == 1 {
			return members[0], nil
		}
		return join(ctx, members)
	}
	out := unit.New("")

	cols, rows, err := parseGrid(members[0].Directives().Value("tile"))
	if err != nil {
		return nil, err
	}
	count := len(images)
	images = images[:min(len(images), cols*rows)]

	minW, minH := images[0].Size()
	for _, img := range images[1:] {
		w, h := img.Size()
		minW, minH = min(minW, w), min(minH, h)
	}
	for i, img := range images {
		images[i] = img.Resize(minW, minH)
	}

	tiled := payload.Tile(images, cols)
	data, err := tiled.PNG()
	if err != nil {
		return nil, err
	}
	w, h := tiled.Size()
	out.SetPayload(tiled)
	out.AddMedia(unit.NewBlob("image/png", data))
	out.MergeMeta(map[string]any{
		"operation":        "tile_images",
		"grid_size":        fmt.Sprintf("%dx%d", cols, rows),
		"original_count":   count,
		"tiled_dimensions": []int{w, h},
	})
	return out, nil
}

// parseGrid reads "CxR" or "N" (N x N).
func parseGrid(spec string) (int, int, error) {
	if spec == "" {
		spec = defaultTile
	}
	var cols, rows int
	if _, err := fmt.Sscanf(spec, "%dx%d", &cols, &rows); err != nil {
		if _, err := fmt.Sscanf(spec, "%d", &cols); err != nil {
			return 0, 0, fmt.Errorf("%w: tile %q", domain.ErrInvalidDirective, spec)
		}
		rows = cols
	}
	if cols < 1 || rows < 1 {
		return 0, 0, fmt.Errorf("%w: tile %q", domain.ErrInvalidDirective, spec)
	}
	return cols, rows, nil
}
