package payload

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	// Register decoders for image.Decode.
	_ "image/gif"
	_ "image/jpeg"

	"github.com/kailas-cloud/attachments/internal/domain"
)

// DecodeImage decodes a PNG, JPEG or GIF image.
func DecodeImage(data []byte) (Image, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("decode image: %w", err)
	}
	return Image{Img: img, Format: format}, nil
}

// PNG encodes the image as PNG.
func (i Image) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, i.Img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Size returns the image dimensions.
func (i Image) Size() (int, int) {
	b := i.Img.Bounds()
	return b.Dx(), b.Dy()
}

// Resize scales the image to w x h using nearest-neighbour sampling.
func (i Image) Resize(w, h int) Image {
	src := i.Img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		sy := src.Min.Y + y*src.Dy()/h
		for x := range w {
			sx := src.Min.X + x*src.Dx()/w
			dst.Set(x, y, i.Img.At(sx, sy))
		}
	}
	return Image{Img: dst, Format: i.Format}
}

// Rotate turns the image clockwise by degrees, which must be a multiple of 90.
func (i Image) Rotate(degrees int) (Image, error) {
	if degrees%90 != 0 {
		return Image{}, fmt.Errorf("%w: rotation %d is not a multiple of 90", domain.ErrInvalidDirective, degrees)
	}
	turns := ((degrees/90)%4 + 4) % 4
	out := i.Img
	for range turns {
		out = rotate90(out)
	}
	return Image{Img: out, Format: i.Format}, nil
}

func rotate90(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(b.Max.Y-1-y, x-b.Min.X, src.At(x, y))
		}
	}
	return dst
}

// Crop cuts the rectangle (x1,y1)-(x2,y2), clamped to the image bounds.
func (i Image) Crop(x1, y1, x2, y2 int) (Image, error) {
	r := image.Rect(x1, y1, x2, y2).Add(i.Img.Bounds().Min).Intersect(i.Img.Bounds())
	if r.Empty() {
		return Image{}, fmt.Errorf("%w: crop box outside image", domain.ErrInvalidDirective)
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), i.Img, r.Min, draw.Src)
	return Image{Img: dst, Format: i.Format}, nil
}

// Tile lays images out in a grid of cols columns. Every cell takes the size of
// the largest image.
func Tile(images []Image, cols int) Image {
	if cols < 1 {
		cols = 1
	}
	cellW, cellH := 0, 0
	for _, img := range images {
		w, h := img.Size()
		cellW, cellH = max(cellW, w), max(cellH, h)
	}
	rows := (len(images) + cols - 1) / cols
	dst := image.NewRGBA(image.Rect(0, 0, max(cellW*min(cols, len(images)), 1), max(cellH*rows, 1)))
	for n, img := range images {
		at := image.Pt((n%cols)*cellW, (n/cols)*cellH)
		b := img.Img.Bounds()
		draw.Draw(dst, image.Rectangle{Min: at, Max: at.Add(b.Size())}, img.Img, b.Min, draw.Src)
	}
	return Image{Img: dst, Format: "png"}
}
