// Package load provides the acquisition verbs that turn identifiers into payloads.
package load

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/attachments/internal/domain"
	"github.com/kailas-cloud/attachments/internal/domain/payload"
	"github.com/kailas-cloud/attachments/internal/domain/unit"
	"github.com/kailas-cloud/attachments/internal/registry"
)

// Fetcher retrieves remote resources.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (domain.Resource, error)
}

var (
	isURL = registry.PathPrefix("http://", "https://")
	local = registry.Not(isURL)

	htmlExts  = []string{".html", ".htm"}
	tableExts = []string{".csv", ".tsv"}
	imageExts = []string{".png", ".jpg", ".jpeg", ".gif"}
	textExts  = []string{".txt", ".md", ".markdown", ".log", ".json", ".py", ".go", ".yaml", ".yml", ".xml"}
)

// Entries returns the acquisition verbs in dispatch order. A nil fetcher
// leaves the url loader registered but failing with ErrResourceUnavailable.
func Entries(f Fetcher) []registry.Entry {
	return []registry.Entry{
		{
			Name: "url", Stage: domain.StageAcquire, Match: isURL,
			Description: "fetch http(s) resources; content type selects html, table, image or text",
			Apply:       fetchURL(f),
		},
		{
			Name: "html", Stage: domain.StageAcquire, Match: registry.All(local, registry.Ext(htmlExts...)),
			Description: "parse local HTML documents",
			Apply:       loadHTML,
		},
		{
			Name: "csv", Stage: domain.StageAcquire, Match: registry.All(local, registry.Ext(tableExts...)),
			Description: "parse comma or tab separated tables",
			Apply:       loadTable,
		},
		{
			Name: "image", Stage: domain.StageAcquire, Match: registry.All(local, registry.Ext(imageExts...)),
			Description: "decode PNG, JPEG and GIF images",
			Apply:       loadImage,
		},
		{
			Name: "zip", Stage: domain.StageAcquire, Match: registry.All(local, registry.Ext(".zip")),
			Description: "read zip archives",
			Apply:       loadZip,
		},
		{
			Name: "text", Stage: domain.StageAcquire, Match: registry.All(local, registry.Ext(textExts...)),
			Description: "read UTF-8 text files",
			Apply:       loadText,
		},
	}
}

func fetchURL(f Fetcher) registry.Func {
	return func(ctx context.Context, u *unit.Unit) error {
		if f == nil {
			return fmt.Errorf("%w: no fetcher configured", domain.ErrResourceUnavailable)
		}
		res, err := f.Fetch(ctx, u.Path())
		if err != nil {
			return err
		}
		p, err := decodeResource(res)
		if err != nil {
			return err
		}
		u.SetPayload(p)
		u.MergeMeta(map[string]any{
			"content_type": res.ContentType,
			"status_code":  res.StatusCode,
			"file_size":    len(res.Body),
		})
		return nil
	}
}

func decodeResource(res domain.Resource) (domain.Payload, error) {
	mt := res.MediaType()
	switch {
	case mt == "text/html" || mt == "application/xhtml+xml":
		return payload.ParseHTML(res.Body)
	case mt == "text/csv":
		return payload.ParseCSV(res.Body, ',')
	case mt == "text/tab-separated-values":
		return payload.ParseCSV(res.Body, '\t')
	case strings.HasPrefix(mt, "image/"):
		return payload.DecodeImage(res.Body)
	case mt == "" && looksLikeHTML(res.Body):
		return payload.ParseHTML(res.Body)
	default:
		return payload.Text{Content: string(res.Body), Format: formatFromMediaType(mt)}, nil
	}
}

func looksLikeHTML(b []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(b[:min(len(b), 512)]))
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

func formatFromMediaType(mt string) string {
	switch mt {
	case "text/markdown":
		return "markdown"
	case "application/json":
		return "json"
	case "application/xml", "text/xml":
		return "xml"
	default:
		return "plain"
	}
}

func loadHTML(_ context.Context, u *unit.Unit) error {
	data, err := readFile(u.Path())
	if err != nil {
		return err
	}
	doc, err := payload.ParseHTML(data)
	if err != nil {
		return err
	}
	u.SetPayload(doc)
	u.MergeMeta(map[string]any{"content_type": "text/html", "file_size": len(data)})
	return nil
}

func loadTable(_ context.Context, u *unit.Unit) error {
	data, err := readFile(u.Path())
	if err != nil {
		return err
	}
	comma := ','
	if u.View().Ext() == ".tsv" {
		comma = '\t'
	}
	t, err := payload.ParseCSV(data, comma)
	if err != nil {
		return err
	}
	u.SetPayload(t)
	u.MergeMeta(map[string]any{"rows": len(t.Rows), "columns": len(t.Header), "file_size": len(data)})
	return nil
}

func loadImage(_ context.Context, u *unit.Unit) error {
	data, err := readFile(u.Path())
	if err != nil {
		return err
	}
	img, err := payload.DecodeImage(data)
	if err != nil {
		return err
	}
	w, h := img.Size()
	u.SetPayload(img)
	u.MergeMeta(map[string]any{"format": img.Format, "size": []int{w, h}, "file_size": len(data)})
	return nil
}

func loadText(_ context.Context, u *unit.Unit) error {
	data, err := readFile(u.Path())
	if err != nil {
		return err
	}
	u.SetPayload(payload.Text{Content: string(data), Format: formatFromExt(u.View().Ext())})
	u.SetMeta("file_size", len(data))
	return nil
}

func formatFromExt(ext string) string {
	switch ext {
	case ".md", ".markdown":
		return "markdown"
	case ".txt", ".log", "":
		return "plain"
	case ".yml":
		return "yaml"
	default:
		return strings.TrimPrefix(ext, ".")
	}
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrResourceUnavailable, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
