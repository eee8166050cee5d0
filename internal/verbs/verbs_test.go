package verbs

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kailas-cloud/attachments/internal/dispatch"
	"github.com/kailas-cloud/attachments/internal/domain"
	"github.com/kailas-cloud/attachments/internal/domain/collection"
	"github.com/kailas-cloud/attachments/internal/domain/unit"
	"github.com/kailas-cloud/attachments/internal/pipeline"
)

func newPipeline(t *testing.T, expr string) *pipeline.Pipeline {
	t.Helper()
	reg, err := NewRegistry(Deps{})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	step, err := pipeline.Parse(expr)
	if err != nil {
		t.Fatalf("Parse(%q): %v", expr, err)
	}
	p, err := pipeline.New(dispatch.New(reg), step)
	if err != nil {
		t.Fatalf("New(%q): %v", expr, err)
	}
	return p
}

func write(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestRegisterAll_Names(t *testing.T) {
	reg, err := NewRegistry(Deps{})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	want := map[domain.Stage][]string{
		domain.StageAcquire:   {"url", "html", "csv", "image", "zip", "text"},
		domain.StageTransform: {"pages", "limit", "select", "crop", "rotate", "resize"},
		domain.StageDecompose: {"entries", "paragraphs", "sentences", "characters", "tokens", "rows"},
		domain.StageExtract:   {"text", "markdown", "html", "csv", "images", "metadata", "summary", "head"},
		domain.StageRefine:    {"truncate", "add_headers", "format_tables", "resize_images", "tile_images", "join"},
		domain.StageAdapt:     {"openai_chat", "claude", "gemini"},
	}
	for stage, names := range want {
		if diff := cmp.Diff(names, reg.Names(stage)); diff != "" {
			t.Errorf("%s names mismatch (-want +got):\n%s", stage, diff)
		}
	}
}

func TestPipeline_TableWithDirectives(t *testing.T) {
	path := write(t, t.TempDir(), "people.csv", []byte("name,age\nann,31\nbob,27\n"))
	p := newPipeline(t, "load | modify | present.markdown | refine.truncate")

	out, err := p.RunIdentifier(context.Background(), path+"[limit:1][truncate:60]")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	text := out.Unit().Text()
	if strings.Contains(text, "bob") {
		t.Errorf("limit not applied: %q", text)
	}
	if !strings.HasSuffix(text, "...") || len([]rune(text)) != 63 {
		t.Errorf("truncate not applied: %q", text)
	}
}

func TestPipeline_ZipToTiledImage(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := png.Encode(w, image.NewRGBA(image.Rect(0, 0, 4, 2))); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	path := write(t, t.TempDir(), "shots.zip", buf.Bytes())
	p := newPipeline(t, "load.zip | split.entries | modify.rotate | present.images | refine.tile_images")

	out, err := p.RunIdentifier(context.Background(), path+"[rotate:90][tile:3x1]")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.IsCollection() {
		t.Fatalf("expected the reducer to produce a single unit")
	}
	u := out.Unit()
	if u.MediaCount() != 1 {
		t.Fatalf("media = %d, want 1", u.MediaCount())
	}
	if v, _ := u.Meta("tiled_dimensions"); !cmp.Equal(v, []int{6, 4}) {
		t.Errorf("tiled_dimensions = %v, want [6 4]", v)
	}
}

func TestPipeline_UnknownFileIsSoft(t *testing.T) {
	p := newPipeline(t, "load | present.text")
	out, err := p.RunIdentifier(context.Background(), "slides.pptx")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if u := out.Unit(); u.HasPayload() || u.Text() != "" {
		t.Errorf("payload = %v, text = %q", u.Payload(), u.Text())
	}
}

func TestPipeline_Adapt(t *testing.T) {
	path := write(t, t.TempDir(), "note.txt", []byte("hello"))
	p := newPipeline(t, "load.text | present.text").WithAdapter("claude", "summarize")
	res, err := p.Process(context.Background(), mustSingle(path))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Output == nil {
		t.Fatal("expected adapter output")
	}
}

func mustSingle(identifier string) collection.Value {
	return collection.Single(unit.New(identifier))
}

func TestPipeline_WholeRefineStageKeepsLoadedText(t *testing.T) {
	path := write(t, t.TempDir(), "notes.txt", []byte("hello world"))
	p := newPipeline(t, "load | present.text | refine")

	out, err := p.RunIdentifier(context.Background(), path)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.IsCollection() {
		t.Fatalf("expected a single unit, got %d", len(out.Units()))
	}
	u := out.Unit()
	if !strings.HasPrefix(u.Text(), "# ") || !strings.HasSuffix(u.Text(), "hello world") {
		t.Errorf("text = %q, want a header followed by the file text", u.Text())
	}
	if !u.HasPayload() {
		t.Error("payload was dropped")
	}
	if v, ok := u.Meta("load_error"); ok {
		t.Errorf("loaded unit flagged as unloaded: %v", v)
	}
	if err := u.Err(); err != nil {
		t.Errorf("unexpected unit error: %v", err)
	}
}

func TestProcess_AdaptWithoutLoader(t *testing.T) {
	path := write(t, t.TempDir(), "mystery.xyz", []byte{0x00, 0x01})
	p := newPipeline(t, "load | present.text").WithAdapter("openai_chat", "describe")

	res, err := p.Process(context.Background(), collection.Single(unit.New(path)))
	if !errors.Is(err, domain.ErrAdaptationFailed) {
		t.Fatalf("expected ErrAdaptationFailed, got %v", err)
	}
	if res.Output != nil {
		t.Errorf("output = %v, want none", res.Output)
	}
	if !errors.Is(res.Value.Unit().Err(), domain.ErrNoLoader) {
		t.Errorf("expected ErrNoLoader on the unit, got %v", res.Value.Unit().Err())
	}
}
