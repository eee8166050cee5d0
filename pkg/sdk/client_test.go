package attachments

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"

	healthuc "github.com/kailas-cloud/attachments/internal/usecase/health"
)

// The genai client pulls in opencensus, whose stats worker starts in init and never stops.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	c, err := New(context.Background(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "memcached", addrs: []string{"localhost:1234"}}
	if _, err := createStore(cfg); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}
	reg := prometheus.NewRegistry()
	logger := slog.Default()
	for _, o := range []Option{
		WithValkey("localhost:6379", "secret"),
		WithCacheTTL(2 * time.Hour),
		WithWorkers(8),
		WithMaxBatchSize(10),
		WithMaxImagePixels(1000),
		WithHTTPTimeout(1500 * time.Millisecond),
		WithUserAgent("bot/1"),
		WithLogger(logger),
		WithPrometheus(reg),
	} {
		o.apply(cfg)
	}

	if cfg.driver != "valkey" || cfg.addrs[0] != "localhost:6379" || cfg.password != "secret" {
		t.Errorf("unexpected store settings %+v", cfg)
	}
	WithRedis("redis:6379", "").apply(cfg)
	if cfg.driver != "redis" {
		t.Errorf("expected redis driver, got %q", cfg.driver)
	}
	if cfg.logger != logger || cfg.metricsReg != reg {
		t.Error("observer options not applied")
	}

	ec := engineConfig(cfg)
	if ec.Pipeline.Workers != 8 || ec.Pipeline.MaxBatchSize != 10 || ec.Pipeline.MaxImagePixels != 1000 {
		t.Errorf("pipeline config not applied: %+v", ec.Pipeline)
	}
	if ec.Fetch.TimeoutSec != 1 || ec.Fetch.UserAgent != "bot/1" {
		t.Errorf("fetch config not applied: %+v", ec.Fetch)
	}
	if ec.Cache.TTLSec != 7200 {
		t.Errorf("expected ttl 7200, got %d", ec.Cache.TTLSec)
	}
}

func TestProcess(t *testing.T) {
	c := newTestClient(t)
	a := writeFile(t, "a.txt", "alpha")
	b := writeFile(t, "b.md", "# Beta")
	missing := filepath.Join(t.TempDir(), "gone.txt")

	att, err := c.Process(context.Background(), a, b, missing)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	results := att.Results()
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].OK || !results[1].OK {
		t.Errorf("expected first two ok: %+v %+v", results[0], results[1])
	}
	if results[2].OK || !errors.Is(results[2].Err, ErrResourceUnavailable) {
		t.Errorf("expected resource unavailable, got %+v", results[2])
	}

	text := att.Text()
	for _, want := range []string{"alpha", "Beta", "Could not process"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in combined text", want)
		}
	}
	if att.String() != text {
		t.Error("String should equal Text")
	}
	if got := att.Metadata()["file_count"]; got != 3 {
		t.Errorf("expected file_count 3, got %v", got)
	}
	if len(att.Images()) != 0 {
		t.Errorf("expected no images, got %d", len(att.Images()))
	}
}

func TestProcess_NoIdentifiers(t *testing.T) {
	c := newTestClient(t)
	if _, err := c.Process(context.Background()); err == nil {
		t.Fatal("expected error without identifiers")
	}
}

func TestProcess_BatchTooLarge(t *testing.T) {
	c := newTestClient(t, WithMaxBatchSize(1))
	_, err := c.Process(context.Background(), "a.txt", "b.txt")
	if !errors.Is(err, ErrBatchTooLarge) {
		t.Fatalf("expected ErrBatchTooLarge, got %v", err)
	}
}

func TestAdapters(t *testing.T) {
	c := newTestClient(t)
	att, err := c.Process(context.Background(), writeFile(t, "a.txt", "alpha"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	oai, err := att.OpenAI("summarize")
	if err != nil {
		t.Fatalf("OpenAI: %v", err)
	}
	if len(oai) != 1 || oai[0].Role != "user" || len(oai[0].MultiContent) != 2 {
		t.Errorf("unexpected openai messages %+v", oai)
	}

	cl, err := att.Claude("")
	if err != nil {
		t.Fatalf("Claude: %v", err)
	}
	if len(cl) != 1 || cl[0].Content[0].Type != "text" {
		t.Errorf("unexpected claude messages %+v", cl)
	}

	gm, err := att.Gemini("describe")
	if err != nil {
		t.Fatalf("Gemini: %v", err)
	}
	if len(gm) != 1 || len(gm[0].Parts) != 2 {
		t.Errorf("unexpected gemini contents %+v", gm)
	}

	if _, err := att.Adapt(context.Background(), "smoke_signals", ""); !errors.Is(err, ErrAdaptationFailed) {
		t.Errorf("expected ErrAdaptationFailed, got %v", err)
	}
}

func TestPipeline(t *testing.T) {
	c := newTestClient(t)
	p, err := c.Pipeline("load.text | present.text + present.metadata")
	if err != nil {
		t.Fatalf("Pipeline: %v", err)
	}
	if p.String() == "" {
		t.Error("expected rendered pipeline")
	}

	att, err := p.Run(context.Background(), writeFile(t, "a.txt", "alpha"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(att.Text(), "alpha") {
		t.Errorf("expected text, got %q", att.Text())
	}
	if !att.Results()[0].OK {
		t.Error("expected ok result")
	}
}

func TestPipeline_Invalid(t *testing.T) {
	c := newTestClient(t)
	if _, err := c.Pipeline("load.text |"); !errors.Is(err, ErrInvalidComposition) {
		t.Errorf("expected ErrInvalidComposition, got %v", err)
	}
	if _, err := c.Pipeline("present.teleport"); err == nil {
		t.Error("expected error for unknown verb")
	}
}

func TestVerbs(t *testing.T) {
	c := newTestClient(t)
	verbs := c.Verbs()
	if len(verbs) == 0 {
		t.Fatal("expected verbs")
	}
	if verbs[0].Stage != "load" {
		t.Errorf("expected load verbs first, got %q", verbs[0].Stage)
	}
	var adapters int
	for _, v := range verbs {
		if v.Kind == "adapt" {
			adapters++
		}
	}
	if adapters != 3 {
		t.Errorf("expected 3 adapters, got %d", adapters)
	}
}

func TestHealth_NoCache(t *testing.T) {
	c := newTestClient(t)
	h := c.Health(context.Background())
	if h.Status != "ok" {
		t.Errorf("expected ok, got %q", h.Status)
	}
	if _, ok := h.Checks["cache"]; ok {
		t.Error("cache check should be absent without a cache")
	}
}

func TestObserver_MetricsAndLogs(t *testing.T) {
	reg := prometheus.NewRegistry()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	c := newTestClient(t, WithPrometheus(reg), WithLogger(logger))
	_, err := c.Process(context.Background(), writeFile(t, "a.txt", "alpha"), "/nonexistent/b.txt")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	m := c.obs.metrics
	if got := testutil.ToFloat64(m.operations.WithLabelValues("process", "ok")); got != 1 {
		t.Errorf("expected 1 process op, got %f", got)
	}
	if got := testutil.ToFloat64(m.items.WithLabelValues("error")); got != 1 {
		t.Errorf("expected 1 failed item, got %f", got)
	}
	if n, err := testutil.GatherAndCount(reg, "attachments_handler_invocations_total"); err != nil || n == 0 {
		t.Errorf("expected pipeline metrics on the registry, got %d (%v)", n, err)
	}

	logs := buf.String()
	if !strings.Contains(logs, "op=process") || !strings.Contains(logs, "failed=1") {
		t.Errorf("unexpected log output %q", logs)
	}
}

func TestObserver_Nil(t *testing.T) {
	var o *observer
	o.observe("process", time.Now(), errors.New("x"))
	o.items(1, 1)
	if o.recording() {
		t.Error("nil observer must not record")
	}
}

func TestImage(t *testing.T) {
	img := Image{MIMEType: "image/png", Data: "AQID"}
	if img.DataURL() != "data:image/png;base64,AQID" {
		t.Errorf("unexpected data url %q", img.DataURL())
	}
	b, err := img.Bytes()
	if err != nil || len(b) != 3 {
		t.Errorf("unexpected bytes %v (%v)", b, err)
	}
}

type stubHealth struct{ report healthuc.Report }

func (s stubHealth) Check(context.Context) healthuc.Report { return s.report }

func TestHealth_Degraded(t *testing.T) {
	c := &Client{healthSvc: stubHealth{healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{"registry": healthuc.CheckOK, "cache": healthuc.CheckError},
	}}}

	h := c.Health(context.Background())
	if h.Status != "degraded" || h.Checks["cache"] != "error" {
		t.Errorf("unexpected health %+v", h)
	}
	if !h.Usable() {
		t.Error("a degraded client is still usable")
	}
	if (HealthStatus{Status: "error"}).Usable() {
		t.Error("an unhealthy client is not usable")
	}
}
