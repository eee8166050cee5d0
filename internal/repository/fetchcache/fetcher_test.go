package fetchcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/attachments/internal/domain"
)

const testURL = "https://example.com/doc.html"

func TestFetch_CacheMissThenHit(t *testing.T) {
	inner := &mockFetcher{res: domain.Resource{
		StatusCode:  200,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte("<p>hi</p>"),
	}}
	cf, ms := newTestCachedFetcher(t, inner)
	ctx := context.Background()

	first, err := cf.Fetch(ctx, testURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := cf.Fetch(ctx, testURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inner.calls != 1 {
		t.Fatalf("expected 1 inner call, got %d", inner.calls)
	}
	if string(second.Body) != string(first.Body) || second.ContentType != first.ContentType {
		t.Errorf("cached resource differs: %+v vs %+v", second, first)
	}
	if second.StatusCode != 200 || second.URL != testURL {
		t.Errorf("unexpected cached resource: %+v", second)
	}

	meta, body := cf.keys(testURL)
	if ms.ttls[meta] != time.Hour || ms.ttls[body] != time.Hour {
		t.Errorf("expected both keys to carry the TTL, got %v", ms.ttls)
	}
}

func TestFetch_NonSuccessNotCached(t *testing.T) {
	inner := &mockFetcher{res: domain.Resource{StatusCode: 404, Body: []byte("nope")}}
	cf, ms := newTestCachedFetcher(t, inner)

	if _, err := cf.Fetch(context.Background(), testURL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ms.kv) != 0 || len(ms.hashes) != 0 {
		t.Fatalf("expected nothing cached, got kv=%v hashes=%v", ms.kv, ms.hashes)
	}
}

func TestFetch_InnerError(t *testing.T) {
	cause := errors.New("connection reset")
	cf, _ := newTestCachedFetcher(t, &mockFetcher{err: cause})

	_, err := cf.Fetch(context.Background(), testURL)
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestFetch_StoreErrorFallsThrough(t *testing.T) {
	inner := &mockFetcher{res: domain.Resource{StatusCode: 200, Body: []byte("x")}}
	cf, ms := newTestCachedFetcher(t, inner)
	ms.hgetErr = errors.New("store down")
	ms.setErr = errors.New("store down")

	res, err := cf.Fetch(context.Background(), testURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(res.Body) != "x" || inner.calls != 1 {
		t.Fatalf("expected inner fetch result, got %+v (calls=%d)", res, inner.calls)
	}
}

func TestFetch_MissingBodyEvicts(t *testing.T) {
	inner := &mockFetcher{res: domain.Resource{StatusCode: 200, Body: []byte("fresh")}}
	cf, ms := newTestCachedFetcher(t, inner)
	meta, body := cf.keys(testURL)
	ms.hashes[meta] = map[string]string{"url": testURL, "status_code": "200"}

	res, err := cf.Fetch(context.Background(), testURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(res.Body) != "fresh" {
		t.Errorf("expected fresh body, got %q", res.Body)
	}
	if len(ms.deleted) != 2 || ms.deleted[0] != meta || ms.deleted[1] != body {
		t.Errorf("expected eviction of %s and %s, got %v", meta, body, ms.deleted)
	}
}

func TestFetch_ForeignURLIsMiss(t *testing.T) {
	inner := &mockFetcher{res: domain.Resource{StatusCode: 200, Body: []byte("real")}}
	cf, ms := newTestCachedFetcher(t, inner)
	meta, body := cf.keys(testURL)
	ms.hashes[meta] = map[string]string{"url": "https://other", "status_code": "200"}
	ms.kv[body] = []byte("stale")

	res, err := cf.Fetch(context.Background(), testURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(res.Body) != "real" {
		t.Errorf("expected inner body, got %q", res.Body)
	}
}

func TestFetch_CountsHitsAndMisses(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_fetch_cache_total"}, []string{"result"})
	inner := &mockFetcher{res: domain.Resource{StatusCode: 200, Body: []byte("x")}}
	cf := New(inner, newMockStore(), time.Minute, "", counter, zap.NewNop())
	ctx := context.Background()

	for range 3 {
		if _, err := cf.Fetch(ctx, testURL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("expected 1 miss, got %v", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 2 {
		t.Errorf("expected 2 hits, got %v", got)
	}
}

func TestKeys_UsePrefix(t *testing.T) {
	cf := New(&mockFetcher{}, newMockStore(), time.Minute, "", nil, nil)
	meta, body := cf.keys(testURL)
	if meta[:len(DefaultKeyPrefix)] != DefaultKeyPrefix || body[:len(DefaultKeyPrefix)] != DefaultKeyPrefix {
		t.Errorf("keys missing default prefix: %s %s", meta, body)
	}
	if meta == body {
		t.Error("meta and body keys must differ")
	}
}
