package httpfetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/attachments/internal/domain"
)

func TestFetch_Success(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_, _ = w.Write([]byte("a,b\n1,2\n"))
	}))
	defer srv.Close()

	f := NewFetcher(&Config{UserAgent: "attach-test"})
	res, err := f.Fetch(context.Background(), srv.URL+"/data.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotUA != "attach-test" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d", res.StatusCode)
	}
	if res.MediaType() != "text/csv" {
		t.Errorf("media type = %q", res.MediaType())
	}
	if string(res.Body) != "a,b\n1,2\n" {
		t.Errorf("body = %q", res.Body)
	}
	if !strings.HasSuffix(res.URL, "/data.csv") {
		t.Errorf("url = %q", res.URL)
	}
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(&Config{})
	_, err := f.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, domain.ErrResourceUnavailable) {
		t.Fatalf("expected ErrResourceUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("expected status in error, got %v", err)
	}
}

func TestFetch_BodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	f := NewFetcher(&Config{MaxBodyBytes: 16})
	_, err := f.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, domain.ErrResourceUnavailable) {
		t.Fatalf("expected ErrResourceUnavailable, got %v", err)
	}
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := NewFetcher(&Config{Timeout: 50 * time.Millisecond})
	_, err := f.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, domain.ErrResourceUnavailable) {
		t.Fatalf("expected ErrResourceUnavailable, got %v", err)
	}
}

func TestFetch_BadURL(t *testing.T) {
	f := NewFetcher(&Config{})
	_, err := f.Fetch(context.Background(), "http://[::1")
	if !errors.Is(err, domain.ErrResourceUnavailable) {
		t.Fatalf("expected ErrResourceUnavailable, got %v", err)
	}
}

func TestNewFetcher_Defaults(t *testing.T) {
	f := NewFetcher(&Config{})
	if f.maxBody != DefaultMaxBodyBytes {
		t.Errorf("maxBody = %d", f.maxBody)
	}
	if f.client.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v", f.client.Timeout)
	}
	if !strings.HasPrefix(f.userAgent, "attachments/") {
		t.Errorf("userAgent = %q", f.userAgent)
	}
}
