package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/attachments/internal/domain"
	"github.com/kailas-cloud/attachments/internal/metrics"
	"github.com/kailas-cloud/attachments/internal/version"
)

// Defaults applied when Config leaves a field zero.
const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBodyBytes = 8 << 20
)

// Config holds the remote fetch settings.
type Config struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
	Logger       *zap.Logger
	// Client overrides the HTTP client (tests). Timeout is ignored when set.
	Client *http.Client
}

// Fetcher retrieves remote resources over HTTP(S).
type Fetcher struct {
	client    *http.Client
	maxBody   int64
	userAgent string
	logger    *zap.Logger
}

// NewFetcher creates an HTTP fetcher.
func NewFetcher(cfg *Config) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = version.UserAgent()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	return &Fetcher{
		client:    client,
		maxBody:   maxBody,
		userAgent: ua,
		logger:    logger,
	}
}

// Fetch downloads url. Transport failures, non-2xx statuses and oversized bodies
// are reported as domain.ErrResourceUnavailable.
func (f *Fetcher) Fetch(ctx context.Context, url string) (domain.Resource, error) {
	start := time.Now()
	res, err := f.fetch(ctx, url)
	metrics.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FetchRequestsTotal.WithLabelValues("error").Inc()
		f.logger.Debug("Fetch failed", zap.String("url", url), zap.Error(err))
		return domain.Resource{}, err
	}
	metrics.FetchRequestsTotal.WithLabelValues("ok").Inc()
	return res, nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) (domain.Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Resource{}, fmt.Errorf("build request: %w: %w", err, domain.ErrResourceUnavailable)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.Resource{}, fmt.Errorf("get %s: %w: %w", url, err, domain.ErrResourceUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, f.maxBody))
		return domain.Resource{}, fmt.Errorf("get %s: status %d: %w", url, resp.StatusCode, domain.ErrResourceUnavailable)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return domain.Resource{}, fmt.Errorf("read %s: %w: %w", url, err, domain.ErrResourceUnavailable)
	}
	if int64(len(body)) > f.maxBody {
		return domain.Resource{}, fmt.Errorf("get %s: body exceeds %d bytes: %w", url, f.maxBody, domain.ErrResourceUnavailable)
	}

	return domain.Resource{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
