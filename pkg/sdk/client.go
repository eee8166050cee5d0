package attachments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/attachments/internal/app"
	"github.com/kailas-cloud/attachments/internal/config"
	"github.com/kailas-cloud/attachments/internal/db"
	dbRedis "github.com/kailas-cloud/attachments/internal/db/redis"
	"github.com/kailas-cloud/attachments/internal/dispatch"
	"github.com/kailas-cloud/attachments/internal/domain"
	dombatch "github.com/kailas-cloud/attachments/internal/domain/batch"
	"github.com/kailas-cloud/attachments/internal/metrics"
	"github.com/kailas-cloud/attachments/internal/pipeline"
	"github.com/kailas-cloud/attachments/internal/registry"
	healthuc "github.com/kailas-cloud/attachments/internal/usecase/health"
)

const defaultReadinessTimeout = 10 * time.Second

// processUseCase is the internal interface for batch processing and adaptation.
type processUseCase interface {
	Process(ctx context.Context, identifiers []string) []dombatch.Result
	Adapt(ctx context.Context, results []dombatch.Result, name, prompt string) (any, error)
}

// Client is the attachments SDK entry point. It is safe for concurrent use.
type Client struct {
	store      db.Store // nil without a fetch cache
	process    processUseCase
	dispatcher *dispatch.Dispatcher
	registry   *registry.Registry
	healthSvc  healthUseCase
	obs        *observer
}

// New creates a Client. With WithRedis or WithValkey it connects to the fetch
// cache and uses ctx for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	var store db.Store
	if cfg.driver != "" {
		s, err := createStore(cfg)
		if err != nil {
			return nil, err
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("attachments: fetch cache not ready: %w", err)
		}
		store = s
	}

	c, err := wireClient(store, cfg, obs)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}
	return c, nil
}

func createStore(cfg *clientConfig) (*dbRedis.Store, error) {
	switch cfg.driver {
	case dbRedis.DriverValkey, dbRedis.DriverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Driver:   cfg.driver,
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("attachments: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("attachments: unknown driver %q", cfg.driver)
	}
}

// engineConfig maps client options onto the service configuration.
func engineConfig(cfg *clientConfig) config.Config {
	c := config.Default()
	if cfg.workers > 0 {
		c.Pipeline.Workers = cfg.workers
	}
	if cfg.maxBatchSize > 0 {
		c.Pipeline.MaxBatchSize = cfg.maxBatchSize
	}
	if cfg.maxPixels > 0 {
		c.Pipeline.MaxImagePixels = cfg.maxPixels
	}
	if cfg.httpTimeout > 0 {
		c.Fetch.TimeoutSec = max(1, int(cfg.httpTimeout/time.Second))
	}
	if cfg.userAgent != "" {
		c.Fetch.UserAgent = cfg.userAgent
	}
	if cfg.cacheTTL > 0 {
		c.Cache.TTLSec = max(1, int(cfg.cacheTTL/time.Second))
	}
	return c
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	var rec *metrics.Recorder
	if obs.recording() {
		rec = metrics.NewRecorder()
	}

	eng, err := app.Build(engineConfig(cfg), app.Options{
		Cache:    store,
		Recorder: rec,
		Logger:   zap.NewNop(),
	})
	if err != nil {
		return nil, fmt.Errorf("attachments: %w", err)
	}

	// Pass a nil interface, not a typed nil, when the cache is off.
	var cache healthuc.CachePinger
	if store != nil {
		cache = store
	}

	return &Client{
		store:      store,
		process:    eng.Process,
		dispatcher: eng.Dispatcher,
		registry:   eng.Registry,
		healthSvc:  healthuc.New(eng.Registry, cache),
		obs:        obs,
	}, nil
}

// Close releases the fetch cache connection, if any.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Process runs every identifier through the automatic pipeline.
// Failing identifiers do not fail the call: they are reported in Results and
// as an error note in Text. The error is non-nil only when nothing could run,
// e.g. no identifiers or a batch over the configured size.
func (c *Client) Process(ctx context.Context, identifiers ...string) (_ *Attachments, err error) {
	start := time.Now()
	failed := 0
	defer func() {
		c.obs.observe("process", start, err,
			slog.Int("identifiers", len(identifiers)),
			slog.Int("failed", failed),
		)
	}()

	if len(identifiers) == 0 {
		return nil, errors.New("attachments: no identifiers")
	}

	results := c.process.Process(ctx, identifiers)
	var ok int
	ok, failed = dombatch.Count(results)
	c.obs.items(ok, failed)

	if failed == len(results) && errors.Is(results[0].Err(), domain.ErrBatchTooLarge) {
		return nil, fmt.Errorf("attachments: %d identifiers: %w", len(identifiers), domain.ErrBatchTooLarge)
	}
	return newAttachments(results, c.process, c.obs), nil
}

// Pipeline parses and validates a pipeline expression.
// Steps are "stage.verb" or a bare stage name; "+" binds tighter than "|".
func (c *Client) Pipeline(expr string) (*Pipeline, error) {
	step, err := pipeline.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("attachments: %w", err)
	}
	p, err := pipeline.New(c.dispatcher, step)
	if err != nil {
		return nil, fmt.Errorf("attachments: %w", err)
	}
	return &Pipeline{p: p, process: c.process, obs: c.obs}, nil
}

// Verbs lists the registered verbs in dispatch order.
func (c *Client) Verbs() []VerbInfo {
	infos := c.registry.List()
	out := make([]VerbInfo, len(infos))
	for i, info := range infos {
		out[i] = VerbInfo{
			Stage:       string(info.Stage),
			Name:        info.Name,
			Kind:        info.Kind,
			Category:    string(info.Category),
			Format:      info.Format,
			Fallback:    info.Fallback,
			Description: info.Description,
		}
	}
	return out
}
