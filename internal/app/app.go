// Package app assembles the processing engine shared by the server, the CLI and the SDK.
package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/attachments/internal/config"
	"github.com/kailas-cloud/attachments/internal/db"
	"github.com/kailas-cloud/attachments/internal/dispatch"
	"github.com/kailas-cloud/attachments/internal/metrics"
	"github.com/kailas-cloud/attachments/internal/registry"
	"github.com/kailas-cloud/attachments/internal/repository/fetchcache"
	"github.com/kailas-cloud/attachments/internal/transport/httpfetch"
	processuc "github.com/kailas-cloud/attachments/internal/usecase/process"
	"github.com/kailas-cloud/attachments/internal/verbs"
	"github.com/kailas-cloud/attachments/internal/verbs/load"
)

// Engine is a frozen verb registry with a dispatcher and the process service on top.
type Engine struct {
	Registry   *registry.Registry
	Dispatcher *dispatch.Dispatcher
	Process    *processuc.Service
}

// Options carries the collaborators that differ between binaries.
type Options struct {
	// Cache backs the fetch cache. Nil fetches every URL from the network.
	Cache db.Store
	// Recorder receives dispatch metrics. Nil records nothing.
	Recorder *metrics.Recorder
	Logger   *zap.Logger
}

// Build wires fetcher -> cache -> registry -> dispatcher -> process service.
func Build(cfg config.Config, opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	reg, err := verbs.NewRegistry(verbs.Deps{
		Fetcher:        BuildFetcher(cfg, opts.Cache, logger),
		MaxImagePixels: cfg.Pipeline.MaxImagePixels,
	})
	if err != nil {
		return nil, fmt.Errorf("register verbs: %w", err)
	}

	d := dispatch.New(reg,
		dispatch.WithWorkers(cfg.Pipeline.Workers),
		dispatch.WithLogger(logger),
		dispatch.WithRecorder(opts.Recorder),
	)

	svc, err := processuc.New(d, processuc.Config{
		Workers:           cfg.Pipeline.Workers,
		MaxBatchSize:      cfg.Pipeline.MaxBatchSize,
		AutoTruncateAbove: cfg.Pipeline.AutoTruncateAbove,
		AutoTruncateTo:    cfg.Pipeline.AutoTruncateTo,
		DefaultAdapter:    cfg.Pipeline.DefaultAdapter,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("build process service: %w", err)
	}

	return &Engine{Registry: reg, Dispatcher: d, Process: svc}, nil
}

// BuildFetcher assembles the url loader's fetcher: HTTP, then the cache decorator when a store is given.
func BuildFetcher(cfg config.Config, cache db.Store, logger *zap.Logger) load.Fetcher {
	base := httpfetch.NewFetcher(&httpfetch.Config{
		Timeout:      time.Duration(cfg.Fetch.TimeoutSec) * time.Second,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		UserAgent:    cfg.Fetch.UserAgent,
		Logger:       logger,
	})
	if cache == nil {
		return base
	}
	return fetchcache.New(
		base, cache,
		time.Duration(cfg.Cache.TTLSec)*time.Second,
		cfg.Cache.KeyPrefix,
		metrics.FetchCacheTotal,
		logger,
	)
}
