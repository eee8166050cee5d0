package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/attachments/internal/app"
	"github.com/kailas-cloud/attachments/internal/config"
	"github.com/kailas-cloud/attachments/internal/db"
	dbRedis "github.com/kailas-cloud/attachments/internal/db/redis"
	logpkg "github.com/kailas-cloud/attachments/internal/logger"
	"github.com/kailas-cloud/attachments/internal/metrics"
	chiTransport "github.com/kailas-cloud/attachments/internal/transport/chi"
	healthuc "github.com/kailas-cloud/attachments/internal/usecase/health"
	"github.com/kailas-cloud/attachments/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting attachments API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.Int("workers", cfg.Pipeline.Workers),
	)

	ctx := context.Background()

	// Fetch cache is optional: without it every URL goes to the network.
	var store db.Store
	var cachePinger healthuc.CachePinger
	if cfg.Cache.Enabled {
		s, err := openCache(ctx, cfg.Cache)
		if err != nil {
			logger.Fatal("Fetch cache unavailable", zap.Error(err))
		}
		defer s.Close()
		store, cachePinger = s, s
		logger.Info("Connected to fetch cache",
			zap.String("driver", s.Driver()),
			zap.Strings("addrs", cfg.Cache.Addrs),
		)
	}

	// Register pipeline metrics explicitly (HTTP metrics register in init())
	metrics.RegisterPipelineMetrics()

	engine, err := app.Build(cfg, app.Options{
		Cache:    store,
		Recorder: metrics.NewRecorder(),
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("Failed to build engine", zap.Error(err))
	}
	logger.Info("Verb registry ready", zap.Int("entries", len(engine.Registry.List())))

	healthSvc := healthuc.New(engine.Registry, cachePinger)
	server := chiTransport.NewServer(engine.Process, engine.Registry, healthSvc, logger)
	router := chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// openCache connects to the fetch cache and waits until it answers PING.
func openCache(ctx context.Context, c config.CacheConfig) (*dbRedis.Store, error) {
	s, err := dbRedis.NewStore(dbRedis.Config{
		Driver:   c.Driver,
		Addrs:    c.Addrs,
		Password: c.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", c.Driver, err)
	}
	if err := s.WaitForReady(ctx, time.Duration(c.ReadinessTimeout)*time.Second); err != nil {
		s.Close()
		return nil, fmt.Errorf("%s not ready: %w", c.Driver, err)
	}
	return s, nil
}
