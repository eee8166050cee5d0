package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/attachments/internal/app"
	"github.com/kailas-cloud/attachments/internal/config"
	dbRedis "github.com/kailas-cloud/attachments/internal/db/redis"
	logpkg "github.com/kailas-cloud/attachments/internal/logger"
	"github.com/kailas-cloud/attachments/internal/version"
)

type rootOptions struct {
	configPath string
	logLevel   string
	jsonOut    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "attach",
		Short: "Turn files and URLs into LLM-ready text, images and messages",
		Long: `attach loads files and URLs, runs them through a staged pipeline of
verbs (load, modify, split, present, refine, adapt) and prints the result.

Identifiers accept inline directives, for example:
  report.txt[truncate:200]  data.csv[limit:20]  https://example.com[select:article]`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file (built-in defaults when empty)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (default warn)")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Print machine-readable JSON")

	root.AddCommand(
		newProcessCmd(opts),
		newRunCmd(opts),
		newVerbsCmd(opts),
	)
	return root
}

// engine loads configuration and builds the processing engine.
// The returned func releases the fetch cache connection, if one was opened.
func (o *rootOptions) engine(ctx context.Context) (*app.Engine, func(), error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.LoadFile(o.configPath)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}

	level := o.logLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	if level == "" {
		level = "warn"
	}
	logger, err := logpkg.NewLogger("local", level)
	if err != nil {
		return nil, nil, err
	}

	opts := app.Options{Logger: logger}
	cleanup := func() { _ = logger.Sync() }
	if cfg.Cache.Enabled {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Driver:   cfg.Cache.Driver,
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("fetch cache: %w", err)
		}
		if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("fetch cache not ready: %w", err)
		}
		opts.Cache = store
		cleanup = func() {
			store.Close()
			_ = logger.Sync()
		}
	}

	eng, err := app.Build(cfg, opts)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return eng, cleanup, nil
}
