// Package process implements the one-call API: every identifier runs through
// the automatic pipeline and comes back as a per-item result.
package process

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/attachments/internal/dispatch"
	"github.com/kailas-cloud/attachments/internal/domain"
	dombatch "github.com/kailas-cloud/attachments/internal/domain/batch"
	"github.com/kailas-cloud/attachments/internal/domain/collection"
	"github.com/kailas-cloud/attachments/internal/domain/unit"
	"github.com/kailas-cloud/attachments/internal/filter"
	logpkg "github.com/kailas-cloud/attachments/internal/logger"
	"github.com/kailas-cloud/attachments/internal/pipeline"
	"github.com/kailas-cloud/attachments/internal/verbs/adapt"
	"github.com/kailas-cloud/attachments/internal/verbs/refine"
)

// Defaults used when Config leaves a field zero.
const (
	DefaultMaxBatchSize      = 100
	DefaultWorkers           = 4
	DefaultAutoTruncateAbove = 5000
	DefaultAutoTruncateTo    = 3000
	DefaultAdapter           = adapt.OpenAIChat
)

// Config tunes the automatic pipeline.
type Config struct {
	Workers           int
	MaxBatchSize      int
	AutoTruncateAbove int
	AutoTruncateTo    int
	DefaultAdapter    string
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = DefaultMaxBatchSize
	}
	if c.AutoTruncateAbove <= 0 {
		c.AutoTruncateAbove = DefaultAutoTruncateAbove
	}
	if c.AutoTruncateTo <= 0 {
		c.AutoTruncateTo = DefaultAutoTruncateTo
	}
	if c.DefaultAdapter == "" {
		c.DefaultAdapter = DefaultAdapter
	}
}

// Service runs identifiers through the automatic pipeline.
type Service struct {
	adapter  Adapter
	auto     map[string]*pipeline.Pipeline // by text presenter
	truncate *pipeline.Pipeline
	cfg      Config
	logger   *zap.Logger
}

// New builds the automatic pipelines over d.
func New(d *dispatch.Dispatcher, cfg Config, logger *zap.Logger) (*Service, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	if !d.Registry().Has(domain.StageAdapt, cfg.DefaultAdapter) {
		return nil, fmt.Errorf("default adapter %q: %w", cfg.DefaultAdapter, domain.ErrUnknownVerb)
	}

	auto := make(map[string]*pipeline.Pipeline, 3)
	for _, presenter := range []string{"text", "markdown", "html"} {
		p, err := pipeline.New(d, AutoSteps(presenter)...)
		if err != nil {
			return nil, fmt.Errorf("auto pipeline %s: %w", presenter, err)
		}
		auto[presenter] = p
	}
	truncate, err := pipeline.New(d, pipeline.Handler(refine.TruncateTo(cfg.AutoTruncateTo)))
	if err != nil {
		return nil, fmt.Errorf("truncate pipeline: %w", err)
	}

	return &Service{
		adapter:  d,
		auto:     auto,
		truncate: truncate,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// AutoSteps is the automatic pipeline with the given text presenter:
// load, transform, split by directive, present, add headers.
func AutoSteps(presenter string) []pipeline.Step {
	return []pipeline.Step{
		pipeline.Stage(domain.StageAcquire),
		pipeline.Stage(domain.StageTransform),
		pipeline.Verb(domain.StageDecompose, "entries"),
		pipeline.Verb(domain.StageDecompose, "tokens"),
		pipeline.Verb(domain.StageDecompose, "characters"),
		pipeline.Verb(domain.StageDecompose, "rows"),
		pipeline.Add(
			pipeline.Verb(domain.StageExtract, presenter),
			pipeline.Verb(domain.StageExtract, "images"),
			pipeline.Verb(domain.StageExtract, "metadata"),
		),
		pipeline.Verb(domain.StageRefine, "add_headers"),
	}
}

// Process runs every identifier and returns one result per identifier, in order.
// It never fails as a whole.
func (s *Service) Process(ctx context.Context, identifiers []string) []dombatch.Result {
	results := make([]dombatch.Result, len(identifiers))

	if len(identifiers) > s.cfg.MaxBatchSize {
		err := fmt.Errorf("batch size %d exceeds %d: %w", len(identifiers), s.cfg.MaxBatchSize, domain.ErrBatchTooLarge)
		s.logger.Warn("Batch rejected", zap.Int("size", len(identifiers)), zap.Int("max", s.cfg.MaxBatchSize))
		for i, id := range identifiers {
			results[i] = failed(id, err)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for i, id := range identifiers {
		g.Go(func() error {
			results[i] = s.processOne(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *Service) processOne(ctx context.Context, id string) dombatch.Result {
	u := unit.New(id)
	out, err := s.pipelineFor(u).Run(ctx, collection.Single(u))
	if err != nil && !errors.Is(err, domain.ErrHandlerFailure) {
		s.logger.Warn("Processing failed", logpkg.Identifier(id), zap.Error(err))
		return failed(id, err)
	}
	if !loaded(out) {
		cause := collection.Merge(out).Err()
		if cause == nil {
			cause = fmt.Errorf("%w: %s", domain.ErrNoLoader, u.Path())
		}
		s.logger.Warn("Could not load", logpkg.Identifier(id), zap.Error(cause))
		return failed(id, cause)
	}

	s.autoTruncate(ctx, out)
	return dombatch.NewOK(id, out)
}

func (s *Service) pipelineFor(u *unit.Unit) *pipeline.Pipeline {
	switch filter.Resolve(u.Directives()).Format {
	case filter.FormatMarkdown:
		return s.auto["markdown"]
	case filter.FormatHTML:
		return s.auto["html"]
	default:
		return s.auto["text"]
	}
}

func (s *Service) autoTruncate(ctx context.Context, v collection.Value) {
	var long []*unit.Unit
	for _, u := range v.Units() {
		if utf8.RuneCountInString(u.Text()) > s.cfg.AutoTruncateAbove {
			long = append(long, u)
		}
	}
	if len(long) == 0 {
		return
	}
	if _, err := s.truncate.Run(ctx, collection.Many(collection.New(long...))); err != nil {
		s.logger.Warn("Auto truncation failed", zap.Error(err))
	}
}

func loaded(v collection.Value) bool {
	for _, u := range v.Units() {
		if u.HasPayload() {
			return true
		}
	}
	return false
}

// failed builds an error result whose unit carries a readable note.
func failed(id string, err error) dombatch.Result {
	u := unit.New(id)
	u.SetText(fmt.Sprintf("Could not process %s: %v", id, err))
	u.MergeMeta(map[string]any{
		"error": err.Error(),
		"path":  u.Path(),
	})
	u.Fail(err)
	return dombatch.NewError(id, err, collection.Single(u))
}

// Combine folds every result into one unit: per-file sections, all media and
// a file summary in the metadata.
func Combine(results []dombatch.Result) *unit.Unit {
	var units []*unit.Unit
	for _, r := range results {
		units = append(units, r.Value().Units()...)
	}
	return collection.Merge(collection.Many(collection.New(units...)))
}

// Adapt combines results and converts them with the named adapter, or the
// configured default when name is empty.
func (s *Service) Adapt(ctx context.Context, results []dombatch.Result, name, prompt string) (any, error) {
	if name == "" {
		name = s.cfg.DefaultAdapter
	}
	out, err := s.adapter.Adapt(ctx, collection.Single(Combine(results)), name, prompt)
	if err != nil {
		return nil, fmt.Errorf("adapt with %s: %w", name, err)
	}
	return out, nil
}
