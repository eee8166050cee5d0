package attachments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kailas-cloud/attachments/internal/domain"
	dombatch "github.com/kailas-cloud/attachments/internal/domain/batch"
	"github.com/kailas-cloud/attachments/internal/domain/collection"
	"github.com/kailas-cloud/attachments/internal/domain/unit"
	"github.com/kailas-cloud/attachments/internal/pipeline"
)

// Pipeline is a validated composition of verbs. It is immutable and safe for concurrent use.
type Pipeline struct {
	p       *pipeline.Pipeline
	process processUseCase
	obs     *observer
}

// String renders the composed steps.
func (p *Pipeline) String() string { return p.p.String() }

// Run executes the pipeline on one identifier.
//
// Handler failures are recorded on the result and also returned, wrapping
// ErrHandlerFailure, alongside a usable *Attachments. Any other error means
// there is no result.
func (p *Pipeline) Run(ctx context.Context, identifier string) (_ *Attachments, err error) {
	start := time.Now()
	defer func() { p.obs.observe("pipeline", start, err, slog.String("pipeline", p.p.String())) }()

	v, err := p.p.Run(ctx, collection.Single(unit.New(identifier)))
	if err != nil && !errors.Is(err, domain.ErrHandlerFailure) {
		return nil, fmt.Errorf("attachments: %w", err)
	}

	res := dombatch.NewOK(identifier, v)
	if err != nil {
		res = dombatch.NewError(identifier, err, v)
	}
	return newAttachments([]dombatch.Result{res}, p.process, p.obs), err
}
