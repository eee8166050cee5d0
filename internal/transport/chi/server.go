package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/attachments/internal/domain"
	dombatch "github.com/kailas-cloud/attachments/internal/domain/batch"
	"github.com/kailas-cloud/attachments/internal/domain/collection"
	logpkg "github.com/kailas-cloud/attachments/internal/logger"
	"github.com/kailas-cloud/attachments/internal/registry"
	healthuc "github.com/kailas-cloud/attachments/internal/usecase/health"
	"github.com/kailas-cloud/attachments/internal/version"
)

// maxRequestBytes bounds the JSON body of a process request.
const maxRequestBytes = 1 << 20

// Processor runs identifiers through the automatic pipeline.
type Processor interface {
	Process(ctx context.Context, identifiers []string) []dombatch.Result
	Adapt(ctx context.Context, results []dombatch.Result, name, prompt string) (any, error)
}

// VerbLister enumerates the registered verbs.
type VerbLister interface {
	List() []registry.Info
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the attachments HTTP API.
type Server struct {
	process       Processor
	verbs         VerbLister
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the HTTP handlers.
func NewServer(process Processor, verbs VerbLister, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		process: process,
		verbs:   verbs,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrAdaptationFailed, http.StatusUnprocessableEntity, CodeAdaptationFailed),
		sentinelHandler(domain.ErrBatchTooLarge, http.StatusRequestEntityTooLarge, CodeBatchTooLarge),
		sentinelHandler(domain.ErrInvalidComposition, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidDirective, http.StatusBadRequest, CodeValidationFailed),
	}
	return s
}

// Process handles POST /v1/process.
func (s *Server) Process(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Identifiers) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "identifiers is required")
		return
	}

	ctx := logpkg.With(r.Context(),
		zap.Int("identifiers", len(req.Identifiers)),
		zap.String("adapter", req.Adapter),
	)
	results := s.process.Process(ctx, req.Identifiers)

	resp := ProcessResponse{Results: make([]ResultItem, len(results))}
	for i, res := range results {
		resp.Results[i] = resultToItem(res)
	}
	resp.Succeeded, resp.Failed = dombatch.Count(results)

	if req.Adapter != "" {
		output, err := s.process.Adapt(ctx, results, req.Adapter, req.Prompt)
		if err != nil {
			s.handleDomainError(ctx, w, err)
			return
		}
		resp.Adapter = req.Adapter
		resp.Output = output
	}

	logpkg.FromContext(ctx).Debug("batch processed",
		zap.Int("succeeded", resp.Succeeded),
		zap.Int("failed", resp.Failed),
	)
	writeJSON(w, http.StatusOK, resp)
}

// ListVerbs handles GET /v1/verbs.
func (s *Server) ListVerbs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, VerbsResponse{Verbs: s.verbs.List()})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Version: version.Version,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logpkg.FromContext(ctx)
	log.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err, err.Error()) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func resultToItem(r dombatch.Result) ResultItem {
	item := ResultItem{
		Identifier: r.ID(),
		Status:     string(r.Status()),
		Media:      []MediaItem{},
	}
	if err := r.Err(); err != nil {
		item.Error = &ErrorResponse{Code: resultErrorCode(err), Message: err.Error()}
	}
	if r.Value().IsZero() {
		return item
	}
	u := collection.Merge(r.Value())
	item.Text = u.Text()
	item.Metadata = u.Metadata()
	for _, b := range u.Media() {
		item.Media = append(item.Media, MediaItem{MIMEType: b.MIMEType, Data: b.Data})
	}
	return item
}

func resultErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, domain.ErrBatchTooLarge):
		return CodeBatchTooLarge
	case errors.Is(err, domain.ErrResourceUnavailable):
		return CodeResourceUnavailable
	case errors.Is(err, domain.ErrNoLoader):
		return CodeUnsupported
	case errors.Is(err, domain.ErrInvalidDirective):
		return CodeValidationFailed
	case errors.Is(err, domain.ErrHandlerFailure), errors.Is(err, domain.ErrReductionFailed):
		return CodeProcessingFailed
	default:
		return CodeInternalError
	}
}
