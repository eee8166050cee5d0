package chi

import "github.com/kailas-cloud/attachments/internal/registry"

// ErrorCode is a machine-readable error classification.
type ErrorCode string

// Error codes returned by the API.
const (
	CodeBadRequest          ErrorCode = "bad_request"
	CodeValidationFailed    ErrorCode = "validation_failed"
	CodeUnauthorized        ErrorCode = "unauthorized"
	CodeNotFound            ErrorCode = "not_found"
	CodeUnsupported         ErrorCode = "unsupported"
	CodeResourceUnavailable ErrorCode = "resource_unavailable"
	CodeBatchTooLarge       ErrorCode = "batch_too_large"
	CodeAdaptationFailed    ErrorCode = "adaptation_failed"
	CodeProcessingFailed    ErrorCode = "processing_failed"
	CodeInternalError       ErrorCode = "internal_error"
)

// ErrorResponse is the error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ProcessRequest is the body of POST /v1/process.
type ProcessRequest struct {
	Identifiers []string `json:"identifiers"`
	Adapter     string   `json:"adapter,omitempty"`
	Prompt      string   `json:"prompt,omitempty"`
}

// MediaItem is one extracted image.
type MediaItem struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

// ResultItem is the outcome for one identifier.
type ResultItem struct {
	Identifier string         `json:"identifier"`
	Status     string         `json:"status"`
	Error      *ErrorResponse `json:"error,omitempty"`
	Text       string         `json:"text"`
	Media      []MediaItem    `json:"media"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ProcessResponse is the body returned by POST /v1/process.
type ProcessResponse struct {
	Results   []ResultItem `json:"results"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Adapter   string       `json:"adapter,omitempty"`
	Output    any          `json:"output,omitempty"`
}

// VerbsResponse lists the registered verbs.
type VerbsResponse struct {
	Verbs []registry.Info `json:"verbs"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version"`
}
