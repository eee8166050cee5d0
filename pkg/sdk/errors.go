package attachments

import "github.com/kailas-cloud/attachments/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrHandlerFailure      = domain.ErrHandlerFailure
	ErrReductionFailed     = domain.ErrReductionFailed
	ErrAdaptationFailed    = domain.ErrAdaptationFailed
	ErrNoLoader            = domain.ErrNoLoader
	ErrUnknownVerb         = domain.ErrUnknownVerb
	ErrInvalidDirective    = domain.ErrInvalidDirective
	ErrInvalidComposition  = domain.ErrInvalidComposition
	ErrResourceUnavailable = domain.ErrResourceUnavailable
	ErrBatchTooLarge       = domain.ErrBatchTooLarge
)
