package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMatch signals that no handler predicate matched at a dispatch point.
	// It is soft: dispatch never returns it, it only appears in notes.
	ErrNoMatch = errors.New("no handler matched")
	// ErrHandlerFailure signals that a handler failed while running.
	ErrHandlerFailure = errors.New("handler failure")
	// ErrReductionFailed signals that a reducing handler failed after the barrier.
	ErrReductionFailed = errors.New("reduction failed")
	// ErrAdaptationFailed signals that no adapter produced the requested shape.
	ErrAdaptationFailed = errors.New("adaptation failed")
	// ErrNoLoader signals that no acquisition handler ever matched a unit.
	ErrNoLoader = errors.New("no loader matched")

	// ErrUnknownVerb signals a lookup of an unregistered verb.
	ErrUnknownVerb = errors.New("unknown verb")
	// ErrInvalidEntry signals a malformed registry entry.
	ErrInvalidEntry = errors.New("invalid registry entry")
	// ErrRegistryFrozen signals registration after the registry was frozen.
	ErrRegistryFrozen = errors.New("registry frozen")
	// ErrInvalidDirective signals a directive value a handler could not parse.
	ErrInvalidDirective = errors.New("invalid directive")
	// ErrInvalidComposition signals a pipeline shape that cannot be evaluated.
	ErrInvalidComposition = errors.New("invalid composition")

	// ErrResourceUnavailable signals that a resource could not be opened or fetched.
	ErrResourceUnavailable = errors.New("resource unavailable")
	// ErrBatchTooLarge signals a batch exceeding the configured size.
	ErrBatchTooLarge = errors.New("batch too large")
)

// HandlerError records a failure of one handler on one unit.
// It matches both ErrHandlerFailure and the underlying cause under errors.Is.
type HandlerError struct {
	Stage      Stage
	Verb       string
	Identifier string
	Err        error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s.%s on %q: %v", e.Stage, e.Verb, e.Identifier, e.Err)
}

func (e *HandlerError) Unwrap() []error { return []error{ErrHandlerFailure, e.Err} }

// NewHandlerError creates a handler failure for the given stage and verb.
func NewHandlerError(stage Stage, verb, identifier string, err error) error {
	return &HandlerError{Stage: stage, Verb: verb, Identifier: identifier, Err: err}
}
