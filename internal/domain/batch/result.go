package batch

import "github.com/kailas-cloud/attachments/internal/domain/collection"

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of processing one identifier in a batch.
// A failed result still carries a value: the unit with the error note.
type Result struct {
	id     string
	status ItemStatus
	err    error
	value  collection.Value
}

// NewOK creates a successful batch result.
func NewOK(id string, v collection.Value) Result {
	return Result{id: id, status: StatusOK, value: v}
}

// NewError creates a failed batch result. v carries the error note, if any.
func NewError(id string, err error, v collection.Value) Result {
	return Result{id: id, status: StatusError, err: err, value: v}
}

// ID returns the identifier as given by the caller, directives included.
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// OK reports whether the item was processed.
func (r Result) OK() bool { return r.status == StatusOK }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Value returns the processed unit or collection.
func (r Result) Value() collection.Value { return r.value }

// Count returns how many results succeeded and failed.
func Count(results []Result) (ok, failed int) {
	for _, r := range results {
		if r.OK() {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}
