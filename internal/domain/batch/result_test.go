package batch

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/attachments/internal/domain/collection"
	"github.com/kailas-cloud/attachments/internal/domain/unit"
)

func TestResult(t *testing.T) {
	note := unit.New("missing.pdf")
	note.SetText("Could not process missing.pdf")
	cause := errors.New("open failed")

	tests := []struct {
		name       string
		result     Result
		wantStatus ItemStatus
		wantErr    error
	}{
		{"ok", NewOK("notes.txt[truncate:10]", collection.Single(unit.New("notes.txt"))), StatusOK, nil},
		{"error with note", NewError("missing.pdf", cause, collection.Single(note)), StatusError, cause},
		{"error without value", NewError("x", cause, collection.Value{}), StatusError, cause},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.result
			if r.Status() != tt.wantStatus {
				t.Errorf("Status() = %q, want %q", r.Status(), tt.wantStatus)
			}
			if r.OK() != (tt.wantStatus == StatusOK) {
				t.Errorf("OK() = %v for status %q", r.OK(), r.Status())
			}
			if !errors.Is(r.Err(), tt.wantErr) {
				t.Errorf("Err() = %v, want %v", r.Err(), tt.wantErr)
			}
		})
	}
}

func TestResult_KeepsIdentifierAndNote(t *testing.T) {
	note := unit.New("missing.pdf")
	note.SetText("Could not process missing.pdf")
	r := NewError("missing.pdf[pages:1]", errors.New("x"), collection.Single(note))

	if r.ID() != "missing.pdf[pages:1]" {
		t.Errorf("ID() = %q, want the identifier with directives", r.ID())
	}
	if r.Value().Unit() != note {
		t.Error("Value() should return the error note unit")
	}
}

func TestCount(t *testing.T) {
	results := []Result{
		NewOK("a", collection.Value{}),
		NewError("b", errors.New("x"), collection.Value{}),
		NewOK("c", collection.Value{}),
	}
	ok, failed := Count(results)
	if ok != 2 || failed != 1 {
		t.Errorf("Count() = %d, %d; want 2, 1", ok, failed)
	}
	if ok, failed := Count(nil); ok != 0 || failed != 0 {
		t.Errorf("Count(nil) = %d, %d", ok, failed)
	}
}
