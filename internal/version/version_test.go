package version

import "testing"

func TestString(t *testing.T) {
	want := "dev (commit unknown, built unknown)"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := UserAgent(); got != "attachments/dev" {
		t.Errorf("UserAgent() = %q", got)
	}
}
