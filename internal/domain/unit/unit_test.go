package unit

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kailas-cloud/attachments/internal/domain"
)

type fakePayload struct{}

func (fakePayload) Kind() domain.Kind { return "fake" }

func TestNew_ParsesDirectives(t *testing.T) {
	u := New("photo.jpg[rotate:90][resize:50%]")
	if u.Path() != "photo.jpg" {
		t.Errorf("Path() = %q", u.Path())
	}
	if u.Identifier() != "photo.jpg[rotate:90][resize:50%]" {
		t.Errorf("Identifier() = %q", u.Identifier())
	}
	if u.Directives().Value("rotate") != "90" {
		t.Errorf("rotate = %q", u.Directives().Value("rotate"))
	}
	if u.HasPayload() || u.Kind() != domain.KindNone {
		t.Error("new unit should have no payload")
	}
	if u.ID() == "" {
		t.Error("ID should be set")
	}
}

func TestDerive_InheritsDirectives(t *testing.T) {
	parent := New("bundle.zip[format:md]")
	parent.Record("load.zip")
	child := parent.Derive("inner.txt", fakePayload{})
	if child.Directives().Value("format") != "md" {
		t.Error("child should inherit directives")
	}
	if child.Path() != "inner.txt" || child.Kind() != "fake" {
		t.Errorf("child = %q/%q", child.Path(), child.Kind())
	}
	if diff := cmp.Diff([]string{"load.zip"}, child.Trail()); diff != "" {
		t.Errorf("trail mismatch (-want +got):\n%s", diff)
	}
	if child.ID() == parent.ID() {
		t.Error("child should get its own ID")
	}
}

func TestAcquired(t *testing.T) {
	u := New("a.txt")
	if u.Acquired() {
		t.Error("a fresh unit is not acquired")
	}
	if New("b.txt").Derive("part", nil).Acquired() {
		t.Error("an empty member of an unloaded unit is not acquired")
	}
	u.MarkAcquired()
	u.SetPayload(nil)
	if !u.Acquired() || !u.Clone().Acquired() || !u.Derive("part", nil).Acquired() {
		t.Error("acquisition should survive payload changes, clones and members")
	}
	if !NewWithPayload("mem", fakePayload{}, u.Directives()).Acquired() {
		t.Error("a unit built around a payload counts as acquired")
	}
}

func TestClone_Independent(t *testing.T) {
	u := New("a.txt")
	u.SetText("x")
	u.AddMedia(NewBlob("image/png", []byte("p")))
	u.SetMeta("k", 1)

	c := u.Clone()
	c.AppendText("y", "\n")
	c.AddMedia(NewBlob("image/png", []byte("q")))
	c.SetMeta("k", 2)

	if u.Text() != "x" || u.MediaCount() != 1 {
		t.Errorf("original mutated: text=%q media=%d", u.Text(), u.MediaCount())
	}
	if v, _ := u.Meta("k"); v != 1 {
		t.Errorf("original metadata mutated: %v", v)
	}
}

func TestAppendText(t *testing.T) {
	u := New("a")
	u.AppendText("", "\n")
	u.AppendText("one", "\n")
	u.AppendText("two", "\n")
	if u.Text() != "one\ntwo" {
		t.Errorf("Text() = %q", u.Text())
	}
}

func TestMergeMeta_LaterWins(t *testing.T) {
	u := New("a")
	u.SetMeta("a", 1)
	u.MergeMeta(map[string]any{"a": 2, "b": 3})
	if diff := cmp.Diff(map[string]any{"a": 2, "b": 3}, u.Metadata()); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestErr_JoinsFailures(t *testing.T) {
	u := New("a")
	if u.Err() != nil {
		t.Fatal("Err should be nil without failures")
	}
	cause := errors.New("boom")
	u.Fail(domain.NewHandlerError(domain.StageExtract, "text", "a", cause))
	err := u.Err()
	if !errors.Is(err, domain.ErrHandlerFailure) || !errors.Is(err, cause) {
		t.Errorf("Err() = %v, want handler failure wrapping cause", err)
	}
}

func TestView_Ext(t *testing.T) {
	tests := map[string]string{
		"a.TXT":                        ".txt",
		"dir.v1/file":                  "",
		"https://host/page.html?x=1.5": ".html",
		"noext":                        "",
	}
	for path, want := range tests {
		if got := (View{Path: path}).Ext(); got != want {
			t.Errorf("Ext(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestBlob(t *testing.T) {
	b := NewBlob("image/png", []byte("abc"))
	if b.DataURL() != "data:image/png;base64,YWJj" {
		t.Errorf("DataURL() = %q", b.DataURL())
	}
	raw, err := b.Bytes()
	if err != nil || string(raw) != "abc" {
		t.Errorf("Bytes() = %q, %v", raw, err)
	}
}
