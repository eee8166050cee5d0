package health

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/attachments/internal/registry"
)

// --- Mocks ---

type mockCachePinger struct {
	err error
}

func (m *mockCachePinger) Ping(_ context.Context) error { return m.err }

type mockVerbs struct {
	frozen bool
	infos  []registry.Info
}

func (m *mockVerbs) Frozen() bool { return m.frozen }
func (m *mockVerbs) List() []registry.Info { return m.infos }

func readyVerbs() *mockVerbs {
	return &mockVerbs{frozen: true, infos: []registry.Info{{Name: "text"}}}
}

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(readyVerbs(), &mockCachePinger{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.Checks["registry"] != CheckOK {
		t.Errorf("expected registry %q, got %q", CheckOK, r.Checks["registry"])
	}
	if r.Checks["cache"] != CheckOK {
		t.Errorf("expected cache %q, got %q", CheckOK, r.Checks["cache"])
	}
}

func TestCheck_CacheError(t *testing.T) {
	svc := New(readyVerbs(), &mockCachePinger{err: errors.New("conn refused")})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["cache"] != CheckError {
		t.Errorf("expected cache %q, got %q", CheckError, r.Checks["cache"])
	}
}

func TestCheck_NoCache(t *testing.T) {
	svc := New(readyVerbs(), nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks["cache"]; ok {
		t.Error("cache check should be absent when the cache is disabled")
	}
}

func TestCheck_RegistryNotReady(t *testing.T) {
	tests := []struct {
		name  string
		verbs *mockVerbs
	}{
		{"not frozen", &mockVerbs{infos: []registry.Info{{Name: "text"}}}},
		{"empty", &mockVerbs{frozen: true}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := New(tc.verbs, &mockCachePinger{err: errors.New("down")}).Check(context.Background())
			if r.Status != Unhealthy {
				t.Errorf("expected %q, got %q", Unhealthy, r.Status)
			}
			if r.Checks["registry"] != CheckError {
				t.Errorf("expected registry %q, got %q", CheckError, r.Checks["registry"])
			}
		})
	}
}
