package fetchcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/attachments/internal/db"
	"github.com/kailas-cloud/attachments/internal/domain"
)

type mockFetcher struct {
	res   domain.Resource
	err   error
	calls int
}

func (m *mockFetcher) Fetch(_ context.Context, url string) (domain.Resource, error) {
	m.calls++
	if m.err != nil {
		return domain.Resource{}, m.err
	}
	res := m.res
	res.URL = url
	return res, nil
}

// mockStore is an in-memory implementation of the consumer interface.
type mockStore struct {
	kv     map[string][]byte
	hashes map[string]map[string]string
	ttls   map[string]time.Duration

	getErr    error
	hgetErr   error
	setErr    error
	expireErr error
	deleted   []string
}

func newMockStore() *mockStore {
	return &mockStore{
		kv:     make(map[string][]byte),
		hashes: make(map[string]map[string]string),
		ttls:   make(map[string]time.Duration),
	}
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.kv[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *mockStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if m.setErr != nil {
		return m.setErr
	}
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *mockStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	if m.hgetErr != nil {
		return nil, m.hgetErr
	}
	return m.hashes[key], nil
}

func (m *mockStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	if m.expireErr != nil {
		return m.expireErr
	}
	m.ttls[key] = ttl
	return nil
}

func (m *mockStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.kv, k)
		delete(m.hashes, k)
		m.deleted = append(m.deleted, k)
	}
	return nil
}

func newTestCachedFetcher(t *testing.T, inner *mockFetcher) (*CachedFetcher, *mockStore) {
	t.Helper()
	ms := newMockStore()
	return New(inner, ms, time.Hour, "test:", nil, zap.NewNop()), ms
}
