package fetchcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/attachments/internal/db"
	"github.com/kailas-cloud/attachments/internal/domain"
)

// DefaultKeyPrefix namespaces cache keys when no prefix is configured.
const DefaultKeyPrefix = "attachments:"

// fetcher is the decorated transport.
type fetcher interface {
	Fetch(ctx context.Context, url string) (domain.Resource, error)
}

// store is the consumer interface for the fetch cache (ISP).
// Resource headers live in a hash, the body in a plain key; both carry the same TTL.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// CachedFetcher caches fetched resources in a Redis/Valkey store.
type CachedFetcher struct {
	inner      fetcher
	store      store
	ttl        time.Duration
	prefix     string
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner fetcher,
	s store,
	ttl time.Duration,
	prefix string,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedFetcher {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedFetcher{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		prefix:     prefix,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Fetch returns a cached resource or calls the inner fetcher.
// Only 2xx responses are cached; store failures degrade to a plain fetch.
func (c *CachedFetcher) Fetch(ctx context.Context, url string) (domain.Resource, error) {
	metaKey, bodyKey := c.keys(url)

	if res, ok := c.getFromCache(ctx, url, metaKey, bodyKey); ok {
		c.incCache("hit")
		return res, nil
	}

	c.incCache("miss")

	res, err := c.inner.Fetch(ctx, url)
	if err != nil {
		return domain.Resource{}, fmt.Errorf("fetch %s: %w", url, err)
	}

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		c.putToCache(ctx, url, metaKey, bodyKey, res)
	}
	return res, nil
}

func (c *CachedFetcher) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedFetcher) keys(url string) (meta, body string) {
	h := sha256.Sum256([]byte(url))
	id := hex.EncodeToString(h[:])
	return c.prefix + "fetch:" + id, c.prefix + "fetch_body:" + id
}

func (c *CachedFetcher) getFromCache(ctx context.Context, url, metaKey, bodyKey string) (domain.Resource, bool) {
	fields, err := c.store.HGetAll(ctx, metaKey)
	if err != nil {
		c.logger.Warn("Failed to get cached resource", zap.String("key", metaKey), zap.Error(err))
		return domain.Resource{}, false
	}
	if len(fields) == 0 {
		return domain.Resource{}, false
	}
	if fields["url"] != url {
		// sha256 collision or a foreign writer; treat as a miss
		return domain.Resource{}, false
	}

	body, err := c.store.Get(ctx, bodyKey)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			c.evict(ctx, metaKey, bodyKey)
		} else {
			c.logger.Warn("Failed to get cached body", zap.String("key", bodyKey), zap.Error(err))
		}
		return domain.Resource{}, false
	}

	status, err := strconv.Atoi(fields["status_code"])
	if err != nil {
		c.logger.Warn("Failed to parse cached resource", zap.String("key", metaKey), zap.Error(err))
		c.evict(ctx, metaKey, bodyKey)
		return domain.Resource{}, false
	}

	return domain.Resource{
		URL:         url,
		StatusCode:  status,
		ContentType: fields["content_type"],
		Body:        body,
	}, true
}

func (c *CachedFetcher) putToCache(ctx context.Context, url, metaKey, bodyKey string, res domain.Resource) {
	if err := c.store.SetWithTTL(ctx, bodyKey, res.Body, c.ttl); err != nil {
		c.logger.Warn("Failed to cache body", zap.String("key", bodyKey), zap.Error(err))
		return
	}
	fields := map[string]string{
		"url":          url,
		"status_code":  strconv.Itoa(res.StatusCode),
		"content_type": res.ContentType,
		"size":         strconv.Itoa(len(res.Body)),
	}
	if err := c.store.HSet(ctx, metaKey, fields); err != nil {
		c.logger.Warn("Failed to cache resource", zap.String("key", metaKey), zap.Error(err))
		return
	}
	if err := c.store.Expire(ctx, metaKey, c.ttl); err != nil {
		c.logger.Warn("Failed to set resource TTL", zap.String("key", metaKey), zap.Error(err))
		c.evict(ctx, metaKey, bodyKey)
	}
}

func (c *CachedFetcher) evict(ctx context.Context, keys ...string) {
	if err := c.store.Del(ctx, keys...); err != nil {
		c.logger.Warn("Failed to evict cached resource", zap.Strings("keys", keys), zap.Error(err))
	}
}
