// Package provcache caches raw provider payloads in a key-value store.
// Identical queries within the TTL reuse the cached payload instead of
// spending provider quota.
package provcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/procurehq/sourcedex/internal/db"
	"github.com/procurehq/sourcedex/internal/domain"
	"github.com/procurehq/sourcedex/internal/provider"
)

// store is the consumer interface for the payload cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedAdapter wraps a provider adapter with a TTL payload cache.
type CachedAdapter struct {
	inner      provider.Adapter
	store      store
	prefix     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator around an adapter.
// cacheTotal is a counter vec with labels "provider" and "result"
// ("hit"/"miss"), passed explicitly.
func New(
	inner provider.Adapter,
	s store,
	prefix string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedAdapter {
	return &CachedAdapter{
		inner:      inner,
		store:      s,
		prefix:     prefix,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// ID returns the wrapped adapter's id.
func (c *CachedAdapter) ID() string { return c.inner.ID() }

// BuildQuery delegates to the wrapped adapter.
func (c *CachedAdapter) BuildQuery(intent domain.SearchIntent) domain.ProviderQuery {
	return c.inner.BuildQuery(intent)
}

// Execute returns a cached payload or calls the inner adapter. Only
// successful payloads are cached; failures always pass through.
func (c *CachedAdapter) Execute(ctx context.Context, query domain.ProviderQuery) (*provider.Payload, error) {
	key := c.cacheKey(query)

	if payload, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return payload, nil
	}
	c.incCache("miss")

	payload, err := c.inner.Execute(ctx, query)
	if err != nil {
		return nil, err
	}

	c.putToCache(ctx, key, payload)
	return payload, nil
}

func (c *CachedAdapter) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(c.inner.ID(), result).Inc()
	}
}

// cacheKey hashes the full provider query so any change in the query
// string or filters misses the cache.
func (c *CachedAdapter) cacheKey(query domain.ProviderQuery) string {
	raw, err := json.Marshal(query)
	if err != nil {
		raw = []byte(query.Query)
	}
	h := sha256.Sum256(raw)
	return c.prefix + "provcache:" + c.inner.ID() + ":" + hex.EncodeToString(h[:])
}

func (c *CachedAdapter) getFromCache(ctx context.Context, key string) (*provider.Payload, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached payload", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	var payload provider.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.logger.Warn("Failed to parse cached payload", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &payload, true
}

func (c *CachedAdapter) putToCache(ctx context.Context, key string, payload *provider.Payload) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Warn("Failed to encode payload for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache payload", zap.String("key", key), zap.Error(err))
	}
}

var _ provider.Adapter = (*CachedAdapter)(nil)
