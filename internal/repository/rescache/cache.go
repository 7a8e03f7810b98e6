// Package rescache caches whole search responses keyed by a request
// fingerprint, scoped per tenant so invalidation can target one tenant's
// entries without touching the rest.
package rescache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragstore/internal/db"
	"github.com/kailas-cloud/ragstore/internal/domain"
)

// store is the consumer interface for the response cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	DelMulti(ctx context.Context, keys []string) (int, error)
}

// Cache stores serialized search results with a TTL.
type Cache struct {
	store      store
	prefix     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	stats      *domain.StatsTracker
	logger     *zap.Logger
}

// New creates a response cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	s store,
	prefix string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Cache {
	return &Cache{
		store:      s,
		prefix:     prefix,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		stats:      &domain.StatsTracker{},
		logger:     logger,
	}
}

// Get returns a cached search result for the fingerprint, if present.
func (c *Cache) Get(ctx context.Context, tenantID, fingerprint string) (*domain.SearchResult, bool) {
	key := c.key(tenantID, fingerprint)

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached response", zap.String("key", key), zap.Error(err))
		}
		c.miss()
		return nil, false
	}

	var result domain.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("Failed to parse cached response", zap.String("key", key), zap.Error(err))
		c.miss()
		return nil, false
	}

	c.hit()
	return &result, true
}

// Put stores a search result. Failures are logged and swallowed so a
// degraded cache never fails a search.
func (c *Cache) Put(ctx context.Context, tenantID, fingerprint string, result *domain.SearchResult) {
	key := c.key(tenantID, fingerprint)

	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("Failed to serialize response for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache response", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateTenant removes every cached response for a tenant. Called when
// the tenant's underlying vectors change, since any cached result may now
// be stale.
func (c *Cache) InvalidateTenant(ctx context.Context, tenantID string) (int, error) {
	return c.invalidate(ctx, c.prefix+"rescache:"+tenantID+":*")
}

// InvalidatePattern removes cached responses whose fingerprint matches a
// glob pattern within a tenant.
func (c *Cache) InvalidatePattern(ctx context.Context, tenantID, pattern string) (int, error) {
	return c.invalidate(ctx, c.prefix+"rescache:"+tenantID+":"+pattern)
}

// Stats returns the hit/miss snapshot since startup.
func (c *Cache) Stats() domain.CacheStats {
	return c.stats.Snapshot()
}

func (c *Cache) invalidate(ctx context.Context, pattern string) (int, error) {
	keys, err := c.store.Scan(ctx, pattern)
	if err != nil {
		return 0, fmt.Errorf("scan response cache %s: %w", pattern, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	removed, err := c.store.DelMulti(ctx, keys)
	if err != nil {
		return removed, fmt.Errorf("delete response cache %s: %w", pattern, err)
	}
	return removed, nil
}

func (c *Cache) key(tenantID, fingerprint string) string {
	return c.prefix + "rescache:" + tenantID + ":" + fingerprint
}

func (c *Cache) hit() {
	c.stats.Hit()
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues("hit").Inc()
	}
}

func (c *Cache) miss() {
	c.stats.Miss()
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues("miss").Inc()
	}
}
