// Package embcache is a content-addressed embedding cache. Entries are
// scoped by tenant and canonical model name so identical text embedded
// for different tenants or models never collides.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragstore/internal/db"
	"github.com/kailas-cloud/ragstore/internal/domain"
)

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	DelMulti(ctx context.Context, keys []string) (int, error)
}

// Cache stores embedding vectors keyed by tenant, model and content hash.
// Reads are authoritative; writes are best-effort and never fail a request.
type Cache struct {
	store      store
	prefix     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	stats      *domain.StatsTracker
	logger     *zap.Logger
}

// New creates an embedding cache.
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

// Get returns the cached vector for the text, if present.
func (c *Cache) Get(ctx context.Context, tenantID, model, text string) ([]float32, bool) {
	key := c.key(tenantID, model, text)

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		c.miss()
		return nil, false
	}
	if len(data) == 0 {
		c.miss()
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		c.miss()
		return nil, false
	}

	c.hit()
	return vec, true
}

// Put stores a vector. A write failure is logged and swallowed so embedding
// requests keep succeeding when the cache is degraded.
func (c *Cache) Put(ctx context.Context, tenantID, model, text string, vec []float32) {
	key := c.key(tenantID, model, text)
	if err := c.store.SetWithTTL(ctx, key, vectorToCacheBytes(vec), c.ttl); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateTenant removes every cached embedding for a tenant across all
// models. Returns the number of entries removed.
func (c *Cache) InvalidateTenant(ctx context.Context, tenantID string) (int, error) {
	keys, err := c.store.Scan(ctx, c.prefix+"embcache:"+tenantID+":*")
	if err != nil {
		return 0, fmt.Errorf("scan embedding cache for tenant %s: %w", tenantID, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	removed, err := c.store.DelMulti(ctx, keys)
	if err != nil {
		return removed, fmt.Errorf("delete embedding cache for tenant %s: %w", tenantID, err)
	}
	return removed, nil
}

// Count returns the number of cached entries across all tenants.
func (c *Cache) Count(ctx context.Context) (int, error) {
	keys, err := c.store.Scan(ctx, c.prefix+"embcache:*")
	if err != nil {
		return 0, fmt.Errorf("scan embedding cache: %w", err)
	}
	return len(keys), nil
}

// Stats returns the hit/miss snapshot since startup.
func (c *Cache) Stats() domain.CacheStats {
	return c.stats.Snapshot()
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

// key builds the cache key. Text is trimmed before hashing so trailing
// whitespace from chunking does not defeat the cache.
func (c *Cache) key(tenantID, model, text string) string {
	h := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return c.prefix + "embcache:" + tenantID + ":" + model + ":" + hex.EncodeToString(h[:])
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
