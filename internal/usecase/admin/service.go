// Package admin handles tenant data purges and service statistics.
//
// Deleting vectors makes cached search responses stale, so every purge
// also invalidates the tenant's response cache. The embedding cache maps
// text to vectors and stays correct after a vector purge; it is dropped
// only on a full tenant purge, where the goal is forgetting the tenant.
package admin

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragstore/internal/domain"
)

// PurgeReport counts what a purge removed.
type PurgeReport struct {
	VectorsRemoved   int `json:"vectorsRemoved"`
	EmbCacheRemoved  int `json:"embCacheRemoved"`
	ResponsesRemoved int `json:"responsesRemoved"`
}

// Stats is the service-wide statistics snapshot.
type Stats struct {
	VectorCount     int               `json:"vectorCount"`
	EmbCacheEntries int               `json:"embCacheEntries"`
	EmbCache        domain.CacheStats `json:"embCache"`
	ResponseCache   domain.CacheStats `json:"responseCache"`
}

// Service coordinates purges across the three stores.
type Service struct {
	vectors  VectorPurger
	embCache EmbeddingCache
	resCache ResponseCache
	logger   *zap.Logger
}

// New creates an admin service.
func New(vectors VectorPurger, embCache EmbeddingCache, resCache ResponseCache, logger *zap.Logger) *Service {
	return &Service{vectors: vectors, embCache: embCache, resCache: resCache, logger: logger}
}

// PurgeTenant removes everything a tenant has: vectors, cached embeddings
// and cached responses.
func (s *Service) PurgeTenant(ctx context.Context, tenantID string) (PurgeReport, error) {
	var report PurgeReport

	n, err := s.vectors.DeleteTenant(ctx, tenantID)
	if err != nil {
		return report, fmt.Errorf("purge tenant vectors: %w", err)
	}
	report.VectorsRemoved = n

	if report.EmbCacheRemoved, err = s.embCache.InvalidateTenant(ctx, tenantID); err != nil {
		return report, fmt.Errorf("purge tenant embedding cache: %w", err)
	}
	if report.ResponsesRemoved, err = s.resCache.InvalidateTenant(ctx, tenantID); err != nil {
		return report, fmt.Errorf("purge tenant response cache: %w", err)
	}

	s.logger.Info("tenant purged",
		zap.String("tenant", tenantID),
		zap.Int("vectors", report.VectorsRemoved),
		zap.Int("embeddings", report.EmbCacheRemoved),
		zap.Int("responses", report.ResponsesRemoved))
	return report, nil
}

// PurgeTenantModel removes a tenant's vectors for one model and drops the
// tenant's cached responses.
func (s *Service) PurgeTenantModel(ctx context.Context, tenantID, model string) (PurgeReport, error) {
	var report PurgeReport

	n, err := s.vectors.DeleteTenantModel(ctx, tenantID, model)
	if err != nil {
		return report, fmt.Errorf("purge tenant model vectors: %w", err)
	}
	report.VectorsRemoved = n

	if report.ResponsesRemoved, err = s.resCache.InvalidateTenant(ctx, tenantID); err != nil {
		return report, fmt.Errorf("invalidate response cache: %w", err)
	}
	return report, nil
}

// PurgeTenantDocument removes one document's vectors across all models and
// drops the tenant's cached responses.
func (s *Service) PurgeTenantDocument(ctx context.Context, tenantID, documentID string) (PurgeReport, error) {
	var report PurgeReport

	n, err := s.vectors.DeleteTenantDocument(ctx, tenantID, documentID)
	if err != nil {
		return report, fmt.Errorf("purge document vectors: %w", err)
	}
	report.VectorsRemoved = n

	if report.ResponsesRemoved, err = s.resCache.InvalidateTenant(ctx, tenantID); err != nil {
		return report, fmt.Errorf("invalidate response cache: %w", err)
	}
	return report, nil
}

// InvalidateResponseCache drops a tenant's cached responses, optionally
// narrowed by a fingerprint glob pattern.
func (s *Service) InvalidateResponseCache(ctx context.Context, tenantID, pattern string) (int, error) {
	if pattern == "" {
		n, err := s.resCache.InvalidateTenant(ctx, tenantID)
		if err != nil {
			return n, fmt.Errorf("invalidate response cache: %w", err)
		}
		return n, nil
	}
	n, err := s.resCache.InvalidatePattern(ctx, tenantID, pattern)
	if err != nil {
		return n, fmt.Errorf("invalidate response cache by pattern: %w", err)
	}
	return n, nil
}

// Stats collects counts and cache effectiveness across the stores.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	n, err := s.vectors.Count(ctx)
	if err != nil {
		return stats, fmt.Errorf("count vectors: %w", err)
	}
	stats.VectorCount = n

	if stats.EmbCacheEntries, err = s.embCache.Count(ctx); err != nil {
		return stats, fmt.Errorf("count embedding cache: %w", err)
	}

	stats.EmbCache = s.embCache.Stats()
	stats.ResponseCache = s.resCache.Stats()
	return stats, nil
}
