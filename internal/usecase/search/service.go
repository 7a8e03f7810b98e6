// Package search answers similarity queries: response cache first, then
// query embedding and a ranked scan of the tenant's vectors.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragstore/internal/domain"
	"github.com/kailas-cloud/ragstore/internal/metrics"
	"github.com/kailas-cloud/ragstore/internal/repository/rescache"
	"github.com/kailas-cloud/ragstore/internal/repository/vectorstore"
)

// Limits bounds result set sizes.
type Limits struct {
	DefaultTopK int
	MaxTopK     int
}

// Service handles similarity search with response caching.
type Service struct {
	resolver ModelResolver
	embedder QueryEmbedder
	searcher VectorSearcher
	cache    ResponseCache
	limits   Limits
	logger   *zap.Logger
}

// New creates a search service.
func New(resolver ModelResolver, embedder QueryEmbedder, searcher VectorSearcher, cache ResponseCache, limits Limits, logger *zap.Logger) *Service {
	return &Service{
		resolver: resolver,
		embedder: embedder,
		searcher: searcher,
		cache:    cache,
		limits:   limits,
		logger:   logger,
	}
}

// Search runs a similarity query. The request is canonicalized (model name,
// topK bounds) before fingerprinting so equivalent requests share a cache
// entry regardless of how the caller spelled them.
func (s *Service) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	_, desc := s.resolver.Resolve(req.ModelName)
	req.ModelName = desc.Name

	fp := rescache.Fingerprint(req)
	if cached, ok := s.cache.Get(ctx, req.TenantID, fp); ok {
		cached.Cached = true
		return cached, nil
	}

	start := time.Now()

	vec, _, err := s.embedder.EmbedQuery(ctx, req.TenantID, desc.Name, req.Query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	if desc.Dimensions > 0 && len(vec) != desc.Dimensions {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, model %s expects %d",
			domain.ErrVectorDimMismatch, len(vec), desc.Name, desc.Dimensions)
	}

	hits, candidates, err := s.searcher.Search(ctx, req.TenantID, desc.Name, vec, vectorstore.SearchOptions{
		TopK:        req.TopK,
		Threshold:   req.Threshold,
		DocumentIDs: req.DocumentIDs,
		Filters:     req.Filters,
	})
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	took := time.Since(start)
	metrics.SearchDuration.WithLabelValues(desc.Name).Observe(took.Seconds())

	for i := range hits {
		if !req.IncludeContent {
			hits[i].Content = ""
		}
		if !req.IncludeMetadata {
			hits[i].Metadata = nil
		}
	}

	result := &domain.SearchResult{
		Hits:            hits,
		ModelName:       desc.Name,
		TotalCandidates: candidates,
		TookMillis:      took.Milliseconds(),
	}

	s.cache.Put(ctx, req.TenantID, fp, result)
	return result, nil
}

// validate normalizes topK and threshold in place.
func (s *Service) validate(req *domain.SearchRequest) error {
	if req.TenantID == "" {
		return fmt.Errorf("%w: tenantId is required", domain.ErrInvalidRequest)
	}
	if req.Query == "" {
		return fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if req.TopK < 0 {
		return fmt.Errorf("%w: topK must not be negative", domain.ErrInvalidRequest)
	}
	if req.Threshold < -1 || req.Threshold > 1 {
		return fmt.Errorf("%w: threshold must be within [-1, 1]", domain.ErrInvalidRequest)
	}
	if req.TopK == 0 {
		req.TopK = s.limits.DefaultTopK
	}
	if s.limits.MaxTopK > 0 && req.TopK > s.limits.MaxTopK {
		req.TopK = s.limits.MaxTopK
	}
	return nil
}
