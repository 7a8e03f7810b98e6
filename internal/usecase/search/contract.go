package search

import (
	"context"

	"github.com/kailas-cloud/ragstore/internal/domain"
	"github.com/kailas-cloud/ragstore/internal/registry"
	"github.com/kailas-cloud/ragstore/internal/repository/vectorstore"
)

// ModelResolver canonicalizes the requested model name before fingerprinting,
// so aliased requests share one cache entry.
type ModelResolver interface {
	Resolve(name string) (registry.Provider, domain.ModelDescriptor)
}

// QueryEmbedder vectorizes the search query through the embedding cache.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, tenantID, modelName, query string) ([]float32, domain.ModelDescriptor, error)
}

// VectorSearcher runs similarity search over stored vectors.
type VectorSearcher interface {
	Search(ctx context.Context, tenantID, model string, query []float32, opts vectorstore.SearchOptions) ([]domain.SearchHit, int, error)
}

// ResponseCache stores whole search results by fingerprint.
type ResponseCache interface {
	Get(ctx context.Context, tenantID, fingerprint string) (*domain.SearchResult, bool)
	Put(ctx context.Context, tenantID, fingerprint string, result *domain.SearchResult)
}
