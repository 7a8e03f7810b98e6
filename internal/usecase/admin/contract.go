package admin

import (
	"context"

	"github.com/kailas-cloud/ragstore/internal/domain"
)

// VectorPurger deletes stored vectors by scope.
type VectorPurger interface {
	DeleteTenant(ctx context.Context, tenantID string) (int, error)
	DeleteTenantModel(ctx context.Context, tenantID, model string) (int, error)
	DeleteTenantDocument(ctx context.Context, tenantID, documentID string) (int, error)
	Count(ctx context.Context) (int, error)
}

// EmbeddingCache exposes the admin surface of the embedding cache.
type EmbeddingCache interface {
	InvalidateTenant(ctx context.Context, tenantID string) (int, error)
	Count(ctx context.Context) (int, error)
	Stats() domain.CacheStats
}

// ResponseCache exposes the admin surface of the response cache.
type ResponseCache interface {
	InvalidateTenant(ctx context.Context, tenantID string) (int, error)
	InvalidatePattern(ctx context.Context, tenantID, pattern string) (int, error)
	Stats() domain.CacheStats
}
