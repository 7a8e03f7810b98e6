package embedding

import (
	"context"

	"github.com/kailas-cloud/ragstore/internal/domain"
	"github.com/kailas-cloud/ragstore/internal/registry"
)

// ModelResolver maps a requested model name to a provider, falling back to
// the default for empty or unknown names.
type ModelResolver interface {
	Resolve(name string) (registry.Provider, domain.ModelDescriptor)
}

// Cache is the embedding cache the service probes before calling a provider.
type Cache interface {
	Get(ctx context.Context, tenantID, model, text string) ([]float32, bool)
	Put(ctx context.Context, tenantID, model, text string, vec []float32)
}

// VectorWriter persists generated embeddings.
type VectorWriter interface {
	Store(ctx context.Context, tenantID, model string, dims int, records []domain.VectorRecord) error
}
