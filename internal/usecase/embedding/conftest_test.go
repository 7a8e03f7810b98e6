package embedding

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragstore/internal/domain"
	"github.com/kailas-cloud/ragstore/internal/registry"
)

type mockProvider struct {
	embed      domain.EmbeddingResult
	embedErr   error
	batchErr   error
	batchCalls int
	lastBatch  []string
}

func (m *mockProvider) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return m.embed, m.embedErr
}

func (m *mockProvider) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	m.lastBatch = texts
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = m.embed.Embedding
	}
	return domain.BatchEmbeddingResult{
		Embeddings:  embeddings,
		TotalTokens: m.embed.TotalTokens * len(texts),
	}, nil
}

func (m *mockProvider) HealthCheck(_ context.Context) error { return nil }

type mockResolver struct {
	provider *mockProvider
	desc     domain.ModelDescriptor
	lastName string
}

func (m *mockResolver) Resolve(name string) (registry.Provider, domain.ModelDescriptor) {
	m.lastName = name
	return m.provider, m.desc
}

type mockCache struct {
	entries map[string][]float32
	puts    int
}

func cacheKey(tenantID, model, text string) string {
	return tenantID + "|" + model + "|" + text
}

func (m *mockCache) Get(_ context.Context, tenantID, model, text string) ([]float32, bool) {
	vec, ok := m.entries[cacheKey(tenantID, model, text)]
	return vec, ok
}

func (m *mockCache) Put(_ context.Context, tenantID, model, text string, vec []float32) {
	m.puts++
	m.entries[cacheKey(tenantID, model, text)] = vec
}

type mockWriter struct {
	storeErr error
	records  []domain.VectorRecord
	tenant   string
	model    string
	dims     int
}

func (m *mockWriter) Store(_ context.Context, tenantID, model string, dims int, records []domain.VectorRecord) error {
	if m.storeErr != nil {
		return m.storeErr
	}
	m.tenant, m.model, m.dims = tenantID, model, dims
	m.records = append(m.records, records...)
	return nil
}

func newTestService(t *testing.T) (*Service, *mockResolver, *mockCache, *mockWriter) {
	t.Helper()
	resolver := &mockResolver{
		provider: &mockProvider{embed: domain.EmbeddingResult{
			Embedding:   []float32{0.1, 0.2},
			TotalTokens: 3,
		}},
		desc: domain.ModelDescriptor{Name: "text-embed-v1", Kind: domain.ModelKindRemote, Dimensions: 2},
	}
	cache := &mockCache{entries: map[string][]float32{}}
	writer := &mockWriter{}
	svc := New(resolver, cache, writer, zap.NewNop())
	return svc, resolver, cache, writer
}
