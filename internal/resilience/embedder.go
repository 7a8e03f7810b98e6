package resilience

import (
	"context"

	"github.com/kailas-cloud/ragstore/internal/domain"
)

// provider is the consumer interface for the guarded embedder (ISP).
type provider interface {
	domain.Embedder
	domain.BatchEmbedder
	domain.HealthChecker
}

// GuardedEmbedder runs every provider call through a Guard.
type GuardedEmbedder struct {
	inner provider
	guard *Guard
}

// NewEmbedder wraps an embedding provider with retry and circuit breaking.
func NewEmbedder(inner provider, guard *Guard) *GuardedEmbedder {
	return &GuardedEmbedder{inner: inner, guard: guard}
}

func (e *GuardedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return Do(ctx, e.guard, func(ctx context.Context) (domain.EmbeddingResult, error) {
		return e.inner.Embed(ctx, text)
	})
}

func (e *GuardedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	return Do(ctx, e.guard, func(ctx context.Context) (domain.BatchEmbeddingResult, error) {
		return e.inner.BatchEmbed(ctx, texts)
	})
}

// HealthCheck bypasses retry: a probe should report current state, not
// mask it behind backoff.
func (e *GuardedEmbedder) HealthCheck(ctx context.Context) error {
	return e.inner.HealthCheck(ctx)
}
