// Package embedding generates chunk embeddings: cache probe first, one
// batched provider call for the misses, then persistence. A provider
// failure marks only the affected items FAILED; cached items still succeed.
package embedding

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragstore/internal/domain"
)

// Service coordinates embedding generation for document chunks.
type Service struct {
	resolver ModelResolver
	cache    Cache
	writer   VectorWriter
	logger   *zap.Logger
}

// New creates an embedding service.
func New(resolver ModelResolver, cache Cache, writer VectorWriter, logger *zap.Logger) *Service {
	return &Service{resolver: resolver, cache: cache, writer: writer, logger: logger}
}

// Generate embeds every chunk in the request. Results come back in request
// order with a per-item status; the aggregate status reflects whether all,
// some, or none of the items succeeded.
func (s *Service) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	provider, desc := s.resolver.Resolve(req.ModelName)

	chunkIDs := make([]string, len(req.Texts))
	for i := range req.Texts {
		if i < len(req.ChunkIDs) && req.ChunkIDs[i] != "" {
			chunkIDs[i] = req.ChunkIDs[i]
		} else {
			chunkIDs[i] = uuid.NewString()
		}
	}

	items := make([]domain.ItemResult, len(req.Texts))
	var missIdx []int

	for i, text := range req.Texts {
		items[i] = domain.ItemResult{ChunkID: chunkIDs[i]}
		if vec, ok := s.cache.Get(ctx, req.TenantID, desc.Name, text); ok {
			items[i].Embedding = vec
			items[i].Status = domain.ItemSuccess
			items[i].Cached = true
			continue
		}
		missIdx = append(missIdx, i)
	}

	totalTokens := 0
	if len(missIdx) > 0 {
		texts := make([]string, len(missIdx))
		for j, i := range missIdx {
			texts[j] = req.Texts[i]
		}

		batch, err := provider.BatchEmbed(ctx, texts)
		if err != nil {
			s.logger.Error("batch embedding failed",
				zap.String("tenant", req.TenantID),
				zap.String("model", desc.Name),
				zap.Int("items", len(missIdx)),
				zap.Error(err))
			for _, i := range missIdx {
				items[i].Status = domain.ItemFailed
				items[i].Error = err.Error()
			}
		} else {
			totalTokens = batch.TotalTokens
			for j, i := range missIdx {
				items[i].Embedding = batch.Embeddings[j]
				items[i].Status = domain.ItemSuccess
				s.cache.Put(ctx, req.TenantID, desc.Name, req.Texts[i], batch.Embeddings[j])
			}
		}
	}

	s.persist(ctx, req, desc, items)

	return &domain.GenerateResponse{
		Status:      domain.Aggregate(items),
		ModelName:   desc.Name,
		Items:       items,
		TotalTokens: totalTokens,
	}, nil
}

// EmbedQuery embeds a single search query through the same cache and
// provider path as generation, returning the canonical descriptor used.
func (s *Service) EmbedQuery(ctx context.Context, tenantID, modelName, query string) ([]float32, domain.ModelDescriptor, error) {
	provider, desc := s.resolver.Resolve(modelName)

	if vec, ok := s.cache.Get(ctx, tenantID, desc.Name, query); ok {
		return vec, desc, nil
	}

	res, err := provider.Embed(ctx, query)
	if err != nil {
		return nil, desc, fmt.Errorf("embed query: %w", err)
	}
	if desc.Dimensions > 0 && len(res.Embedding) != desc.Dimensions {
		return nil, desc, fmt.Errorf("%w: model %s returned %d dimensions, expected %d",
			domain.ErrVectorDimMismatch, desc.Name, len(res.Embedding), desc.Dimensions)
	}

	s.cache.Put(ctx, tenantID, desc.Name, query, res.Embedding)
	return res.Embedding, desc, nil
}

// persist writes successful items to the vector store. Persistence is
// best effort: the embeddings were already returned to the caller and
// cached, so a write failure is logged without failing any item.
func (s *Service) persist(ctx context.Context, req domain.GenerateRequest, desc domain.ModelDescriptor, items []domain.ItemResult) {
	var records []domain.VectorRecord
	for i := range items {
		if items[i].Status != domain.ItemSuccess {
			continue
		}
		records = append(records, domain.VectorRecord{
			ChunkID:    items[i].ChunkID,
			DocumentID: req.DocumentID,
			Vector:     items[i].Embedding,
			Content:    req.Texts[i],
		})
	}
	if len(records) == 0 {
		return
	}

	if err := s.writer.Store(ctx, req.TenantID, desc.Name, desc.Dimensions, records); err != nil {
		s.logger.Error("vector store write failed",
			zap.String("tenant", req.TenantID),
			zap.String("document", req.DocumentID),
			zap.Int("records", len(records)),
			zap.Error(err))
	}
}

func validate(req domain.GenerateRequest) error {
	if req.TenantID == "" {
		return fmt.Errorf("%w: tenantId is required", domain.ErrInvalidRequest)
	}
	if req.DocumentID == "" {
		return fmt.Errorf("%w: documentId is required", domain.ErrInvalidRequest)
	}
	if len(req.Texts) == 0 {
		return fmt.Errorf("%w: texts must not be empty", domain.ErrInvalidRequest)
	}
	if len(req.ChunkIDs) > 0 && len(req.ChunkIDs) != len(req.Texts) {
		return fmt.Errorf("%w: chunkIds length %d does not match texts length %d",
			domain.ErrInvalidRequest, len(req.ChunkIDs), len(req.Texts))
	}
	for i, text := range req.Texts {
		if text == "" {
			return fmt.Errorf("%w: texts[%d] is empty", domain.ErrInvalidRequest, i)
		}
	}
	return nil
}
