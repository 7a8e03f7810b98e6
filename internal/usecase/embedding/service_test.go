package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/ragstore/internal/domain"
)

func generateReq() domain.GenerateRequest {
	return domain.GenerateRequest{
		TenantID:   "t1",
		DocumentID: "d1",
		Texts:      []string{"alpha", "beta"},
		ChunkIDs:   []string{"c1", "c2"},
	}
}

func TestGenerate_AllMisses(t *testing.T) {
	svc, resolver, cache, writer := newTestService(t)

	resp, err := svc.Generate(context.Background(), generateReq())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Status != domain.RequestSuccess {
		t.Errorf("expected SUCCESS, got %s", resp.Status)
	}
	if resp.ModelName != "text-embed-v1" {
		t.Errorf("expected canonical model name, got %s", resp.ModelName)
	}
	if resolver.provider.batchCalls != 1 {
		t.Errorf("expected a single batched call, got %d", resolver.provider.batchCalls)
	}
	if cache.puts != 2 {
		t.Errorf("expected 2 cache puts, got %d", cache.puts)
	}
	if len(writer.records) != 2 {
		t.Errorf("expected 2 stored records, got %d", len(writer.records))
	}
	if resp.TotalTokens != 6 {
		t.Errorf("expected TotalTokens=6, got %d", resp.TotalTokens)
	}
	for i, item := range resp.Items {
		if item.Status != domain.ItemSuccess || item.Cached {
			t.Errorf("item %d: %+v", i, item)
		}
	}
}

func TestGenerate_IdempotentCaching(t *testing.T) {
	svc, resolver, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Generate(ctx, generateReq()); err != nil {
		t.Fatalf("first generate: %v", err)
	}
	resp, err := svc.Generate(ctx, generateReq())
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}

	if resolver.provider.batchCalls != 1 {
		t.Errorf("second run must be served from cache, got %d provider calls", resolver.provider.batchCalls)
	}
	if resp.TotalTokens != 0 {
		t.Errorf("cached run must consume 0 tokens, got %d", resp.TotalTokens)
	}
	for i, item := range resp.Items {
		if !item.Cached || item.Status != domain.ItemSuccess {
			t.Errorf("item %d should be a cache hit: %+v", i, item)
		}
	}
}

func TestGenerate_MixedHitsOnlyEmbedsMisses(t *testing.T) {
	svc, resolver, cache, _ := newTestService(t)

	cache.entries[cacheKey("t1", "text-embed-v1", "alpha")] = []float32{0.9, 0.9}

	resp, err := svc.Generate(context.Background(), generateReq())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(resolver.provider.lastBatch) != 1 || resolver.provider.lastBatch[0] != "beta" {
		t.Errorf("only the miss should be embedded, got %v", resolver.provider.lastBatch)
	}
	if !resp.Items[0].Cached || resp.Items[0].Embedding[0] != 0.9 {
		t.Errorf("item 0 should come from cache: %+v", resp.Items[0])
	}
	if resp.Items[1].Cached {
		t.Errorf("item 1 should be fresh: %+v", resp.Items[1])
	}
}

func TestGenerate_ProviderFailure_CachedItemsSurvive(t *testing.T) {
	svc, resolver, cache, writer := newTestService(t)
	resolver.provider.batchErr = errors.New("api down")

	cache.entries[cacheKey("t1", "text-embed-v1", "alpha")] = []float32{0.9, 0.9}

	resp, err := svc.Generate(context.Background(), generateReq())
	if err != nil {
		t.Fatalf("generate must not fail the whole request: %v", err)
	}
	if resp.Status != domain.RequestPartial {
		t.Errorf("expected PARTIAL, got %s", resp.Status)
	}
	if resp.Items[0].Status != domain.ItemSuccess {
		t.Errorf("cached item must succeed: %+v", resp.Items[0])
	}
	if resp.Items[1].Status != domain.ItemFailed || resp.Items[1].Error == "" {
		t.Errorf("miss must be FAILED with an error: %+v", resp.Items[1])
	}
	// The cached item is still persisted.
	if len(writer.records) != 1 || writer.records[0].ChunkID != "c1" {
		t.Errorf("expected c1 stored, got %v", writer.records)
	}
}

func TestGenerate_ProviderFailure_AllFail(t *testing.T) {
	svc, resolver, _, _ := newTestService(t)
	resolver.provider.batchErr = errors.New("api down")

	resp, err := svc.Generate(context.Background(), generateReq())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Status != domain.RequestFailed {
		t.Errorf("expected FAILED, got %s", resp.Status)
	}
}

func TestGenerate_StoreFailureIsBestEffort(t *testing.T) {
	svc, _, cache, writer := newTestService(t)
	writer.storeErr = errors.New("redis down")

	resp, err := svc.Generate(context.Background(), generateReq())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Status != domain.RequestSuccess {
		t.Errorf("a persistence failure must not fail the request, got %s", resp.Status)
	}
	for i, item := range resp.Items {
		if item.Status != domain.ItemSuccess || item.Error != "" {
			t.Errorf("item %d: %+v", i, item)
		}
		if len(item.Embedding) == 0 {
			t.Errorf("item %d must still carry its embedding", i)
		}
	}
	if cache.puts != 2 {
		t.Errorf("embeddings must still be cached, got %d puts", cache.puts)
	}
}

func TestGenerate_OrderPreserved(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	req := generateReq()
	req.Texts = []string{"one", "two", "three"}
	req.ChunkIDs = []string{"c-one", "c-two", "c-three"}

	resp, err := svc.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for i, want := range req.ChunkIDs {
		if resp.Items[i].ChunkID != want {
			t.Errorf("item %d: expected %s, got %s", i, want, resp.Items[i].ChunkID)
		}
	}
}

func TestGenerate_MissingChunkIDsGenerated(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	req := generateReq()
	req.ChunkIDs = nil

	resp, err := svc.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	seen := map[string]bool{}
	for i, item := range resp.Items {
		if item.ChunkID == "" {
			t.Errorf("item %d has empty chunk ID", i)
		}
		if seen[item.ChunkID] {
			t.Errorf("duplicate generated chunk ID %s", item.ChunkID)
		}
		seen[item.ChunkID] = true
	}
}

func TestGenerate_FallbackModelName(t *testing.T) {
	svc, resolver, _, _ := newTestService(t)

	req := generateReq()
	req.ModelName = "no-such-model"

	resp, err := svc.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resolver.lastName != "no-such-model" {
		t.Errorf("resolver must see the requested name, got %s", resolver.lastName)
	}
	if resp.ModelName != "text-embed-v1" {
		t.Errorf("response must carry the effective model name, got %s", resp.ModelName)
	}
}

func TestGenerate_Validation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		mut  func(*domain.GenerateRequest)
	}{
		{"missing tenant", func(r *domain.GenerateRequest) { r.TenantID = "" }},
		{"missing document", func(r *domain.GenerateRequest) { r.DocumentID = "" }},
		{"no texts", func(r *domain.GenerateRequest) { r.Texts = nil; r.ChunkIDs = nil }},
		{"chunk id count mismatch", func(r *domain.GenerateRequest) { r.ChunkIDs = []string{"c1"} }},
		{"empty text", func(r *domain.GenerateRequest) { r.Texts[1] = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := generateReq()
			tc.mut(&req)
			_, err := svc.Generate(ctx, req)
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestEmbedQuery_CachesResult(t *testing.T) {
	svc, resolver, cache, _ := newTestService(t)
	ctx := context.Background()

	vec, desc, err := svc.EmbedQuery(ctx, "t1", "", "find me")
	if err != nil {
		t.Fatalf("embed query: %v", err)
	}
	if desc.Name != "text-embed-v1" {
		t.Errorf("unexpected descriptor: %+v", desc)
	}
	if len(vec) != 2 {
		t.Errorf("unexpected vector: %v", vec)
	}
	if cache.puts != 1 {
		t.Errorf("expected query vector cached, got %d puts", cache.puts)
	}

	// Second call hits the cache.
	_, _, err = svc.EmbedQuery(ctx, "t1", "", "find me")
	if err != nil {
		t.Fatalf("embed query: %v", err)
	}
	if resolver.provider.batchCalls != 0 {
		t.Errorf("EmbedQuery must not use batch API, got %d calls", resolver.provider.batchCalls)
	}
}

func TestEmbedQuery_DimensionMismatchNotCached(t *testing.T) {
	svc, resolver, cache, _ := newTestService(t)
	resolver.provider.embed.Embedding = []float32{0.1, 0.2, 0.3}

	_, _, err := svc.EmbedQuery(context.Background(), "t1", "", "query")
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
	if cache.puts != 0 {
		t.Errorf("a wrong-size vector must not be cached, got %d puts", cache.puts)
	}
}

func TestEmbedQuery_ProviderError(t *testing.T) {
	svc, resolver, _, _ := newTestService(t)
	resolver.provider.embedErr = errors.New("down")

	_, _, err := svc.EmbedQuery(context.Background(), "t1", "", "query")
	if err == nil {
		t.Fatal("expected error")
	}
}
