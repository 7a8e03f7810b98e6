// Package vectorstore persists chunk embeddings as Redis hashes and runs
// in-process cosine similarity search over them. Keys carry tenant, model,
// document and chunk so deletion scopes map to key patterns.
package vectorstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragstore/internal/db"
	"github.com/kailas-cloud/ragstore/internal/domain"
)

// Hash field names for one stored chunk.
const (
	fieldVector     = "vector"
	fieldContent    = "content"
	fieldDocumentID = "document_id"
	fieldChunkID    = "chunk_id"
	fieldMetadata   = "metadata"
)

// store is the consumer interface for the vector repository (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	DelMulti(ctx context.Context, keys []string) (int, error)
}

// SearchOptions narrows and bounds a similarity search.
type SearchOptions struct {
	TopK        int
	Threshold   float64
	DocumentIDs []string
	Filters     map[string]string
}

// Repo stores and searches tenant vectors.
type Repo struct {
	store  store
	prefix string
	logger *zap.Logger
}

// New creates a vector repository with the given key prefix.
func New(s store, prefix string, logger *zap.Logger) *Repo {
	return &Repo{store: s, prefix: prefix, logger: logger}
}

// Store persists records in one pipelined round-trip. Every vector must
// match the model's declared dimension; a mismatch fails the whole batch
// before anything is written.
func (r *Repo) Store(ctx context.Context, tenantID, model string, dims int, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, 0, len(records))
	for _, rec := range records {
		if len(rec.Vector) != dims {
			return fmt.Errorf("chunk %s: %w: got %d, model expects %d",
				rec.ChunkID, domain.ErrVectorDimMismatch, len(rec.Vector), dims)
		}
		fields := map[string]string{
			fieldVector:     string(vectorToBytes(rec.Vector)),
			fieldContent:    rec.Content,
			fieldDocumentID: rec.DocumentID,
			fieldChunkID:    rec.ChunkID,
		}
		if len(rec.Metadata) > 0 {
			meta, err := json.Marshal(rec.Metadata)
			if err != nil {
				return fmt.Errorf("marshal metadata for chunk %s: %w", rec.ChunkID, err)
			}
			fields[fieldMetadata] = string(meta)
		}
		items = append(items, db.HashSetItem{
			Key:    r.chunkKey(tenantID, model, rec.DocumentID, rec.ChunkID),
			Fields: fields,
		})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("store vectors for tenant %s: %w", tenantID, err)
	}
	return nil
}

// Search scans the tenant+model keyspace, scores every candidate against
// the query vector and returns hits above the threshold, ranked by score
// descending. Equal scores keep lexicographic key order, so results are
// stable across calls. A stored vector whose dimension differs from the
// query aborts the search: it means the keyspace holds vectors from a
// different model and silently skipping them would hide the corruption.
func (r *Repo) Search(ctx context.Context, tenantID, model string, query []float32, opts SearchOptions) ([]domain.SearchHit, int, error) {
	keys, err := r.candidateKeys(ctx, tenantID, model, opts.DocumentIDs)
	if err != nil {
		return nil, 0, err
	}
	if len(keys) == 0 {
		return []domain.SearchHit{}, 0, nil
	}

	// SCAN order is unspecified; fix it so ties break the same way every time.
	sort.Strings(keys)

	rows, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, 0, fmt.Errorf("load candidates for tenant %s: %w", tenantID, err)
	}

	hits := make([]domain.SearchHit, 0, len(rows))
	candidates := 0
	for i, row := range rows {
		if len(row) == 0 {
			continue // expired or deleted between SCAN and HGETALL
		}
		candidates++

		vec, err := bytesToVector([]byte(row[fieldVector]))
		if err != nil {
			return nil, 0, fmt.Errorf("decode vector at %s: %w", keys[i], err)
		}
		score, err := domain.Cosine(query, vec)
		if err != nil {
			return nil, 0, fmt.Errorf("score %s: %w", keys[i], err)
		}
		if score < opts.Threshold {
			continue
		}
		if !matchesFilters(row, opts.Filters) {
			continue
		}

		hit := domain.SearchHit{
			ChunkID:    row[fieldChunkID],
			DocumentID: row[fieldDocumentID],
			Score:      score,
			Content:    row[fieldContent],
		}
		if meta, ok := row[fieldMetadata]; ok && meta != "" {
			if err := json.Unmarshal([]byte(meta), &hit.Metadata); err != nil {
				r.logger.Warn("Failed to parse chunk metadata", zap.String("key", keys[i]), zap.Error(err))
			}
		}
		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if opts.TopK > 0 && len(hits) > opts.TopK {
		hits = hits[:opts.TopK]
	}
	return hits, candidates, nil
}

// DeleteTenant removes every vector a tenant has, across all models.
func (r *Repo) DeleteTenant(ctx context.Context, tenantID string) (int, error) {
	return r.deleteByPattern(ctx, r.prefix+"tenant:"+tenantID+":*")
}

// DeleteTenantModel removes a tenant's vectors for one model.
func (r *Repo) DeleteTenantModel(ctx context.Context, tenantID, model string) (int, error) {
	return r.deleteByPattern(ctx, r.prefix+"tenant:"+tenantID+":model:"+model+":*")
}

// DeleteTenantDocument removes one document's vectors across all models.
func (r *Repo) DeleteTenantDocument(ctx context.Context, tenantID, documentID string) (int, error) {
	return r.deleteByPattern(ctx, r.prefix+"tenant:"+tenantID+":model:*:doc:"+documentID+":chunk:*")
}

// Count returns the total number of stored chunks across all tenants.
func (r *Repo) Count(ctx context.Context) (int, error) {
	keys, err := r.store.Scan(ctx, r.prefix+"tenant:*")
	if err != nil {
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	return len(keys), nil
}

func (r *Repo) deleteByPattern(ctx context.Context, pattern string) (int, error) {
	keys, err := r.store.Scan(ctx, pattern)
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", pattern, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	removed, err := r.store.DelMulti(ctx, keys)
	if err != nil {
		return removed, fmt.Errorf("delete %s: %w", pattern, err)
	}
	return removed, nil
}

func (r *Repo) candidateKeys(ctx context.Context, tenantID, model string, documentIDs []string) ([]string, error) {
	base := r.prefix + "tenant:" + tenantID + ":model:" + model + ":doc:"
	if len(documentIDs) == 0 {
		keys, err := r.store.Scan(ctx, base+"*")
		if err != nil {
			return nil, fmt.Errorf("scan tenant %s: %w", tenantID, err)
		}
		return keys, nil
	}

	var keys []string
	for _, docID := range documentIDs {
		docKeys, err := r.store.Scan(ctx, base+docID+":chunk:*")
		if err != nil {
			return nil, fmt.Errorf("scan document %s: %w", docID, err)
		}
		keys = append(keys, docKeys...)
	}
	return keys, nil
}

func (r *Repo) chunkKey(tenantID, model, documentID, chunkID string) string {
	return r.prefix + "tenant:" + tenantID + ":model:" + model + ":doc:" + documentID + ":chunk:" + chunkID
}

// matchesFilters requires every filter key to be present in the chunk
// metadata with an exactly equal value.
func matchesFilters(row map[string]string, filters map[string]string) bool {
	if len(filters) == 0 {
		return true
	}
	meta := map[string]string{}
	if raw, ok := row[fieldMetadata]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return false
		}
	}
	for k, want := range filters {
		if meta[k] != want {
			return false
		}
	}
	return true
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
