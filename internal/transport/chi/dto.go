package chi

import "github.com/kailas-cloud/ragstore/internal/domain"

// errorCode is a machine-readable error discriminator in error responses.
type errorCode string

const (
	codeBadRequest           errorCode = "bad_request"
	codeValidationFailed     errorCode = "validation_failed"
	codeNotFound             errorCode = "not_found"
	codeVectorDimMismatch    errorCode = "vector_dim_mismatch"
	codeEmbeddingProviderErr errorCode = "embedding_provider_error"
	codeServiceUnavailable   errorCode = "service_unavailable"
	codeInternalError        errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

type generateRequest struct {
	TenantID          string   `json:"tenantId"`
	DocumentID        string   `json:"documentId"`
	Texts             []string `json:"texts"`
	ChunkIDs          []string `json:"chunkIds,omitempty"`
	ModelName         string   `json:"modelName,omitempty"`
	IncludeEmbeddings bool     `json:"includeEmbeddings,omitempty"`
}

type generateItem struct {
	ChunkID   string    `json:"chunkId"`
	Embedding []float32 `json:"embedding,omitempty"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Cached    bool      `json:"cached"`
}

type generateResponse struct {
	Status      string         `json:"status"`
	ModelName   string         `json:"modelName"`
	Items       []generateItem `json:"items"`
	TotalTokens int            `json:"totalTokens"`
}

func generateToDTO(resp *domain.GenerateResponse, includeEmbeddings bool) generateResponse {
	items := make([]generateItem, len(resp.Items))
	for i, it := range resp.Items {
		items[i] = generateItem{
			ChunkID: it.ChunkID,
			Status:  string(it.Status),
			Error:   it.Error,
			Cached:  it.Cached,
		}
		if includeEmbeddings {
			items[i].Embedding = it.Embedding
		}
	}
	return generateResponse{
		Status:      string(resp.Status),
		ModelName:   resp.ModelName,
		Items:       items,
		TotalTokens: resp.TotalTokens,
	}
}

type modelItem struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Dimensions int    `json:"dimensions"`
}

type modelsResponse struct {
	Models  []modelItem `json:"models"`
	Default string      `json:"default"`
}

type invalidateCacheResponse struct {
	Invalidated int `json:"invalidated"`
}
