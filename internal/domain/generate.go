package domain

// ItemStatus is the per-chunk outcome of a generation request.
type ItemStatus string

// RequestStatus is the aggregated outcome of a generation request.
type RequestStatus string

const (
	ItemSuccess ItemStatus = "SUCCESS"
	ItemFailed  ItemStatus = "FAILED"

	RequestSuccess RequestStatus = "SUCCESS"
	RequestPartial RequestStatus = "PARTIAL"
	RequestFailed  RequestStatus = "FAILED"
)

// GenerateRequest asks for embeddings of a document's chunks.
// ChunkIDs is optional; missing IDs are generated. When present it must
// be the same length as Texts.
type GenerateRequest struct {
	TenantID   string
	DocumentID string
	Texts      []string
	ChunkIDs   []string
	ModelName  string
}

// ItemResult is the outcome for a single chunk, in request order.
type ItemResult struct {
	ChunkID   string
	Embedding []float32
	Status    ItemStatus
	Error     string
	Cached    bool
}

// GenerateResponse carries per-item results plus the aggregate status and
// the canonical name of the model that actually served the request.
type GenerateResponse struct {
	Status      RequestStatus
	ModelName   string
	Items       []ItemResult
	TotalTokens int
}

// Aggregate derives the request status from item outcomes.
func Aggregate(items []ItemResult) RequestStatus {
	failed := 0
	for _, it := range items {
		if it.Status == ItemFailed {
			failed++
		}
	}
	switch {
	case failed == 0:
		return RequestSuccess
	case failed == len(items):
		return RequestFailed
	default:
		return RequestPartial
	}
}
