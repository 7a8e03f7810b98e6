package domain

// SearchRequest is a similarity query over a tenant's stored vectors.
// Fields are exported with json tags so a cached result round-trips
// byte-for-byte through the response cache.
type SearchRequest struct {
	TenantID        string            `json:"tenantId"`
	Query           string            `json:"query"`
	TopK            int               `json:"topK"`
	Threshold       float64           `json:"threshold"`
	ModelName       string            `json:"modelName,omitempty"`
	DocumentIDs     []string          `json:"documentIds,omitempty"`
	Filters         map[string]string `json:"filters,omitempty"`
	IncludeContent  bool              `json:"includeContent"`
	IncludeMetadata bool              `json:"includeMetadata"`
}

// SearchHit is a single ranked match.
type SearchHit struct {
	ChunkID    string            `json:"chunkId"`
	DocumentID string            `json:"documentId"`
	Score      float64           `json:"score"`
	Content    string            `json:"content,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SearchResult is the ranked hit list plus bookkeeping about the scan.
type SearchResult struct {
	Hits            []SearchHit `json:"hits"`
	ModelName       string      `json:"modelName"`
	TotalCandidates int         `json:"totalCandidates"`
	TookMillis      int64       `json:"tookMillis"`
	Cached          bool        `json:"cached"`
}
