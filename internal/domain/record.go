package domain

// VectorRecord is one stored chunk embedding with its source text and
// user-supplied metadata.
type VectorRecord struct {
	ChunkID    string
	DocumentID string
	Vector     []float32
	Content    string
	Metadata   map[string]string
}
