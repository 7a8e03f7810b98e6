package domain

// ModelKind distinguishes remote-API providers from local in-network models.
type ModelKind string

// Model kinds.
const (
	ModelKindRemote ModelKind = "remote"
	ModelKindLocal  ModelKind = "local"
)

// ModelDescriptor identifies an embedding model and its declared vector dimension.
// The Name is canonical: aliases resolve to it so that cache keys and stored
// vectors stay consistent no matter which advertised name a caller used.
type ModelDescriptor struct {
	Name       string
	Kind       ModelKind
	Dimensions int
}
