package domain

import "errors"

var (
	// ErrInvalidRequest signals a malformed or incomplete request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrVectorDimMismatch signals a vector dimension mismatch between
	// a query or stored vector and the model's declared dimension.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrNoDefaultModel signals that no default embedding model is configured.
	ErrNoDefaultModel = errors.New("no default embedding model configured")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrCircuitOpen signals a fail-fast rejection by an open circuit breaker.
	ErrCircuitOpen = errors.New("circuit breaker open")
)
