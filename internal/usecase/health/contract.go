package health

import (
	"context"

	"github.com/kailas-cloud/ragstore/internal/domain"
	"github.com/kailas-cloud/ragstore/internal/registry"
)

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ModelRegistry lists registered models and resolves their providers.
type ModelRegistry interface {
	Models() []domain.ModelDescriptor
	Resolve(name string) (registry.Provider, domain.ModelDescriptor)
}
