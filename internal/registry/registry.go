// Package registry maps model names and aliases to embedding providers.
// Unknown or empty names resolve to the configured default so the service
// keeps answering when callers send stale model names.
package registry

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragstore/internal/domain"
)

// Provider is the full embedding contract a registered model must satisfy.
type Provider interface {
	domain.Embedder
	domain.BatchEmbedder
	domain.HealthChecker
}

// Entry is one registered model with its provider and advertised aliases.
type Entry struct {
	Descriptor domain.ModelDescriptor
	Provider   Provider
	Aliases    []string
}

type binding struct {
	provider   Provider
	descriptor domain.ModelDescriptor
}

// Registry resolves model names to providers. Immutable after New.
type Registry struct {
	byName      map[string]binding
	defaultName string
	log         *zap.Logger
}

// New builds a registry from entries. The default model must be one of the
// canonical entry names, otherwise configuration is broken and startup fails.
func New(entries []Entry, defaultName string, log *zap.Logger) (*Registry, error) {
	byName := make(map[string]binding, len(entries))
	for _, e := range entries {
		if e.Descriptor.Name == "" {
			return nil, fmt.Errorf("model entry with empty name")
		}
		if e.Provider == nil {
			return nil, fmt.Errorf("model %q has no provider", e.Descriptor.Name)
		}
		b := binding{provider: e.Provider, descriptor: e.Descriptor}
		if _, dup := byName[e.Descriptor.Name]; dup {
			return nil, fmt.Errorf("duplicate model name %q", e.Descriptor.Name)
		}
		byName[e.Descriptor.Name] = b
		for _, alias := range e.Aliases {
			if _, dup := byName[alias]; dup {
				return nil, fmt.Errorf("duplicate model alias %q", alias)
			}
			byName[alias] = b
		}
	}

	if _, ok := byName[defaultName]; !ok {
		return nil, fmt.Errorf("default model %q: %w", defaultName, domain.ErrNoDefaultModel)
	}

	return &Registry{byName: byName, defaultName: defaultName, log: log}, nil
}

// Resolve returns the provider and canonical descriptor for a model name.
// Empty or unknown names fall back to the default model. The returned
// descriptor always carries the canonical name, so cache keys and storage
// keys stay stable regardless of which alias the caller used.
func (r *Registry) Resolve(name string) (Provider, domain.ModelDescriptor) {
	if name == "" {
		b := r.byName[r.defaultName]
		return b.provider, b.descriptor
	}
	b, ok := r.byName[name]
	if !ok {
		r.log.Warn("unknown model, falling back to default",
			zap.String("requested", name),
			zap.String("default", r.defaultName))
		b = r.byName[r.defaultName]
	}
	return b.provider, b.descriptor
}

// Has reports whether a name or alias is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// DefaultName returns the canonical name of the default model.
func (r *Registry) DefaultName() string {
	return r.byName[r.defaultName].descriptor.Name
}

// Models lists the canonical descriptors, sorted by name.
func (r *Registry) Models() []domain.ModelDescriptor {
	seen := make(map[string]struct{}, len(r.byName))
	out := make([]domain.ModelDescriptor, 0, len(r.byName))
	for _, b := range r.byName {
		if _, dup := seen[b.descriptor.Name]; dup {
			continue
		}
		seen[b.descriptor.Name] = struct{}{}
		out = append(out, b.descriptor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
