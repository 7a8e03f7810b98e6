package resilience

import (
	"context"

	"github.com/kailas-cloud/ragstore/internal/db"
)

// vectorStore is the subset of db.Store the vector repository talks to.
type vectorStore interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	DelMulti(ctx context.Context, keys []string) (int, error)
}

// GuardedStore runs vector-store traffic through a Guard. Writes are
// idempotent hash upserts, so retrying them is safe.
type GuardedStore struct {
	inner vectorStore
	guard *Guard
}

// NewStore wraps a store with retry and circuit breaking.
func NewStore(inner vectorStore, guard *Guard) *GuardedStore {
	return &GuardedStore{inner: inner, guard: guard}
}

func (s *GuardedStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	_, err := Do(ctx, s.guard, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.inner.HSetMulti(ctx, items)
	})
	return err
}

func (s *GuardedStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	return Do(ctx, s.guard, func(ctx context.Context) ([]map[string]string, error) {
		return s.inner.HGetAllMulti(ctx, keys)
	})
}

func (s *GuardedStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	return Do(ctx, s.guard, func(ctx context.Context) ([]string, error) {
		return s.inner.Scan(ctx, pattern)
	})
}

func (s *GuardedStore) DelMulti(ctx context.Context, keys []string) (int, error) {
	return Do(ctx, s.guard, func(ctx context.Context) (int, error) {
		return s.inner.DelMulti(ctx, keys)
	})
}
