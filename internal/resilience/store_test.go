package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/ragstore/internal/db"
	"github.com/kailas-cloud/ragstore/internal/domain"
)

type stubVectorStore struct {
	err   error
	keys  []string
	calls int
}

func (s *stubVectorStore) HSetMulti(_ context.Context, _ []db.HashSetItem) error {
	s.calls++
	return s.err
}

func (s *stubVectorStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return make([]map[string]string, len(keys)), nil
}

func (s *stubVectorStore) Scan(_ context.Context, _ string) ([]string, error) {
	s.calls++
	return s.keys, s.err
}

func (s *stubVectorStore) DelMulti(_ context.Context, keys []string) (int, error) {
	s.calls++
	return len(keys), s.err
}

func TestGuardedStore_PassesThrough(t *testing.T) {
	g := newTestGuard(t)
	inner := &stubVectorStore{keys: []string{"k1", "k2"}}
	s := NewStore(inner, g)
	ctx := context.Background()

	if err := s.HSetMulti(ctx, []db.HashSetItem{{Key: "k1"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err := s.HGetAllMulti(ctx, []string{"k1", "k2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("unexpected rows: %d", len(rows))
	}

	keys, err := s.Scan(ctx, "pattern:*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("unexpected keys: %v", keys)
	}

	n, err := s.DelMulti(ctx, []string{"k1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("unexpected delete count: %d", n)
	}
}

func TestGuardedStore_RetriesTransientErrors(t *testing.T) {
	g := newTestGuard(t)
	inner := &stubVectorStore{err: errors.New("connection reset")}
	s := NewStore(inner, g)

	if err := s.HSetMulti(context.Background(), nil); err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 3 {
		t.Errorf("expected MaxAttempts=3 attempts, got %d", inner.calls)
	}
}

func TestGuardedStore_FailsFastWhenOpen(t *testing.T) {
	g := newTestGuard(t)
	inner := &stubVectorStore{err: errors.New("down")}
	s := NewStore(inner, g)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _ = s.Scan(ctx, "k:*")
	}

	inner.calls = 0
	_, err := s.Scan(ctx, "k:*")
	if !errors.Is(err, domain.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if inner.calls != 0 {
		t.Errorf("open breaker must not reach the store, got %d calls", inner.calls)
	}
}
