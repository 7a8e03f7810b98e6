package vectorstore

import (
	"context"
	"sort"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragstore/internal/db"
)

// memStore is an in-memory hash store honoring glob-star SCAN patterns.
type memStore struct {
	hashes map[string]map[string]string

	hsetErr error
	scanErr error
}

func newMemStore() *memStore {
	return &memStore{hashes: map[string]map[string]string{}}
}

func (m *memStore) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	if m.hsetErr != nil {
		return m.hsetErr
	}
	for _, item := range items {
		fields := make(map[string]string, len(item.Fields))
		for k, v := range item.Fields {
			fields[k] = v
		}
		m.hashes[item.Key] = fields
	}
	return nil
}

func (m *memStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, key := range keys {
		out[i] = m.hashes[key] // nil map for missing keys, like an empty HGETALL
	}
	return out, nil
}

func (m *memStore) Scan(_ context.Context, pattern string) ([]string, error) {
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	var keys []string
	for key := range m.hashes {
		if globMatch(pattern, key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memStore) DelMulti(_ context.Context, keys []string) (int, error) {
	removed := 0
	for _, key := range keys {
		if _, ok := m.hashes[key]; ok {
			delete(m.hashes, key)
			removed++
		}
	}
	return removed, nil
}

// globMatch supports the '*' wildcard the repository uses in patterns.
func globMatch(pattern, s string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == s
	}
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	for i := 1; i < len(parts)-1; i++ {
		idx := strings.Index(s, parts[i])
		if idx < 0 {
			return false
		}
		s = s[idx+len(parts[i]):]
	}
	return strings.HasSuffix(s, parts[len(parts)-1])
}

func newTestRepo(t *testing.T) (*Repo, *memStore) {
	t.Helper()
	ms := newMemStore()
	return New(ms, "ragstore:", zap.NewNop()), ms
}
