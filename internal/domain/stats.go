package domain

import (
	"sync/atomic"
	"time"
)

// CacheStats is a point-in-time snapshot of cache effectiveness.
type CacheStats struct {
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	HitRatio    float64   `json:"hitRatio"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// StatsTracker counts cache hit/miss events. Safe for concurrent use.
type StatsTracker struct {
	hits    atomic.Int64
	misses  atomic.Int64
	updated atomic.Int64 // unix nanos
}

func (t *StatsTracker) Hit() {
	t.hits.Add(1)
	t.updated.Store(time.Now().UnixNano())
}

func (t *StatsTracker) Miss() {
	t.misses.Add(1)
	t.updated.Store(time.Now().UnixNano())
}

// Snapshot reads the counters. The ratio is 0 when nothing was counted yet.
func (t *StatsTracker) Snapshot() CacheStats {
	h := t.hits.Load()
	m := t.misses.Load()
	s := CacheStats{Hits: h, Misses: m}
	if h+m > 0 {
		s.HitRatio = float64(h) / float64(h+m)
	}
	if ns := t.updated.Load(); ns > 0 {
		s.LastUpdated = time.Unix(0, ns)
	}
	return s
}
