package rate

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process default store: a key→timestamps map with a
// single mutex. State does not survive restarts, which is acceptable for
// an advisory limit. Sweep must be called periodically to bound memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string][]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]time.Time)}
}

func (s *MemoryStore) Consume(_ context.Context, key string, now time.Time, window time.Duration, limit int) (bool, int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-window)
	retained := s.entries[key][:0]
	for _, ts := range s.entries[key] {
		if ts.After(cutoff) {
			retained = append(retained, ts)
		}
	}

	if len(retained) >= limit {
		s.entries[key] = retained
		return false, len(retained), retained[0], nil
	}

	retained = append(retained, now)
	s.entries[key] = retained
	return true, len(retained), retained[0], nil
}

// Sweep drops keys whose every timestamp has left the window and returns
// the number of keys removed.
func (s *MemoryStore) Sweep(now time.Time, window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-window)
	removed := 0
	for key, stamps := range s.entries {
		live := false
		for _, ts := range stamps {
			if ts.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(s.entries, key)
			removed++
		}
	}

	return removed
}

// Len reports the number of tracked keys, for tests and sweep metrics.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
