package events

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Store keeps the most recent run events in memory. Entries older than ttl
// are dropped on read; once limit entries are held the oldest is evicted.
type Store struct {
	mu    sync.Mutex
	ttl   time.Duration
	limit int
	data  map[string]Event
}

// NewStore creates a store. A zero ttl or limit disables that bound.
func NewStore(ttl time.Duration, limit int) *Store {
	return &Store{ttl: ttl, limit: limit, data: make(map[string]Event)}
}

// Record stores e, replacing any event with the same run id.
func (s *Store) Record(e Event) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[e.RunID] = e
	if s.limit > 0 && len(s.data) > s.limit {
		s.evictOldestLocked()
	}
	return nil
}

// Snapshot returns live events, oldest first.
func (s *Store) Snapshot(now time.Time) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(now, false)
}

// SnapshotRejected returns only events whose verdict was fail.
func (s *Store) SnapshotRejected(now time.Time) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(now, true)
}

func (s *Store) evictOldestLocked() {
	var oldest string
	var oldestTS time.Time
	for id, e := range s.data {
		if oldest == "" || e.TS.Before(oldestTS) {
			oldest, oldestTS = id, e.TS
		}
	}
	delete(s.data, oldest)
}

func (s *Store) snapshotLocked(now time.Time, rejectedOnly bool) []Event {
	if s.ttl > 0 {
		for id, e := range s.data {
			if now.Sub(e.TS) > s.ttl {
				delete(s.data, id)
			}
		}
	}
	result := make([]Event, 0, len(s.data))
	for _, e := range s.data {
		if rejectedOnly && !IsRejected(e.Verdict) {
			continue
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].TS.Equal(result[j].TS) {
			return result[i].RunID < result[j].RunID
		}
		return result[i].TS.Before(result[j].TS)
	})
	return result
}
