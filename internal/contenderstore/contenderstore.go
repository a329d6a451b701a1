// Package contenderstore implements ContenderStore (spec §4.3): a bounded
// top-N table of contenders ordered by (aggregate_score desc, pass_count
// desc, sequence asc).
package contenderstore

import (
	"sort"
	"sync"

	"github.com/kestrelsec/munge/internal/model"
)

// Store is a bounded, thread-safe top-N contender table.
type Store struct {
	mu       sync.Mutex
	capacity int
	items    []model.Contender // kept sorted ascending by Less (worst first) for O(1) eviction
}

// New creates a Store bounded to capacity entries (spec's DesiredContenders,
// default 1000).
func New(capacity int) *Store {
	return &Store{capacity: capacity}
}

// Offer inserts c if it beats the current minimum or there is free capacity.
// A duplicate sequence is replaced only if the new score strictly exceeds
// the existing one (spec §3).
func (s *Store) Offer(c model.Contender) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.items {
		if sameSequence(existing.Sequence, c.Sequence) {
			if c.AggregateScore > existing.AggregateScore {
				s.items[i] = c
				s.resort()
			}

			return
		}
	}

	if len(s.items) < s.capacity {
		s.items = append(s.items, c)
		s.resort()

		return
	}

	// At capacity: only accept if c beats the current worst (items[0] after sort).
	if len(s.items) == 0 {
		return
	}

	worst := s.items[0]
	if c.Less(worst) {
		s.items[0] = c
		s.resort()
	}
}

// resort keeps items ascending by the spec ordering (worst at index 0) so
// eviction is O(1) at the cost of an O(n log n) re-sort per insert. Bounded
// by DesiredContenders (default 1000), this is acceptable for a search loop
// that is itself CPU-bound on cipher/analyzer work per insert.
func (s *Store) resort() {
	sort.Slice(s.items, func(i, j int) bool {
		return s.items[j].Less(s.items[i]) // ascending: worst first
	})
}

func sameSequence(a, b []uint8) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// Snapshot returns a copy of all contenders, sorted descending by score
// (best first).
func (s *Store) Snapshot() []model.Contender {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Contender, len(s.items))

	for i, c := range s.items {
		out[len(s.items)-1-i] = c
	}

	return out
}

// Clear empties the store.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
}

// Len returns the current number of contenders.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.items)
}
