package search

import "sync"

// Store is an append-only list of document results.
//
// Records are kept in the order their documents were successfully opened,
// which depends on worker scheduling. It is neither the enumeration order
// nor stable across runs. Entries are never removed or reordered.
type Store struct {
	mu      sync.RWMutex
	records []*DocumentResult
}

func NewStore() *Store {
	return &Store{}
}

// Append publishes a record and returns its position.
func (s *Store) Append(r *DocumentResult) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, r)
	return len(s.records) - 1
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// Records returns the records appended so far. The slice is shared with the
// store up to its length and must not be modified.
func (s *Store) Records() []*DocumentResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.records[:len(s.records):len(s.records)]
}
