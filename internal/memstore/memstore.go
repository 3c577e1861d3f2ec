// Package memstore implements types.DurableStore in process memory. It backs
// the "memory" backend and serves as the fake durable tier in tests.
package memstore

import (
	"sort"
	"sync"

	"github.com/mesh-intelligence/ull/pkg/types"
)

type record struct {
	entry types.CacheEntry
	seq   uint64
}

// Store is a mutex-guarded map ordered by (StoredAt, insertion sequence).
type Store struct {
	mu      sync.Mutex
	records map[string]record
	seq     uint64
}

// New returns an empty Store.
func New() *Store {
	return &Store{records: make(map[string]record)}
}

// Put stores entry, replacing any previous value for its key.
func (s *Store) Put(entry types.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.records[entry.Key] = record{entry: entry, seq: s.seq}
	return nil
}

// Get returns the entry for key or types.ErrNotFound.
func (s *Store) Get(key string) (types.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[key]
	if !ok {
		return types.CacheEntry{}, types.ErrNotFound
	}
	return r.entry, nil
}

// Delete removes key.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// Count returns the number of entries.
func (s *Store) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records), nil
}

// Scan visits entries oldest first.
func (s *Store) Scan(fn func(types.CacheEntry) error) error {
	for _, r := range s.sorted() {
		if err := fn(r.entry); err != nil {
			return err
		}
	}
	return nil
}

// EvictOldest removes up to n of the oldest entries.
func (s *Store) EvictOldest(n int) ([]types.CacheEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ordered := s.sortedLocked()
	if n > len(ordered) {
		n = len(ordered)
	}
	removed := make([]types.CacheEntry, 0, n)
	for _, r := range ordered[:n] {
		delete(s.records, r.entry.Key)
		removed = append(removed, r.entry)
	}
	return removed, nil
}

// Clear removes every entry.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]record)
	return nil
}

func (s *Store) sorted() []record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

func (s *Store) sortedLocked() []record {
	out := make([]record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].entry.StoredAt.Equal(out[j].entry.StoredAt) {
			return out[i].entry.StoredAt.Before(out[j].entry.StoredAt)
		}
		return out[i].seq < out[j].seq
	})
	return out
}

var _ types.DurableStore = (*Store)(nil)
