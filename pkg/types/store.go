package types

import (
	"errors"
	"time"
)

// CacheEntry is one rendered string held by the translation cache.
type CacheEntry struct {
	Key      string
	Text     string
	StoredAt time.Time
}

// Fresh reports whether the entry is younger than ttl at now.
func (e CacheEntry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.StoredAt) < ttl
}

// DurableStore is the persistent key-value tier of the translation cache.
// Every operation may fail; callers treat failures as a miss or a no-op.
type DurableStore interface {
	// Put writes the entry as one atomic value, replacing any previous
	// entry for the same key.
	Put(entry CacheEntry) error

	// Get returns the entry for key, or ErrNotFound.
	Get(key string) (CacheEntry, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error

	// Count returns the number of stored entries.
	Count() (int, error)

	// Scan calls fn for every entry, oldest first. Iteration stops at the
	// first error returned by fn.
	Scan(fn func(CacheEntry) error) error

	// EvictOldest removes up to n entries with the oldest StoredAt and
	// returns the removed entries, oldest first.
	EvictOldest(n int) ([]CacheEntry, error)

	// Clear removes every entry.
	Clear() error
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)
