package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/ull/pkg/types"
)

// Put writes entry, replacing any previous value for its key. A refreshed
// key moves to the young end of the eviction order.
func (s *Store) Put(entry types.CacheEntry) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.conn()
	if err != nil {
		return err
	}
	// Delete then insert in one transaction so a rewritten key gets a new seq.
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin put: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM translations WHERE cache_key = ?", entry.Key); err != nil {
		return fmt.Errorf("put %s: %w", entry.Key, err)
	}
	if _, err := tx.Exec(
		"INSERT INTO translations (cache_key, text, stored_at) VALUES (?, ?, ?)",
		entry.Key, entry.Text, entry.StoredAt.UnixNano()); err != nil {
		return fmt.Errorf("put %s: %w", entry.Key, err)
	}
	return tx.Commit()
}

// Get returns the entry for key or types.ErrNotFound.
func (s *Store) Get(key string) (types.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.conn()
	if err != nil {
		return types.CacheEntry{}, err
	}

	var (
		e        types.CacheEntry
		storedAt int64
	)
	err = db.QueryRow(
		"SELECT cache_key, text, stored_at FROM translations WHERE cache_key = ?", key,
	).Scan(&e.Key, &e.Text, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.CacheEntry{}, types.ErrNotFound
	}
	if err != nil {
		return types.CacheEntry{}, fmt.Errorf("get %s: %w", key, err)
	}
	e.StoredAt = time.Unix(0, storedAt)
	return e, nil
}

// Delete removes key. Absent keys are not an error.
func (s *Store) Delete(key string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := db.Exec("DELETE FROM translations WHERE cache_key = ?", key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Count returns the number of stored entries.
func (s *Store) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM translations").Scan(&n); err != nil {
		return 0, fmt.Errorf("count translations: %w", err)
	}
	return n, nil
}

// Scan visits every entry ordered by (stored_at, seq). Rows are read in full
// before fn runs, so fn may call back into the store.
func (s *Store) Scan(fn func(types.CacheEntry) error) error {
	entries, err := s.readAll()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) readAll() ([]types.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query("SELECT cache_key, text, stored_at FROM translations ORDER BY stored_at, seq")
	if err != nil {
		return nil, fmt.Errorf("scan translations: %w", err)
	}
	defer rows.Close()

	var entries []types.CacheEntry
	for rows.Next() {
		var (
			e        types.CacheEntry
			storedAt int64
		)
		if err := rows.Scan(&e.Key, &e.Text, &storedAt); err != nil {
			return nil, fmt.Errorf("scanning translation: %w", err)
		}
		e.StoredAt = time.Unix(0, storedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// EvictOldest deletes up to n entries with the smallest (stored_at, seq)
// and returns them oldest first.
func (s *Store) EvictOldest(n int) ([]types.CacheEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin evict: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(
		"SELECT seq, cache_key, text, stored_at FROM translations ORDER BY stored_at, seq LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("select oldest: %w", err)
	}
	var (
		seqs    []int64
		removed []types.CacheEntry
	)
	for rows.Next() {
		var (
			seq      int64
			e        types.CacheEntry
			storedAt int64
		)
		if err := rows.Scan(&seq, &e.Key, &e.Text, &storedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning oldest: %w", err)
		}
		e.StoredAt = time.Unix(0, storedAt)
		seqs = append(seqs, seq)
		removed = append(removed, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, seq := range seqs {
		if _, err := tx.Exec("DELETE FROM translations WHERE seq = ?", seq); err != nil {
			return nil, fmt.Errorf("evict oldest: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit evict: %w", err)
	}
	return removed, nil
}

// Clear removes every entry.
func (s *Store) Clear() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := db.Exec("DELETE FROM translations"); err != nil {
		return fmt.Errorf("clear translations: %w", err)
	}
	return nil
}

var _ types.DurableStore = (*Store)(nil)
