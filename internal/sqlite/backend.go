// Package sqlite implements the durable tier of the translation cache on
// SQLite. The database file survives process restarts. A write replaces its
// key in one transaction, deleting the old row and inserting a new one so a
// rewritten key moves to the young end of the eviction order.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/ull/pkg/types"
)

// DBFileName is the database file created under Config.DataDir.
const DBFileName = "translations.db"

// Store implements types.DurableStore using SQLite.
type Store struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
}

// NewStore creates a detached SQLite store. Call Attach before use.
func NewStore() *Store {
	return &Store{}
}

// Attach opens (or creates) the database under config.DataDir and applies
// the schema. Existing entries are kept.
// Returns ErrAlreadyAttached if already attached.
func (s *Store) Attach(config types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, DBFileName))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	// A single connection serializes writers; SQLite allows one at a time anyway.
	db.SetMaxOpenConns(1)

	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("apply %q: %w", stmt, err)
		}
	}
	for _, stmt := range schemaDDL {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	s.db = db
	s.config = config
	s.attached = true
	return nil
}

// Detach closes the database. Detach is idempotent; after Detach every
// operation returns ErrStoreDetached.
func (s *Store) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return nil
	}
	s.attached = false
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// Attached reports whether the store is usable.
func (s *Store) Attached() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attached
}

// conn returns the open database or ErrStoreDetached. The caller must hold s.mu.
func (s *Store) conn() (*sql.DB, error) {
	if !s.attached || s.db == nil {
		return nil, types.ErrStoreDetached
	}
	return s.db, nil
}
