// Package sqlite provides the public API for the SQLite durable tier.
// This package exposes the factory function while keeping implementation
// details internal.
package sqlite

import (
	"github.com/mesh-intelligence/ull/internal/sqlite"
	"github.com/mesh-intelligence/ull/pkg/types"
)

// DurableStore is a types.DurableStore with an Attach/Detach lifecycle.
type DurableStore interface {
	types.DurableStore
	Attach(config types.Config) error
	Detach() error
}

// NewStore creates a new SQLite durable store.
// The store is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	store := sqlite.NewStore()
//	err := store.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".ull-db",
//	})
//	defer store.Detach()
func NewStore() DurableStore {
	return sqlite.NewStore()
}
