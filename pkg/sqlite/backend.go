// Package sqlite provides the public API for the SQLite datashelf
// backend. It exposes the factory function while keeping implementation
// details internal.
package sqlite

import (
	"github.com/mesh-intelligence/datashelf/internal/sqlite"
	"github.com/mesh-intelligence/datashelf/pkg/types"
)

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	backend := sqlite.NewBackend()
//	err := backend.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".datashelf",
//	})
//	defer backend.Detach()
func NewBackend() types.RowStore {
	return sqlite.NewBackend()
}
