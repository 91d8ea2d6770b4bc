package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/datashelf/pkg/types"
)

// dbFileName is the SQLite database file created inside DataDir.
const dbFileName = "datashelf.db"

// Backend implements types.RowStore using SQLite as the durable store.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	tables   map[string]*table
	log      *zap.SugaredLogger

	// writeMu serializes write transactions; SQLite allows one writer
	// at a time and modernc returns busy errors instead of queueing.
	writeMu sync.Mutex

	// rowLocks guards the per-row critical section of batch edits:
	// read revision count, compare version, append revision.
	rowLocksMu sync.Mutex
	rowLocks   map[int64]*sync.Mutex
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{
		tables:   make(map[string]*table),
		rowLocks: make(map[int64]*sync.Mutex),
		log:      zap.S().Named("sqlite"),
	}
}

// GetTable returns a Table accessor for the specified table name.
// Returns ErrTableNotFound if the name is not recognized.
// Returns ErrStoreDetached if the backend is not attached.
func (b *Backend) GetTable(name string) (types.Table, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	t, ok := b.tables[name]
	if !ok {
		return nil, types.ErrTableNotFound
	}
	return t, nil
}

// Attach initializes the backend with the given configuration.
// Creates DataDir if it does not exist, opens or creates the database
// file, and applies the schema. Returns ErrAlreadyAttached if already
// attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
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
		return err
	}

	dbPath := filepath.Join(dataDir, dbFileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}

	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	for _, ddl := range indexDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("applying indexes: %w", err)
		}
	}

	b.db = db
	b.config = config
	b.attached = true

	b.tables[types.ContainersTable] = newTable(b, types.ContainersTable)
	b.tables[types.SnapshotsTable] = newTable(b, types.SnapshotsTable)
	b.tables[types.RowsTable] = newTable(b, types.RowsTable)
	b.tables[types.RevisionsTable] = newTable(b, types.RevisionsTable)
	b.tables[types.TemplatesTable] = newTable(b, types.TemplatesTable)
	b.tables[types.EventsTable] = newTable(b, types.EventsTable)

	b.log.Debugw("attached", "db", dbPath)
	return nil
}

// Detach releases all resources held by the backend. After Detach, all
// table operations return ErrStoreDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil // idempotent
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}

	b.attached = false
	b.tables = make(map[string]*table)
	b.rowLocks = make(map[int64]*sync.Mutex)

	b.log.Debug("detached")
	return nil
}

// rowLock returns the lock for one row id, creating it on first use.
// Locks are never removed while attached; a deleted row's lock is
// harmless and the registry resets on Detach.
func (b *Backend) rowLock(rowID int64) *sync.Mutex {
	b.rowLocksMu.Lock()
	defer b.rowLocksMu.Unlock()

	l, ok := b.rowLocks[rowID]
	if !ok {
		l = &sync.Mutex{}
		b.rowLocks[rowID] = l
	}
	return l
}

// newUUID generates a UUID v7 string. V7 ids sort by creation time, so
// "id DESC" orderings double as newest-first tie-breaks.
func newUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}
