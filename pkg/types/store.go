package types

import "errors"

// Store defines the interface for backend-agnostic storage access.
// Callers attach to a backend, access tables by name, and detach when done.
type Store interface {
	// GetTable returns the Table for the given name.
	// Returns ErrTableNotFound if the name is not a standard table.
	GetTable(name string) (Table, error)

	// Attach connects the Store to the backend described by config.
	// Creates the DataDir if it does not exist. Returns ErrAlreadyAttached
	// if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, operations on tables return ErrStoreDetached.
	Detach() error
}

// RowStore extends Store with the transactional row mutations that the
// generic Table interface cannot express: batch edits with optimistic
// concurrency, and bulk imports with optional truncation. Both demote an
// approved snapshot back to draft in the same transaction as the writes.
type RowStore interface {
	Store

	// ApplyBatch applies deletes then upserts against one snapshot.
	// Item failures (validation upstream, version conflicts here) are
	// reported per item; they never abort the rest of the batch.
	ApplyBatch(req BatchEditRequest) (BatchEditResult, error)

	// InsertRows appends payloads as new rows of the snapshot. When
	// truncate is set, existing rows and their revisions are removed
	// first, and recreated rows restart their revision sequence at 1.
	InsertRows(snapshotID string, payloads []map[string]any, truncate bool, actor string) (InsertResult, error)
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
	ErrTableNotFound   = errors.New("table not found")
)

// Standard table names for Store.GetTable.
const (
	ContainersTable = "containers"
	SnapshotsTable  = "snapshots"
	RowsTable       = "rows"
	RevisionsTable  = "revisions"
	TemplatesTable  = "templates"
	EventsTable     = "events"
)

// StandardTableNames lists all standard table names for enumeration.
var StandardTableNames = []string{
	ContainersTable,
	SnapshotsTable,
	RowsTable,
	RevisionsTable,
	TemplatesTable,
	EventsTable,
}
