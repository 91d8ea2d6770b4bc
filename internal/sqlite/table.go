package sqlite

import (
	"errors"

	"github.com/mesh-intelligence/datashelf/pkg/types"
)

// errAppendOnly marks tables whose entries are never deleted: containers
// (the period axis must stay stable), revisions (the audit ledger), and
// events (the change journal).
var errAppendOnly = errors.New("entity is append-only")

// table implements types.Table for a single entity type. Each table
// knows its entity type and the backend it belongs to (for DB access
// and cross-table cascades).
type table struct {
	name    string   // Table name (e.g. "containers").
	backend *Backend // Parent backend for DB access.
}

func newTable(b *Backend, name string) *table {
	return &table{name: name, backend: b}
}

// Get retrieves an entity by ID.
// Returns ErrInvalidID if id is empty, ErrNotFound if not found.
func (t *table) Get(id string) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	t.backend.mu.RLock()
	defer t.backend.mu.RUnlock()

	if !t.backend.attached {
		return nil, types.ErrStoreDetached
	}

	switch t.name {
	case types.ContainersTable:
		return t.getContainer(id)
	case types.SnapshotsTable:
		return t.getSnapshot(id)
	case types.RowsTable:
		return t.getRow(id)
	case types.TemplatesTable:
		return t.getTemplate(id)
	case types.EventsTable:
		return t.getEvent(id)
	case types.RevisionsTable:
		// Revisions are keyed (row, version); fetch them by filter.
		return nil, types.ErrInvalidID
	default:
		return nil, types.ErrTableNotFound
	}
}

// Set creates or updates an entity. If id is empty, generates a new ID.
// Returns the entity ID and any error. Row updates are refused here:
// they must go through the batch-edit path so the revision ledger and
// version checks stay intact.
func (t *table) Set(id string, data any) (string, error) {
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()

	if !t.backend.attached {
		return "", types.ErrStoreDetached
	}

	switch t.name {
	case types.ContainersTable:
		return t.setContainer(id, data)
	case types.SnapshotsTable:
		return t.setSnapshot(id, data)
	case types.RowsTable:
		return t.setRow(id, data)
	case types.TemplatesTable:
		return t.setTemplate(id, data)
	case types.EventsTable:
		return t.setEvent(id, data)
	case types.RevisionsTable:
		return "", errAppendOnly
	default:
		return "", types.ErrTableNotFound
	}
}

// Delete removes an entity by ID with cascading deletes where
// appropriate. Containers, revisions, and events are append-only.
func (t *table) Delete(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()

	if !t.backend.attached {
		return types.ErrStoreDetached
	}

	switch t.name {
	case types.SnapshotsTable:
		return t.deleteSnapshot(id)
	case types.RowsTable:
		return t.deleteRow(id)
	case types.TemplatesTable:
		return t.deleteTemplate(id)
	case types.ContainersTable, types.RevisionsTable, types.EventsTable:
		return errAppendOnly
	default:
		return types.ErrTableNotFound
	}
}

// Fetch returns entities matching the filter. Empty filter matches all.
func (t *table) Fetch(filter map[string]any) ([]any, error) {
	t.backend.mu.RLock()
	defer t.backend.mu.RUnlock()

	if !t.backend.attached {
		return nil, types.ErrStoreDetached
	}

	switch t.name {
	case types.ContainersTable:
		return t.fetchContainers(filter)
	case types.SnapshotsTable:
		return t.fetchSnapshots(filter)
	case types.RowsTable:
		return t.fetchRows(filter)
	case types.RevisionsTable:
		return t.fetchRevisions(filter)
	case types.TemplatesTable:
		return t.fetchTemplates(filter)
	case types.EventsTable:
		return t.fetchEvents(filter)
	default:
		return nil, types.ErrTableNotFound
	}
}

// toInt converts various numeric types to int.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// toInt64 converts various numeric types to int64.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
