// Package sqlite implements the SQLite storage backend for datashelf.
package sqlite

// Schema DDL for all tables. The SQLite file is the durable store, so
// every statement is idempotent across attaches.
const (
	createContainers = `CREATE TABLE IF NOT EXISTS containers (
    container_id TEXT PRIMARY KEY,
    handle TEXT NOT NULL,
    period_date TEXT NOT NULL,
    state TEXT NOT NULL,
    label TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);`

	createSnapshots = `CREATE TABLE IF NOT EXISTS snapshots (
    snapshot_id TEXT PRIMARY KEY,
    container_id TEXT NOT NULL,
    name TEXT NOT NULL,
    status TEXT NOT NULL,
    version INTEGER NOT NULL,
    meta TEXT NOT NULL,
    created_at TEXT NOT NULL,
    FOREIGN KEY (container_id) REFERENCES containers(container_id)
);`

	createRows = `CREATE TABLE IF NOT EXISTS rows (
    row_id INTEGER PRIMARY KEY AUTOINCREMENT,
    snapshot_id TEXT NOT NULL,
    data TEXT NOT NULL,
    imported_at TEXT NOT NULL,
    FOREIGN KEY (snapshot_id) REFERENCES snapshots(snapshot_id)
);`

	createRevisions = `CREATE TABLE IF NOT EXISTS revisions (
    row_id INTEGER NOT NULL,
    version INTEGER NOT NULL,
    data_before TEXT NOT NULL,
    data_after TEXT NOT NULL,
    actor TEXT NOT NULL DEFAULT '',
    changed_at TEXT NOT NULL,
    PRIMARY KEY (row_id, version),
    FOREIGN KEY (row_id) REFERENCES rows(row_id)
);`

	createTemplates = `CREATE TABLE IF NOT EXISTS templates (
    template_id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    description TEXT,
    columns TEXT NOT NULL,
    created_at TEXT NOT NULL
);`

	createEvents = `CREATE TABLE IF NOT EXISTS events (
    event_id TEXT PRIMARY KEY,
    actor TEXT NOT NULL DEFAULT '',
    handle TEXT NOT NULL,
    period_date TEXT NOT NULL DEFAULT '',
    snapshot_id TEXT NOT NULL DEFAULT '',
    action TEXT NOT NULL,
    row_count INTEGER NOT NULL DEFAULT 0,
    status_before TEXT NOT NULL DEFAULT '',
    status_after TEXT NOT NULL DEFAULT '',
    detail TEXT NOT NULL,
    created_at TEXT NOT NULL
);`
)

// Index DDL for common queries. The unique (handle, period_date) index
// is the creation guard for period containers: a concurrent duplicate
// create fails the insert and is retried as a fetch.
const (
	idxContainersHandlePeriod = `CREATE UNIQUE INDEX IF NOT EXISTS idx_containers_handle_period ON containers(handle, period_date);`
	idxContainersHandle       = `CREATE INDEX IF NOT EXISTS idx_containers_handle ON containers(handle);`
	idxSnapshotsContainer     = `CREATE INDEX IF NOT EXISTS idx_snapshots_container ON snapshots(container_id);`
	idxSnapshotsStatus        = `CREATE INDEX IF NOT EXISTS idx_snapshots_status ON snapshots(container_id, status);`
	idxRowsSnapshot           = `CREATE INDEX IF NOT EXISTS idx_rows_snapshot ON rows(snapshot_id);`
	idxRevisionsChanged       = `CREATE INDEX IF NOT EXISTS idx_revisions_changed ON revisions(changed_at);`
	idxEventsHandle           = `CREATE INDEX IF NOT EXISTS idx_events_handle ON events(handle, created_at);`
	idxEventsAction           = `CREATE INDEX IF NOT EXISTS idx_events_action ON events(action, created_at);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createContainers,
	createSnapshots,
	createRows,
	createRevisions,
	createTemplates,
	createEvents,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxContainersHandlePeriod,
	idxContainersHandle,
	idxSnapshotsContainer,
	idxSnapshotsStatus,
	idxRowsSnapshot,
	idxRevisionsChanged,
	idxEventsHandle,
	idxEventsAction,
}
