package types

import "time"

// Row is one schema-less record within a Snapshot. Data keys are not
// declared anywhere; values are strings, numbers, bools, or nested
// structures as decoded from JSON. RowID is assigned by the store and
// increases monotonically with creation order; no two rows ever share one.
type Row struct {
	RowID      int64          // Monotonically increasing creation id.
	SnapshotID string         // Owning snapshot.
	Data       map[string]any // Arbitrary key/value payload.
	ImportedAt time.Time      // Timestamp of creation.
}

// Revision is one immutable audit record of a row mutation. Versions for
// a single row form the contiguous sequence 1..N; the row's current
// version is derived as (revision count + 1) and is never stored.
// Revisions are never edited or deleted while their row exists; deleting
// a row hard-deletes its revisions with it.
type Revision struct {
	RowID     int64          // Mutated row.
	Version   int            // Per-row sequence, starting at 1.
	Before    map[string]any // Payload prior to the mutation ({} for creation).
	After     map[string]any // Payload after the mutation.
	Actor     string         // Acting principal identity.
	ChangedAt time.Time      // Timestamp of the mutation.
}
