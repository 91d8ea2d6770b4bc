package types

import "time"

// Journal actions recorded in the change journal.
const (
	ActionUpload         = "upload"
	ActionTruncateUpload = "truncate_upload"
	ActionStatusChange   = "status_change"
)

// validActions is the set of recognized journal actions.
var validActions = map[string]bool{
	ActionUpload:         true,
	ActionTruncateUpload: true,
	ActionStatusChange:   true,
}

// IsValidAction reports whether a is a recognized journal action.
func IsValidAction(a string) bool {
	return validActions[a]
}

// Event is one append-only change journal entry. The journal records
// dataset-level activity (uploads, status changes); it is separate from
// the per-row Revision ledger and the two must not be conflated.
type Event struct {
	EventID      string         // UUID v7, generated on creation.
	Actor        string         // Acting principal identity.
	Handle       string         // Affected dataset family.
	PeriodDate   time.Time      // Affected business date (zero when unknown).
	SnapshotID   string         // Affected snapshot, "" when not applicable.
	Action       string         // One of the Action constants.
	RowCount     int            // Rows written or present after the action.
	StatusBefore string         // Snapshot status before, "" when not a status change.
	StatusAfter  string         // Snapshot status after, "" when not a status change.
	Detail       map[string]any // Free-form context (sheet hints, reasons).
	CreatedAt    time.Time      // Timestamp of the event.
}
