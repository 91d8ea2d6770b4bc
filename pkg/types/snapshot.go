package types

import "time"

// Snapshot statuses. A snapshot is either a working draft or an approved,
// authoritative body of rows.
const (
	StatusDraft    = "draft"
	StatusApproved = "approved"
)

// Status filter value meaning "most recent regardless of status".
// The empty string is equivalent.
const StatusLatest = "latest"

// IsValidStatus reports whether s is a persistable snapshot status.
// StatusLatest is a query filter, not a stored status.
func IsValidStatus(s string) bool {
	return s == StatusDraft || s == StatusApproved
}

// Metadata keys recognized on snapshots.
const (
	MetaEditable   = "editable"
	MetaTemplateID = "template_id"
)

// Snapshot is one versioned, statused body of rows within a PeriodContainer.
// Version is caller-managed: it identifies an upload generation and is not
// advanced by row edits. Row-level versioning lives in the Revision ledger
// and is independent of this field.
type Snapshot struct {
	SnapshotID  string         // UUID v7, generated on creation.
	ContainerID string         // Owning PeriodContainer.
	Name        string         // Human-readable name.
	Status      string         // StatusDraft or StatusApproved.
	Version     int            // Caller-managed upload generation, starts at 1.
	Meta        map[string]any // Free-form metadata (editable flag, template binding).
	CreatedAt   time.Time      // Timestamp of creation.
}

// Editable reports whether the snapshot's metadata marks it editable.
func (s *Snapshot) Editable() bool {
	if s.Meta == nil {
		return false
	}
	v, ok := s.Meta[MetaEditable].(bool)
	return ok && v
}

// TemplateID returns the bound validation template id, or "" when none
// is bound.
func (s *Snapshot) TemplateID() string {
	if s.Meta == nil {
		return ""
	}
	id, _ := s.Meta[MetaTemplateID].(string)
	return id
}

// Approve transitions the snapshot from draft to approved. This is the
// only manual transition the status machine allows; every other request,
// including re-approving an approved snapshot, returns
// ErrInvalidTransition.
func (s *Snapshot) Approve() error {
	if s.Status != StatusDraft {
		return ErrInvalidTransition
	}
	s.Status = StatusApproved
	return nil
}

// Demote moves an approved snapshot back to draft. It is the automatic
// transition taken when snapshot content changes. Returns true when the
// status actually changed; a snapshot already in draft is unaffected.
func (s *Snapshot) Demote() bool {
	if s.Status != StatusApproved {
		return false
	}
	s.Status = StatusDraft
	return true
}
