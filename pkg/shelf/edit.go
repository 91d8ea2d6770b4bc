package shelf

import (
	"fmt"
	"time"

	"github.com/mesh-intelligence/datashelf/internal/edit"
	"github.com/mesh-intelligence/datashelf/pkg/types"
)

// EditableSchema returns the edit form description for one snapshot:
// whether it accepts edits and, when a template is bound, its column
// rules in template order.
func (s *Service) EditableSchema(snapshotID string) (edit.Schema, error) {
	snap, err := s.getSnapshot(snapshotID)
	if err != nil {
		return edit.Schema{}, err
	}
	tpl, err := s.boundTemplate(snap)
	if err != nil {
		return edit.Schema{}, err
	}
	return edit.BuildSchema(snap, tpl), nil
}

// BatchEdit applies one concurrency-safe batch of deletes and upserts
// to an editable snapshot. Items failing template validation or the
// version check are reported per item; the rest of the batch proceeds.
// Editing an approved snapshot demotes it back to draft.
func (s *Service) BatchEdit(req types.BatchEditRequest) (types.BatchEditResult, error) {
	var result types.BatchEditResult

	snap, err := s.getSnapshot(req.SnapshotID)
	if err != nil {
		return result, err
	}
	container, err := s.getContainer(snap.ContainerID)
	if err != nil {
		return result, err
	}
	if !s.grant(req.Actor, container.Handle) {
		return result, types.ErrForbidden
	}
	if !snap.Editable() {
		return result, types.ErrForbidden
	}

	validator, err := s.boundValidator(snap)
	if err != nil {
		return result, err
	}

	// Validation happens before storage: rejected items never reach
	// the transaction, so a half-valid batch still saves its valid
	// items.
	forward := req
	if validator != nil {
		forward.Upserts = nil
		for _, up := range req.Upserts {
			if msgs := validator.ValidateRow(up.Data); len(msgs) > 0 {
				result.Errors = append(result.Errors, types.ItemError{ID: up.ID, Errors: msgs})
				continue
			}
			validator.NormalizeRow(up.Data)
			forward.Upserts = append(forward.Upserts, up)
		}
	}

	wasApproved := snap.Status == types.StatusApproved

	stored, err := s.store.ApplyBatch(forward)
	if err != nil {
		return result, err
	}
	result.SavedIDs = stored.SavedIDs
	result.Deleted = stored.Deleted
	result.Errors = append(result.Errors, stored.Errors...)

	// Journal on what the store actually changed, not on what the batch
	// asked for; deleting only absent ids leaves the snapshot approved.
	if wasApproved && (len(stored.SavedIDs) > 0 || stored.Deleted > 0) {
		s.journalStatusChange(container, snap.SnapshotID, req.Actor,
			types.StatusApproved, types.StatusDraft, "content edited")
	}
	return result, nil
}

// ImportRows ingests payloads into the period (handle, periodDate),
// creating the container and a draft snapshot when missing. With
// truncate set, existing rows are replaced rather than appended to.
// The upload is recorded in the change journal.
func (s *Service) ImportRows(handle string, periodDate time.Time, payloads []map[string]any, truncate bool, actor string) (*types.SnapshotRef, types.InsertResult, error) {
	var insert types.InsertResult

	if !s.grant(actor, handle) {
		return nil, insert, types.ErrForbidden
	}

	ref, err := s.resolver.ResolveOrCreate(handle, periodDate, "")
	if err != nil {
		return nil, insert, err
	}
	wasApproved := ref.Status == types.StatusApproved

	insert, err = s.store.InsertRows(ref.SnapshotID, payloads, truncate, actor)
	if err != nil {
		return nil, insert, err
	}

	if err := s.markContainerReady(ref.ContainerID); err != nil {
		return nil, insert, err
	}

	action := types.ActionUpload
	if truncate {
		action = types.ActionTruncateUpload
	}
	s.appendEvent(&types.Event{
		Actor:      actor,
		Handle:     handle,
		PeriodDate: ref.PeriodDate,
		SnapshotID: ref.SnapshotID,
		Action:     action,
		RowCount:   len(insert.RowIDs),
		Detail:     map[string]any{"deleted": insert.Deleted},
	})
	if wasApproved && (len(insert.RowIDs) > 0 || insert.Deleted > 0) {
		ref.Status = types.StatusDraft
		s.appendEvent(&types.Event{
			Actor:        actor,
			Handle:       handle,
			PeriodDate:   ref.PeriodDate,
			SnapshotID:   ref.SnapshotID,
			Action:       types.ActionStatusChange,
			StatusBefore: types.StatusApproved,
			StatusAfter:  types.StatusDraft,
			Detail:       map[string]any{"reason": "content uploaded"},
		})
	}
	return ref, insert, nil
}

// Approve transitions a draft snapshot to approved. It is the only
// manual status transition; anything else, including re-approving,
// fails with ErrInvalidTransition.
func (s *Service) Approve(snapshotID, actor string) error {
	return s.SetSnapshotStatus(snapshotID, types.StatusApproved, actor)
}

// SetSnapshotStatus requests a manual status transition. The status
// machine only ever accepts draft to approved here; demotion back to
// draft happens automatically on content changes and cannot be
// requested.
func (s *Service) SetSnapshotStatus(snapshotID, status, actor string) error {
	if !types.IsValidStatus(status) {
		return types.ErrInvalidRequest
	}
	if status != types.StatusApproved {
		return types.ErrInvalidTransition
	}
	snap, err := s.getSnapshot(snapshotID)
	if err != nil {
		return err
	}
	container, err := s.getContainer(snap.ContainerID)
	if err != nil {
		return err
	}
	if !s.grant(actor, container.Handle) {
		return types.ErrForbidden
	}

	if err := snap.Approve(); err != nil {
		return err
	}
	table, err := s.store.GetTable(types.SnapshotsTable)
	if err != nil {
		return err
	}
	if _, err := table.Set(snap.SnapshotID, snap); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	s.journalStatusChange(container, snap.SnapshotID, actor,
		types.StatusDraft, types.StatusApproved, "approved")
	return nil
}

// Journal lists a handle's change journal entries newest-first.
func (s *Service) Journal(handle string, limit int) ([]*types.Event, error) {
	if handle == "" {
		return nil, types.ErrInvalidRequest
	}
	table, err := s.store.GetTable(types.EventsTable)
	if err != nil {
		return nil, err
	}
	filter := map[string]any{"handle": handle}
	if limit > 0 {
		filter["limit"] = limit
	}
	items, err := table.Fetch(filter)
	if err != nil {
		return nil, fmt.Errorf("fetching journal: %w", err)
	}
	events := make([]*types.Event, 0, len(items))
	for _, item := range items {
		events = append(events, item.(*types.Event))
	}
	return events, nil
}

// boundTemplate loads the snapshot's bound template, or nil when the
// metadata binds none. A dangling binding is reported, not ignored.
func (s *Service) boundTemplate(snap *types.Snapshot) (*types.Template, error) {
	tplID := snap.TemplateID()
	if tplID == "" {
		return nil, nil
	}
	table, err := s.store.GetTable(types.TemplatesTable)
	if err != nil {
		return nil, err
	}
	item, err := table.Get(tplID)
	if err == types.ErrNotFound {
		return nil, types.ErrTemplateNotBound
	}
	if err != nil {
		return nil, err
	}
	return item.(*types.Template), nil
}

// boundValidator builds a validator from the snapshot's template, or
// nil when no template is bound.
func (s *Service) boundValidator(snap *types.Snapshot) (*edit.Validator, error) {
	tpl, err := s.boundTemplate(snap)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, nil
	}
	return edit.NewValidator(tpl)
}

// markContainerReady flips the container state to ready after a
// successful import.
func (s *Service) markContainerReady(containerID string) error {
	container, err := s.getContainer(containerID)
	if err != nil {
		return err
	}
	if container.State == types.ContainerStateReady {
		return nil
	}
	container.State = types.ContainerStateReady
	table, err := s.store.GetTable(types.ContainersTable)
	if err != nil {
		return err
	}
	if _, err := table.Set(container.ContainerID, container); err != nil {
		return fmt.Errorf("updating container state: %w", err)
	}
	return nil
}

// journalStatusChange appends a status-change journal entry.
func (s *Service) journalStatusChange(container *types.PeriodContainer, snapshotID, actor, before, after, reason string) {
	s.appendEvent(&types.Event{
		Actor:        actor,
		Handle:       container.Handle,
		PeriodDate:   container.PeriodDate,
		SnapshotID:   snapshotID,
		Action:       types.ActionStatusChange,
		StatusBefore: before,
		StatusAfter:  after,
		Detail:       map[string]any{"reason": reason},
	})
}

// appendEvent writes a journal entry. Journal failures are logged, not
// surfaced: the data mutation already committed and must not be
// reported as failed.
func (s *Service) appendEvent(e *types.Event) {
	table, err := s.store.GetTable(types.EventsTable)
	if err != nil {
		s.log.Errorw("journal append failed", "action", e.Action, "error", err)
		return
	}
	if _, err := table.Set("", e); err != nil {
		s.log.Errorw("journal append failed", "action", e.Action, "error", err)
	}
}
