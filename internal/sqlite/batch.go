package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mesh-intelligence/datashelf/pkg/types"
)

// Transactional row mutations. Both entry points run under writeMu (one
// write transaction at a time) and demote an approved snapshot back to
// draft inside the same transaction as the row writes, so a reader can
// never observe edited rows under an approved snapshot.

// ApplyBatch applies req's deletes then upserts against one snapshot.
// Version conflicts and missing rows are reported per item and do not
// abort the batch. Deleting an already-absent row is a no-op.
func (b *Backend) ApplyBatch(req types.BatchEditRequest) (types.BatchEditResult, error) {
	var result types.BatchEditResult

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return result, types.ErrStoreDetached
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if err := b.snapshotExists(req.SnapshotID); err != nil {
		return result, err
	}

	tx, err := b.db.Begin()
	if err != nil {
		return result, fmt.Errorf("beginning batch edit: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	// Deletes run before upserts so a delete-and-recreate in one batch
	// produces a fresh row with a fresh revision sequence.
	for _, id := range req.DeleteIDs {
		n, err := deleteRowTx(tx, req.SnapshotID, id)
		if err != nil {
			return result, err
		}
		result.Deleted += n
	}

	for _, up := range req.Upserts {
		if up.ID == 0 {
			rowID, err := insertRowTx(tx, &types.Row{
				SnapshotID: req.SnapshotID,
				Data:       up.Data,
				ImportedAt: now,
			}, req.Actor)
			if err != nil {
				return result, err
			}
			result.SavedIDs = append(result.SavedIDs, rowID)
			continue
		}

		itemErr, err := b.updateRowTx(tx, req.SnapshotID, up, req.Actor, now)
		if err != nil {
			return result, err
		}
		if itemErr != nil {
			result.Errors = append(result.Errors, *itemErr)
			continue
		}
		result.SavedIDs = append(result.SavedIDs, up.ID)
	}

	// Demote only when content actually changed; a batch of rejected
	// items leaves an approved snapshot approved.
	if result.Deleted > 0 || len(result.SavedIDs) > 0 {
		if err := demoteSnapshotTx(tx, req.SnapshotID); err != nil {
			return result, err
		}
	}
	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("committing batch edit: %w", err)
	}
	return result, nil
}

// updateRowTx performs the per-row critical section of one upsert: read
// the current payload, derive the current version from the revision
// count, compare with the submitted version, and append the next
// revision. A conflict is an item error, not a transaction error.
func (b *Backend) updateRowTx(tx *sql.Tx, snapshotID string, up types.RowUpsert, actor string, now time.Time) (*types.ItemError, error) {
	lock := b.rowLock(up.ID)
	lock.Lock()
	defer lock.Unlock()

	var before string
	err := tx.QueryRow(
		"SELECT data FROM rows WHERE row_id = ? AND snapshot_id = ?",
		up.ID, snapshotID).Scan(&before)
	if err == sql.ErrNoRows {
		return &types.ItemError{ID: up.ID, Errors: []string{"row not found"}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading row %d: %w", up.ID, err)
	}

	var count int
	err = tx.QueryRow(
		"SELECT COUNT(*) FROM revisions WHERE row_id = ?", up.ID).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("counting revisions for row %d: %w", up.ID, err)
	}
	current := count + 1
	if up.Version != current {
		return &types.ItemError{
			ID:     up.ID,
			Errors: []string{fmt.Sprintf("%v: submitted %d, current %d", types.ErrVersionConflict, up.Version, current)},
		}, nil
	}

	after, err := json.Marshal(up.Data)
	if err != nil {
		return nil, fmt.Errorf("encoding row %d data: %w", up.ID, err)
	}
	if err := insertRevisionTx(tx, up.ID, current, before, string(after), actor, now); err != nil {
		return nil, err
	}
	if _, err := tx.Exec("UPDATE rows SET data = ? WHERE row_id = ?", string(after), up.ID); err != nil {
		return nil, fmt.Errorf("updating row %d: %w", up.ID, err)
	}
	return nil, nil
}

// InsertRows bulk-appends payloads as new rows of the snapshot. With
// truncate set, every existing row and its revisions are removed first.
func (b *Backend) InsertRows(snapshotID string, payloads []map[string]any, truncate bool, actor string) (types.InsertResult, error) {
	var result types.InsertResult

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return result, types.ErrStoreDetached
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if err := b.snapshotExists(snapshotID); err != nil {
		return result, err
	}

	tx, err := b.db.Begin()
	if err != nil {
		return result, fmt.Errorf("beginning import: %w", err)
	}
	defer tx.Rollback()

	if truncate {
		_, err = tx.Exec(
			"DELETE FROM revisions WHERE row_id IN (SELECT row_id FROM rows WHERE snapshot_id = ?)",
			snapshotID)
		if err != nil {
			return result, fmt.Errorf("truncating revisions: %w", err)
		}
		res, err := tx.Exec("DELETE FROM rows WHERE snapshot_id = ?", snapshotID)
		if err != nil {
			return result, fmt.Errorf("truncating rows: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return result, fmt.Errorf("truncating rows: %w", err)
		}
		result.Deleted = int(n)
	}

	now := time.Now()
	for _, payload := range payloads {
		if payload == nil {
			payload = map[string]any{}
		}
		rowID, err := insertRowTx(tx, &types.Row{
			SnapshotID: snapshotID,
			Data:       payload,
			ImportedAt: now,
		}, actor)
		if err != nil {
			return result, err
		}
		result.RowIDs = append(result.RowIDs, rowID)
	}

	if result.Deleted > 0 || len(result.RowIDs) > 0 {
		if err := demoteSnapshotTx(tx, snapshotID); err != nil {
			return result, err
		}
	}
	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("committing import: %w", err)
	}
	return result, nil
}

// snapshotExists reports ErrNotFound when the snapshot id is unknown.
func (b *Backend) snapshotExists(snapshotID string) error {
	if snapshotID == "" {
		return types.ErrInvalidID
	}
	var one int
	err := b.db.QueryRow(
		"SELECT 1 FROM snapshots WHERE snapshot_id = ?", snapshotID).Scan(&one)
	if err == sql.ErrNoRows {
		return types.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking snapshot: %w", err)
	}
	return nil
}

// deleteRowTx removes one row, scoped to the snapshot, with its
// revisions. Absent rows are ignored; the return counts deleted rows.
func deleteRowTx(tx *sql.Tx, snapshotID string, rowID int64) (int, error) {
	_, err := tx.Exec(
		"DELETE FROM revisions WHERE row_id = ? AND EXISTS (SELECT 1 FROM rows WHERE row_id = ? AND snapshot_id = ?)",
		rowID, rowID, snapshotID)
	if err != nil {
		return 0, fmt.Errorf("deleting revisions for row %d: %w", rowID, err)
	}
	res, err := tx.Exec(
		"DELETE FROM rows WHERE row_id = ? AND snapshot_id = ?", rowID, snapshotID)
	if err != nil {
		return 0, fmt.Errorf("deleting row %d: %w", rowID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting row %d: %w", rowID, err)
	}
	return int(n), nil
}

// demoteSnapshotTx flips an approved snapshot back to draft. Draft
// snapshots are untouched.
func demoteSnapshotTx(tx *sql.Tx, snapshotID string) error {
	_, err := tx.Exec(
		"UPDATE snapshots SET status = ? WHERE snapshot_id = ? AND status = ?",
		types.StatusDraft, snapshotID, types.StatusApproved)
	if err != nil {
		return fmt.Errorf("demoting snapshot: %w", err)
	}
	return nil
}
