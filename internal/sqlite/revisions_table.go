package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mesh-intelligence/datashelf/pkg/types"
)

// Revisions are the append-only audit ledger. They are written only as
// a side effect of row creation and batch edits, never through Set, and
// read out here ordered by version so the sequence 1..N is apparent.

const revisionColumns = "row_id, version, data_before, data_after, actor, changed_at"

func scanRevision(scan func(...any) error) (*types.Revision, error) {
	var r types.Revision
	var before, after, changedAt string
	err := scan(&r.RowID, &r.Version, &before, &after, &r.Actor, &changedAt)
	if err != nil {
		return nil, fmt.Errorf("scanning revision: %w", err)
	}
	if err := json.Unmarshal([]byte(before), &r.Before); err != nil {
		return nil, fmt.Errorf("parsing revision data_before: %w", err)
	}
	if err := json.Unmarshal([]byte(after), &r.After); err != nil {
		return nil, fmt.Errorf("parsing revision data_after: %w", err)
	}
	r.ChangedAt, err = time.Parse(time.RFC3339, changedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing revision changed_at: %w", err)
	}
	return &r, nil
}

func (t *table) fetchRevisions(filter map[string]any) ([]any, error) {
	rid, ok := filter["row_id"]
	if !ok {
		return nil, types.ErrInvalidFilter
	}
	rowID, ok := toInt64(rid)
	if !ok {
		return nil, types.ErrInvalidFilter
	}

	rows, err := t.backend.db.Query(
		"SELECT "+revisionColumns+" FROM revisions WHERE row_id = ? ORDER BY version ASC", rowID)
	if err != nil {
		return nil, fmt.Errorf("fetching revisions: %w", err)
	}
	defer rows.Close()

	var results []any
	for rows.Next() {
		r, err := scanRevision(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if results == nil {
		results = []any{}
	}
	return results, rows.Err()
}
