package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/datashelf/pkg/types"
)

const snapshotColumns = "snapshot_id, container_id, name, status, version, meta, created_at"

func (t *table) getSnapshot(id string) (any, error) {
	row := t.backend.db.QueryRow(
		"SELECT "+snapshotColumns+" FROM snapshots WHERE snapshot_id = ?", id)
	return scanSnapshot(row.Scan)
}

func scanSnapshot(scan func(...any) error) (*types.Snapshot, error) {
	var s types.Snapshot
	var meta, createdAt string
	err := scan(&s.SnapshotID, &s.ContainerID, &s.Name, &s.Status, &s.Version, &meta, &createdAt)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning snapshot: %w", err)
	}
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &s.Meta); err != nil {
			return nil, fmt.Errorf("parsing snapshot meta: %w", err)
		}
	}
	s.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing snapshot created_at: %w", err)
	}
	return &s, nil
}

func (t *table) setSnapshot(id string, data any) (string, error) {
	s, ok := data.(*types.Snapshot)
	if !ok {
		return "", types.ErrInvalidData
	}
	if s.ContainerID == "" {
		return "", types.ErrInvalidData
	}
	if s.Status == "" {
		s.Status = types.StatusDraft
	}
	if !types.IsValidStatus(s.Status) || s.Status == types.StatusLatest {
		return "", types.ErrInvalidStatus
	}

	if id == "" && s.SnapshotID == "" {
		s.SnapshotID = newUUID()
		s.CreatedAt = time.Now()
	} else if id != "" {
		s.SnapshotID = id
	}
	if s.Version <= 0 {
		s.Version = 1
	}

	meta := "{}"
	if s.Meta != nil {
		raw, err := json.Marshal(s.Meta)
		if err != nil {
			return "", fmt.Errorf("encoding snapshot meta: %w", err)
		}
		meta = string(raw)
	}

	_, err := t.backend.db.Exec(`
		INSERT INTO snapshots (snapshot_id, container_id, name, status, version, meta, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (snapshot_id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			version = excluded.version,
			meta = excluded.meta`,
		s.SnapshotID, s.ContainerID, s.Name, s.Status, s.Version,
		meta, s.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("upserting snapshot: %w", err)
	}
	return s.SnapshotID, nil
}

// deleteSnapshot removes the snapshot with its rows and their revisions.
func (t *table) deleteSnapshot(id string) error {
	tx, err := t.backend.db.Begin()
	if err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"DELETE FROM revisions WHERE row_id IN (SELECT row_id FROM rows WHERE snapshot_id = ?)", id)
	if err != nil {
		return fmt.Errorf("deleting snapshot revisions: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM rows WHERE snapshot_id = ?", id); err != nil {
		return fmt.Errorf("deleting snapshot rows: %w", err)
	}
	res, err := tx.Exec("DELETE FROM snapshots WHERE snapshot_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return tx.Commit()
}

func (t *table) fetchSnapshots(filter map[string]any) ([]any, error) {
	query := "SELECT " + snapshotColumns + " FROM snapshots"
	var conditions []string
	var args []any

	if cid, ok := filter["container_id"]; ok {
		c, ok := cid.(string)
		if !ok {
			return nil, types.ErrInvalidFilter
		}
		conditions = append(conditions, "container_id = ?")
		args = append(args, c)
	}
	if status, ok := filter["status"]; ok {
		s, ok := status.(string)
		if !ok || !types.IsValidStatus(s) || s == types.StatusLatest {
			return nil, types.ErrInvalidFilter
		}
		conditions = append(conditions, "status = ?")
		args = append(args, s)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, snapshot_id DESC"

	if limit, ok := filter["limit"]; ok {
		l, ok := toInt(limit)
		if !ok {
			return nil, types.ErrInvalidFilter
		}
		if l > 0 {
			query += fmt.Sprintf(" LIMIT %d", l)
		}
	}

	rows, err := t.backend.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching snapshots: %w", err)
	}
	defer rows.Close()

	var results []any
	for rows.Next() {
		s, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	if results == nil {
		results = []any{}
	}
	return results, rows.Err()
}
