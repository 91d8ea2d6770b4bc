package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/datashelf/pkg/types"
)

// errRowUpdate marks attempts to mutate an existing row through the
// generic table interface. Mutations go through ApplyBatch so the
// revision ledger and version checks stay intact.
var errRowUpdate = errors.New("row updates must go through batch edit")

const rowColumns = "row_id, snapshot_id, data, imported_at"

func (t *table) getRow(id string) (any, error) {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, types.ErrInvalidID
	}
	row := t.backend.db.QueryRow(
		"SELECT "+rowColumns+" FROM rows WHERE row_id = ?", rowID)
	return scanRow(row.Scan)
}

func scanRow(scan func(...any) error) (*types.Row, error) {
	var r types.Row
	var data, importedAt string
	err := scan(&r.RowID, &r.SnapshotID, &data, &importedAt)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning row: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &r.Data); err != nil {
		return nil, fmt.Errorf("parsing row data: %w", err)
	}
	r.ImportedAt, err = time.Parse(time.RFC3339, importedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing row imported_at: %w", err)
	}
	return &r, nil
}

// setRow creates a new row together with its first revision. Updates
// are refused here.
func (t *table) setRow(id string, data any) (string, error) {
	r, ok := data.(*types.Row)
	if !ok {
		return "", types.ErrInvalidData
	}
	if id != "" || r.RowID != 0 {
		return "", errRowUpdate
	}
	if r.SnapshotID == "" {
		return "", types.ErrInvalidData
	}
	if r.Data == nil {
		r.Data = map[string]any{}
	}

	tx, err := t.backend.db.Begin()
	if err != nil {
		return "", fmt.Errorf("inserting row: %w", err)
	}
	defer tx.Rollback()

	r.ImportedAt = time.Now()
	rowID, err := insertRowTx(tx, r, "")
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("inserting row: %w", err)
	}
	r.RowID = rowID
	return strconv.FormatInt(rowID, 10), nil
}

// insertRowTx inserts a row and its creation revision inside tx and
// returns the assigned row id.
func insertRowTx(tx *sql.Tx, r *types.Row, actor string) (int64, error) {
	raw, err := json.Marshal(r.Data)
	if err != nil {
		return 0, fmt.Errorf("encoding row data: %w", err)
	}
	res, err := tx.Exec(
		"INSERT INTO rows (snapshot_id, data, imported_at) VALUES (?, ?, ?)",
		r.SnapshotID, string(raw), r.ImportedAt.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("inserting row: %w", err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("inserting row: %w", err)
	}
	err = insertRevisionTx(tx, rowID, 1, "{}", string(raw), actor, r.ImportedAt)
	if err != nil {
		return 0, err
	}
	return rowID, nil
}

func insertRevisionTx(tx *sql.Tx, rowID int64, version int, before, after, actor string, at time.Time) error {
	_, err := tx.Exec(`
		INSERT INTO revisions (row_id, version, data_before, data_after, actor, changed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rowID, version, before, after, actor, at.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting revision: %w", err)
	}
	return nil
}

// deleteRow hard-deletes a row and its revision history.
func (t *table) deleteRow(id string) error {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return types.ErrInvalidID
	}

	tx, err := t.backend.db.Begin()
	if err != nil {
		return fmt.Errorf("deleting row: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM revisions WHERE row_id = ?", rowID); err != nil {
		return fmt.Errorf("deleting row revisions: %w", err)
	}
	res, err := tx.Exec("DELETE FROM rows WHERE row_id = ?", rowID)
	if err != nil {
		return fmt.Errorf("deleting row: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting row: %w", err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return tx.Commit()
}

func (t *table) fetchRows(filter map[string]any) ([]any, error) {
	query := "SELECT " + rowColumns + " FROM rows"
	var conditions []string
	var args []any

	if sid, ok := filter["snapshot_id"]; ok {
		s, ok := sid.(string)
		if !ok {
			return nil, types.ErrInvalidFilter
		}
		conditions = append(conditions, "snapshot_id = ?")
		args = append(args, s)
	}
	if start, ok := filter["start_row"]; ok {
		s, ok := toInt64(start)
		if !ok {
			return nil, types.ErrInvalidFilter
		}
		conditions = append(conditions, "row_id >= ?")
		args = append(args, s)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY row_id ASC"

	// SQLite rejects OFFSET without LIMIT; -1 means unlimited.
	hasLimit := false
	if limit, ok := filter["limit"]; ok {
		l, ok := toInt(limit)
		if !ok {
			return nil, types.ErrInvalidFilter
		}
		if l > 0 {
			query += fmt.Sprintf(" LIMIT %d", l)
			hasLimit = true
		}
	}
	if offset, ok := filter["offset"]; ok {
		o, ok := toInt(offset)
		if !ok {
			return nil, types.ErrInvalidFilter
		}
		if o > 0 {
			if !hasLimit {
				query += " LIMIT -1"
			}
			query += fmt.Sprintf(" OFFSET %d", o)
		}
	}

	rows, err := t.backend.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching rows: %w", err)
	}
	defer rows.Close()

	var results []any
	for rows.Next() {
		r, err := scanRow(rows.Scan)
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
