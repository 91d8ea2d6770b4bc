package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/datashelf/pkg/types"
)

const eventColumns = "event_id, actor, handle, period_date, snapshot_id, action, row_count, status_before, status_after, detail, created_at"

func (t *table) getEvent(id string) (any, error) {
	row := t.backend.db.QueryRow(
		"SELECT "+eventColumns+" FROM events WHERE event_id = ?", id)
	return scanEvent(row.Scan)
}

func scanEvent(scan func(...any) error) (*types.Event, error) {
	var e types.Event
	var periodDate, detail, createdAt string
	err := scan(&e.EventID, &e.Actor, &e.Handle, &periodDate, &e.SnapshotID,
		&e.Action, &e.RowCount, &e.StatusBefore, &e.StatusAfter, &detail, &createdAt)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning event: %w", err)
	}
	if periodDate != "" {
		e.PeriodDate, err = time.Parse(time.DateOnly, periodDate)
		if err != nil {
			return nil, fmt.Errorf("parsing event period_date: %w", err)
		}
	}
	if detail != "" {
		if err := json.Unmarshal([]byte(detail), &e.Detail); err != nil {
			return nil, fmt.Errorf("parsing event detail: %w", err)
		}
	}
	e.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing event created_at: %w", err)
	}
	return &e, nil
}

// setEvent appends a journal entry. Existing entries are never updated.
func (t *table) setEvent(id string, data any) (string, error) {
	e, ok := data.(*types.Event)
	if !ok {
		return "", types.ErrInvalidData
	}
	if id != "" || e.EventID != "" {
		return "", errAppendOnly
	}
	if e.Handle == "" || !types.IsValidAction(e.Action) {
		return "", types.ErrInvalidData
	}

	e.EventID = newUUID()
	e.CreatedAt = time.Now()

	periodDate := ""
	if !e.PeriodDate.IsZero() {
		periodDate = e.PeriodDate.Format(time.DateOnly)
	}
	detail := "{}"
	if e.Detail != nil {
		raw, err := json.Marshal(e.Detail)
		if err != nil {
			return "", fmt.Errorf("encoding event detail: %w", err)
		}
		detail = string(raw)
	}

	_, err := t.backend.db.Exec(`
		INSERT INTO events (event_id, actor, handle, period_date, snapshot_id, action,
			row_count, status_before, status_after, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.EventID, e.Actor, e.Handle, periodDate, e.SnapshotID, e.Action,
		e.RowCount, e.StatusBefore, e.StatusAfter, detail,
		e.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("inserting event: %w", err)
	}
	return e.EventID, nil
}

func (t *table) fetchEvents(filter map[string]any) ([]any, error) {
	query := "SELECT " + eventColumns + " FROM events"
	var conditions []string
	var args []any

	if handle, ok := filter["handle"]; ok {
		h, ok := handle.(string)
		if !ok {
			return nil, types.ErrInvalidFilter
		}
		conditions = append(conditions, "handle = ?")
		args = append(args, h)
	}
	if action, ok := filter["action"]; ok {
		a, ok := action.(string)
		if !ok || !types.IsValidAction(a) {
			return nil, types.ErrInvalidFilter
		}
		conditions = append(conditions, "action = ?")
		args = append(args, a)
	}
	if sid, ok := filter["snapshot_id"]; ok {
		s, ok := sid.(string)
		if !ok {
			return nil, types.ErrInvalidFilter
		}
		conditions = append(conditions, "snapshot_id = ?")
		args = append(args, s)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, event_id DESC"

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
		return nil, fmt.Errorf("fetching events: %w", err)
	}
	defer rows.Close()

	var results []any
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	if results == nil {
		results = []any{}
	}
	return results, rows.Err()
}
