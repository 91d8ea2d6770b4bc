package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/datashelf/pkg/types"
)

// Period container CRUD operations. Containers are append-only: they are
// created on first upload or resolve-or-create and never deleted.

const containerColumns = "container_id, handle, period_date, state, label, created_at"

func (t *table) getContainer(id string) (any, error) {
	row := t.backend.db.QueryRow(
		"SELECT "+containerColumns+" FROM containers WHERE container_id = ?", id)
	return scanContainer(row.Scan)
}

func scanContainer(scan func(...any) error) (*types.PeriodContainer, error) {
	var c types.PeriodContainer
	var periodDate, createdAt string
	err := scan(&c.ContainerID, &c.Handle, &periodDate, &c.State, &c.Label, &createdAt)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning container: %w", err)
	}
	c.PeriodDate, err = time.Parse(time.DateOnly, periodDate)
	if err != nil {
		return nil, fmt.Errorf("parsing container period_date: %w", err)
	}
	c.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing container created_at: %w", err)
	}
	return &c, nil
}

func (t *table) setContainer(id string, data any) (string, error) {
	c, ok := data.(*types.PeriodContainer)
	if !ok {
		return "", types.ErrInvalidData
	}
	if c.Handle == "" || c.PeriodDate.IsZero() {
		return "", types.ErrInvalidData
	}
	if c.State != "" && !types.IsValidContainerState(c.State) {
		return "", types.ErrInvalidData
	}

	now := time.Now()
	isCreate := id == "" && c.ContainerID == ""

	if isCreate {
		c.ContainerID = newUUID()
		c.CreatedAt = now
		if c.State == "" {
			c.State = types.ContainerStateNew
		}

		// Plain INSERT: the unique (handle, period_date) index is the
		// creation guard. A losing concurrent create gets
		// ErrDuplicatePeriod and retries as a fetch.
		_, err := t.backend.db.Exec(`
			INSERT INTO containers (container_id, handle, period_date, state, label, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			c.ContainerID, c.Handle, c.PeriodDate.Format(time.DateOnly),
			c.State, c.Label, c.CreatedAt.Format(time.RFC3339))
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return "", types.ErrDuplicatePeriod
			}
			return "", fmt.Errorf("inserting container: %w", err)
		}
		return c.ContainerID, nil
	}

	if id != "" {
		c.ContainerID = id
	}

	// Updates may only touch the informational fields.
	res, err := t.backend.db.Exec(
		"UPDATE containers SET state = ?, label = ? WHERE container_id = ?",
		c.State, c.Label, c.ContainerID)
	if err != nil {
		return "", fmt.Errorf("updating container: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("updating container: %w", err)
	}
	if n == 0 {
		return "", types.ErrNotFound
	}
	return c.ContainerID, nil
}

func (t *table) fetchContainers(filter map[string]any) ([]any, error) {
	query := "SELECT " + containerColumns + " FROM containers"
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
	if pd, ok := filter["period_date"]; ok {
		d, ok := pd.(time.Time)
		if !ok {
			return nil, types.ErrInvalidFilter
		}
		conditions = append(conditions, "period_date = ?")
		args = append(args, d.Format(time.DateOnly))
	}
	if from, ok := filter["date_from"]; ok {
		d, ok := from.(time.Time)
		if !ok {
			return nil, types.ErrInvalidFilter
		}
		conditions = append(conditions, "period_date >= ?")
		args = append(args, d.Format(time.DateOnly))
	}
	if to, ok := filter["date_to"]; ok {
		d, ok := to.(time.Time)
		if !ok {
			return nil, types.ErrInvalidFilter
		}
		conditions = append(conditions, "period_date <= ?")
		args = append(args, d.Format(time.DateOnly))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	// UUID v7 container ids order by creation time, so the id tie-break
	// picks the newest container for same-day duplicates.
	order := "period_desc"
	if o, ok := filter["order"]; ok {
		s, ok := o.(string)
		if !ok {
			return nil, types.ErrInvalidFilter
		}
		order = s
	}
	switch order {
	case "period_desc":
		query += " ORDER BY period_date DESC, container_id DESC"
	case "period_asc":
		query += " ORDER BY period_date ASC, container_id ASC"
	default:
		return nil, types.ErrInvalidFilter
	}

	if limit, ok := filter["limit"]; ok {
		l, ok := toInt(limit)
		if !ok {
			return nil, types.ErrInvalidFilter
		}
		if l > 0 {
			query += fmt.Sprintf(" LIMIT %d", l)
		}
	}
	if offset, ok := filter["offset"]; ok {
		o, ok := toInt(offset)
		if !ok {
			return nil, types.ErrInvalidFilter
		}
		if o > 0 {
			query += fmt.Sprintf(" OFFSET %d", o)
		}
	}

	rows, err := t.backend.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching containers: %w", err)
	}
	defer rows.Close()

	var results []any
	for rows.Next() {
		c, err := scanContainer(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	if results == nil {
		results = []any{}
	}
	return results, rows.Err()
}
