package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mesh-intelligence/datashelf/pkg/types"
)

const templateColumns = "template_id, name, description, columns, created_at"

func (t *table) getTemplate(id string) (any, error) {
	row := t.backend.db.QueryRow(
		"SELECT "+templateColumns+" FROM templates WHERE template_id = ?", id)
	return scanTemplate(row.Scan)
}

func scanTemplate(scan func(...any) error) (*types.Template, error) {
	var tpl types.Template
	var description sql.NullString
	var columns, createdAt string
	err := scan(&tpl.TemplateID, &tpl.Name, &description, &columns, &createdAt)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning template: %w", err)
	}
	tpl.Description = description.String
	if err := json.Unmarshal([]byte(columns), &tpl.Columns); err != nil {
		return nil, fmt.Errorf("parsing template columns: %w", err)
	}
	tpl.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing template created_at: %w", err)
	}
	return &tpl, nil
}

func (t *table) setTemplate(id string, data any) (string, error) {
	tpl, ok := data.(*types.Template)
	if !ok {
		return "", types.ErrInvalidData
	}
	if tpl.Name == "" {
		return "", types.ErrInvalidData
	}
	for _, col := range tpl.Columns {
		if col.Key == "" || !types.IsValidDType(col.DType) {
			return "", types.ErrInvalidData
		}
	}

	if id == "" && tpl.TemplateID == "" {
		tpl.TemplateID = newUUID()
		tpl.CreatedAt = time.Now()
	} else if id != "" {
		tpl.TemplateID = id
	}

	columns, err := json.Marshal(tpl.Columns)
	if err != nil {
		return "", fmt.Errorf("encoding template columns: %w", err)
	}

	_, err = t.backend.db.Exec(`
		INSERT INTO templates (template_id, name, description, columns, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (template_id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			columns = excluded.columns`,
		tpl.TemplateID, tpl.Name, tpl.Description, string(columns),
		tpl.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("upserting template: %w", err)
	}
	return tpl.TemplateID, nil
}

func (t *table) deleteTemplate(id string) error {
	res, err := t.backend.db.Exec("DELETE FROM templates WHERE template_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting template: %w", err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (t *table) fetchTemplates(filter map[string]any) ([]any, error) {
	query := "SELECT " + templateColumns + " FROM templates"
	var args []any

	if name, ok := filter["name"]; ok {
		n, ok := name.(string)
		if !ok {
			return nil, types.ErrInvalidFilter
		}
		query += " WHERE name = ?"
		args = append(args, n)
	}
	query += " ORDER BY name ASC"

	rows, err := t.backend.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching templates: %w", err)
	}
	defer rows.Close()

	var results []any
	for rows.Next() {
		tpl, err := scanTemplate(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, tpl)
	}
	if results == nil {
		results = []any{}
	}
	return results, rows.Err()
}
