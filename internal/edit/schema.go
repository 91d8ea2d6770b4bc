package edit

import (
	"github.com/mesh-intelligence/datashelf/pkg/types"
)

// Column is one entry of the editable schema: the template's rule
// flattened into the form a row editor renders.
type Column struct {
	Key      string   `json:"key"`
	DType    string   `json:"dtype"`
	Required bool     `json:"required"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Regex    string   `json:"regex,omitempty"`
	Choices  []string `json:"choices,omitempty"`
}

// Schema is the editable schema of one snapshot: its column rules in
// template order, plus whether editing is enabled at all.
type Schema struct {
	Editable bool     `json:"editable"`
	Template string   `json:"template,omitempty"`
	Columns  []Column `json:"columns,omitempty"`
}

// BuildSchema derives the editable schema from a snapshot and its bound
// template. A nil template means the snapshot accepts free-form edits
// when its metadata marks it editable.
func BuildSchema(snap *types.Snapshot, tpl *types.Template) Schema {
	s := Schema{Editable: snap.Editable()}
	if tpl == nil {
		return s
	}
	s.Template = tpl.Name
	s.Columns = make([]Column, 0, len(tpl.Columns))
	for _, col := range tpl.Columns {
		s.Columns = append(s.Columns, Column{
			Key:      col.Key,
			DType:    col.DType,
			Required: col.Required,
			Min:      col.Min,
			Max:      col.Max,
			Regex:    col.Regex,
			Choices:  col.Choices,
		})
	}
	return s
}
