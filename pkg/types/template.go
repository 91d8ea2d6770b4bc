package types

import "time"

// Column data types accepted by template validation.
const (
	DTypeText   = "text"
	DTypeNumber = "number"
	DTypeDate   = "date"
)

// IsValidDType reports whether d is a recognized column data type.
func IsValidDType(d string) bool {
	return d == DTypeText || d == DTypeNumber || d == DTypeDate
}

// ColumnRule describes validation for one canonical column of an editable
// snapshot. Zero-valued bounds and empty Regex/Choices mean "no rule".
type ColumnRule struct {
	Key      string   // Canonical field name.
	DType    string   // DTypeText, DTypeNumber, or DTypeDate.
	Required bool     // Reject empty values when set.
	Min      *float64 // Lower bound for numbers, nil when unbounded.
	Max      *float64 // Upper bound for numbers, nil when unbounded.
	Regex    string   // Pattern the rendered value must match, "" to skip.
	Choices  []string // Allowed values, empty to skip.
}

// Template is an ordered set of column rules bound to editable snapshots
// through the snapshot metadata. Column order is the order callers see in
// the editable schema.
type Template struct {
	TemplateID  string       // UUID v7, generated on creation.
	Name        string       // Unique human-readable name.
	Description string       // Optional free text.
	Columns     []ColumnRule // Ordered validation rules.
	CreatedAt   time.Time    // Timestamp of creation.
}
