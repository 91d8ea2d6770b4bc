// Package edit validates row payloads against the column rules of a
// bound template and derives the editable schema callers render edit
// forms from.
package edit

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/datashelf/pkg/types"
)

// Validator checks row payloads against one template's column rules.
// Compiled patterns are cached per validator, so build one per template
// and reuse it across a batch.
type Validator struct {
	columns  []types.ColumnRule
	patterns map[string]*regexp.Regexp
}

// NewValidator compiles the template's column rules. An invalid regex
// in a rule is a template defect, reported here rather than on every
// row.
func NewValidator(tpl *types.Template) (*Validator, error) {
	v := &Validator{
		columns:  tpl.Columns,
		patterns: make(map[string]*regexp.Regexp),
	}
	for _, col := range tpl.Columns {
		if col.Regex == "" {
			continue
		}
		re, err := regexp.Compile(col.Regex)
		if err != nil {
			return nil, fmt.Errorf("compiling pattern for column %q: %w", col.Key, err)
		}
		v.patterns[col.Key] = re
	}
	return v, nil
}

// ValidateRow checks one payload against every column rule and returns
// all failures, one message per failed rule. An empty result means the
// payload is acceptable. Keys the template does not mention pass
// untouched.
func (v *Validator) ValidateRow(data map[string]any) []string {
	var errs []string
	for _, col := range v.columns {
		if msg := v.validateColumn(col, data[col.Key]); msg != "" {
			errs = append(errs, msg)
		}
	}
	return errs
}

func (v *Validator) validateColumn(col types.ColumnRule, value any) string {
	s := strings.TrimSpace(render(value))

	if s == "" {
		if col.Required {
			return fmt.Sprintf("%s: value is required", col.Key)
		}
		return ""
	}

	switch col.DType {
	case types.DTypeNumber:
		f, ok := parseNumber(s)
		if !ok {
			return fmt.Sprintf("%s: not a number: %q", col.Key, s)
		}
		if col.Min != nil && f < *col.Min {
			return fmt.Sprintf("%s: %v is below the minimum %v", col.Key, f, *col.Min)
		}
		if col.Max != nil && f > *col.Max {
			return fmt.Sprintf("%s: %v is above the maximum %v", col.Key, f, *col.Max)
		}
	case types.DTypeDate:
		if _, err := types.ParseClientDate(s); err != nil {
			return fmt.Sprintf("%s: not a date: %q", col.Key, s)
		}
	}

	if re, ok := v.patterns[col.Key]; ok {
		// Matches anywhere in the value; anchor the pattern to require
		// a full match.
		if !re.MatchString(s) {
			return fmt.Sprintf("%s: %q does not match the required pattern", col.Key, s)
		}
	}

	if len(col.Choices) > 0 && !isChoice(col.Choices, s) {
		return fmt.Sprintf("%s: %q is not an allowed value", col.Key, s)
	}
	return ""
}

// parseNumber accepts a plain number with either decimal separator.
func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func isChoice(choices []string, s string) bool {
	for _, c := range choices {
		if c == s {
			return true
		}
	}
	return false
}

// render is the text view of a payload value used for validation.
func render(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// NormalizeRow rewrites the payload's date column values to ISO form in
// place, so stored dates compare correctly as text regardless of which
// accepted layout the caller typed. Values that failed validation are
// left untouched.
func (v *Validator) NormalizeRow(data map[string]any) {
	for _, col := range v.columns {
		if col.DType != types.DTypeDate {
			continue
		}
		s := strings.TrimSpace(render(data[col.Key]))
		if s == "" {
			continue
		}
		if d, err := types.ParseClientDate(s); err == nil {
			data[col.Key] = d.Format(time.DateOnly)
		}
	}
}
