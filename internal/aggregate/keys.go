// Package aggregate computes grouped metrics, multi-series charts, and
// facet summaries over schema-less rows. The engine is stateless: every
// entry point takes the rows to scan and returns derived values, so the
// same engine serves any snapshot.
package aggregate

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// numericPattern accepts integers and plain decimals after sanitation.
// Anything else (units, thousands separators, stray text) is excluded
// from numeric aggregation rather than coerced to zero.
var numericPattern = regexp.MustCompile(`^\s*-?\d+(\.\d+)?\s*$`)

// nbsp is the non-breaking space that spreadsheet exports use as a
// thousands separator.
const nbsp = " "

// renderText renders a row value the way comparisons and grouping see
// it: nil becomes "", floats drop their exponent form, nested values
// fall back to their JSON encoding.
func renderText(v any) string {
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
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}

// coerceNumber extracts a float from a dirty value. Values arrive from
// hand-edited spreadsheets, so spaces and NBSP separators are stripped
// and a decimal comma becomes a dot before matching. The second return
// is false when the value is not a plain number.
func coerceNumber(v any) (float64, bool) {
	if f, ok := v.(float64); ok {
		return f, true
	}
	s := renderText(v)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, nbsp, "")
	s = strings.ReplaceAll(s, ",", ".")
	if !numericPattern.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// sampleKeys collects the distinct keys of up to limit rows, sorted.
// Rows beyond the limit may carry keys the sample misses; callers
// accept that as the cost of bounded discovery.
func sampleKeys(rows []rowData, limit int) []string {
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	seen := map[string]bool{}
	for _, r := range rows {
		for k := range r {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// resolveKey maps a requested field name onto an actual row key,
// ignoring case. An exact match wins over a case-insensitive one. An
// unresolvable name is returned unchanged; lookups on it then find
// nothing, which renders as an empty result rather than an error.
func resolveKey(keys []string, requested string) string {
	if requested == "" {
		return ""
	}
	lower := strings.ToLower(requested)
	folded := ""
	for _, k := range keys {
		if k == requested {
			return k
		}
		if folded == "" && strings.ToLower(k) == lower {
			folded = k
		}
	}
	if folded != "" {
		return folded
	}
	return requested
}

// rowData is the payload view the engine works on.
type rowData = map[string]any
