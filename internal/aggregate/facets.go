package aggregate

import (
	"sort"
	"time"

	"github.com/mesh-intelligence/datashelf/pkg/types"
)

// Facets summarizes the value distribution of each requested field:
// the top values by count, plus numeric and date ranges when any value
// coerces. Field names resolve case-insensitively; an unknown field
// yields an empty facet.
func (e *Engine) Facets(rows []*types.Row, fields []string) map[string]types.Facet {
	data := payloads(rows)
	keys := sampleKeys(data, e.sampleLimit)

	result := make(map[string]types.Facet, len(fields))
	for _, field := range fields {
		result[field] = e.facet(data, resolveKey(keys, field))
	}
	return result
}

func (e *Engine) facet(data []rowData, key string) types.Facet {
	counts := map[string]int{}
	var numeric *types.NumericRange
	var dates *types.DateRange

	for _, r := range data {
		v, present := r[key]
		if !present {
			continue
		}
		s := renderText(v)
		if s != "" {
			counts[s]++
		}

		if f, ok := coerceNumber(v); ok {
			if numeric == nil {
				numeric = &types.NumericRange{Min: f, Max: f}
			} else {
				if f < numeric.Min {
					numeric.Min = f
				}
				if f > numeric.Max {
					numeric.Max = f
				}
			}
		}

		if d, err := types.ParseClientDate(s); err == nil {
			iso := d.Format(time.DateOnly)
			if dates == nil {
				dates = &types.DateRange{Min: iso, Max: iso}
			} else {
				if iso < dates.Min {
					dates.Min = iso
				}
				if iso > dates.Max {
					dates.Max = iso
				}
			}
		}
	}

	top := make([]types.FacetValue, 0, len(counts))
	for value, count := range counts {
		top = append(top, types.FacetValue{Value: value, Count: count})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Value < top[j].Value
	})
	if len(top) > e.facetTopN {
		top = top[:e.facetTopN]
	}

	return types.Facet{Top: top, NumericRange: numeric, DateRange: dates}
}

// Profile reports the observed shape of every key in a bounded row
// sample: how many values render as numbers, dates, or plain text, with
// up to three distinct sample values per key. Callers use it to pick
// sensible group and metric fields for uncharted data.
func (e *Engine) Profile(rows []*types.Row) []types.KeyProfile {
	data := payloads(rows)
	if e.sampleLimit > 0 && len(data) > e.sampleLimit {
		data = data[:e.sampleLimit]
	}

	profiles := map[string]*types.KeyProfile{}
	for _, r := range data {
		for key, v := range r {
			p, ok := profiles[key]
			if !ok {
				p = &types.KeyProfile{Key: key}
				profiles[key] = p
			}
			p.Total++

			s := renderText(v)
			if _, ok := coerceNumber(v); ok {
				p.Numeric++
			} else if _, err := types.ParseClientDate(s); err == nil {
				p.Date++
			} else if s != "" {
				p.Text++
			}

			if s != "" && len(p.Samples) < 3 && !contains(p.Samples, s) {
				p.Samples = append(p.Samples, s)
			}
		}
	}

	result := make([]types.KeyProfile, 0, len(profiles))
	for _, p := range profiles {
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

// Distinct returns the sorted distinct non-empty values of one field.
func (e *Engine) Distinct(rows []*types.Row, field string) []string {
	data := payloads(rows)
	key := resolveKey(sampleKeys(data, e.sampleLimit), field)

	seen := map[string]bool{}
	for _, r := range data {
		if s := renderText(r[key]); s != "" {
			seen[s] = true
		}
	}
	values := make([]string, 0, len(seen))
	for s := range seen {
		values = append(values, s)
	}
	sort.Strings(values)
	return values
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
