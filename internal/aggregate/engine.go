package aggregate

import (
	"sort"
	"strings"

	"github.com/mesh-intelligence/datashelf/pkg/types"
)

// Engine computes aggregations over row payloads. It holds tuning only
// (sample and facet caps), never row state.
type Engine struct {
	sampleLimit int
	facetTopN   int
}

// NewEngine creates an Engine with the given key-discovery sample cap
// and facet top-value cap. Non-positive values fall back to defaults.
func NewEngine(sampleLimit, facetTopN int) *Engine {
	if sampleLimit <= 0 {
		sampleLimit = types.DefaultSampleLimit
	}
	if facetTopN <= 0 {
		facetTopN = types.DefaultFacetTopN
	}
	return &Engine{sampleLimit: sampleLimit, facetTopN: facetTopN}
}

// Keys returns the distinct payload keys of a bounded row sample, sorted.
func (e *Engine) Keys(rows []*types.Row) []string {
	return sampleKeys(payloads(rows), e.sampleLimit)
}

// Aggregate groups rows and computes one metric per bucket.
//
// Field names in GroupBy, the metric, DateField, Filters, and Excludes
// resolve case-insensitively against a key sample; an unresolvable name
// stays literal and simply matches nothing. Values that do not render
// as plain numbers are excluded from numeric metrics, never coerced to
// zero, but a bucket whose values are all dirty still appears with
// value 0. Without GroupBy the result is the single bucket "all".
//
// Buckets order lexically by key, unless Filters[GroupBy] is a value
// list, whose order then dictates the output order with empty buckets
// dropped.
func (e *Engine) Aggregate(rows []*types.Row, req types.AggregateRequest) ([]types.KeyValue, error) {
	fn, metricField, err := parseMetric(req.Metric)
	if err != nil {
		return nil, err
	}

	data := payloads(rows)
	keys := sampleKeys(data, e.sampleLimit)

	data, err = e.filterRows(data, keys, req)
	if err != nil {
		return nil, err
	}

	groupKey := resolveKey(keys, req.GroupBy)
	metricKey := resolveKey(keys, metricField)

	buckets := map[string][]rowData{}
	for _, r := range data {
		key := "all"
		if req.GroupBy != "" {
			key = renderText(r[groupKey])
		}
		buckets[key] = append(buckets[key], r)
	}

	order := bucketOrder(buckets, req)
	result := make([]types.KeyValue, 0, len(order))
	for _, key := range order {
		result = append(result, types.KeyValue{
			Key:   key,
			Value: computeMetric(fn, metricKey, buckets[key]),
		})
	}
	return result, nil
}

// filterRows applies equality filters, exclusions, and the date range.
func (e *Engine) filterRows(data []rowData, keys []string, req types.AggregateRequest) ([]rowData, error) {
	type match struct {
		key    string
		values map[string]bool
	}
	var includes, excludes []match
	for field, v := range req.Filters {
		includes = append(includes, match{resolveKey(keys, field), renderSet(v)})
	}
	for field, v := range req.Excludes {
		excludes = append(excludes, match{resolveKey(keys, field), renderSet(v)})
	}

	dateKey := ""
	if req.DateField != "" && (req.DateFrom != "" || req.DateTo != "") {
		dateKey = resolveKey(keys, req.DateField)
	}

	out := data[:0]
	for _, r := range data {
		ok := true
		for _, m := range includes {
			if !m.values[renderText(r[m.key])] {
				ok = false
				break
			}
		}
		if ok {
			for _, m := range excludes {
				if m.values[renderText(r[m.key])] {
					ok = false
					break
				}
			}
		}
		if ok && dateKey != "" {
			// ISO date text compares correctly as text.
			s := renderText(r[dateKey])
			if req.DateFrom != "" && s < req.DateFrom {
				ok = false
			}
			if req.DateTo != "" && s > req.DateTo {
				ok = false
			}
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// bucketOrder returns bucket keys in output order: the Filters[GroupBy]
// list order when one is given (empty buckets dropped), lexical
// ascending otherwise.
func bucketOrder(buckets map[string][]rowData, req types.AggregateRequest) []string {
	if req.GroupBy != "" {
		if list, ok := req.Filters[req.GroupBy].([]any); ok {
			var order []string
			seen := map[string]bool{}
			for _, v := range list {
				key := renderText(v)
				if seen[key] {
					continue
				}
				seen[key] = true
				if _, present := buckets[key]; present {
					order = append(order, key)
				}
			}
			return order
		}
	}
	order := make([]string, 0, len(buckets))
	for key := range buckets {
		order = append(order, key)
	}
	sort.Strings(order)
	return order
}

// computeMetric evaluates one aggregate over a bucket. Count counts
// rows; the numeric functions run over the coercible values only and
// yield 0 when none coerce.
func computeMetric(fn, metricKey string, bucket []rowData) float64 {
	if fn == types.AggCount {
		return float64(len(bucket))
	}

	var values []float64
	for _, r := range bucket {
		if f, ok := coerceNumber(r[metricKey]); ok {
			values = append(values, f)
		}
	}
	if len(values) == 0 {
		return 0
	}

	switch fn {
	case types.AggSum, types.AggAvg:
		var sum float64
		for _, f := range values {
			sum += f
		}
		if fn == types.AggAvg {
			return sum / float64(len(values))
		}
		return sum
	case types.AggMin:
		min := values[0]
		for _, f := range values[1:] {
			if f < min {
				min = f
			}
		}
		return min
	case types.AggMax:
		max := values[0]
		for _, f := range values[1:] {
			if f > max {
				max = f
			}
		}
		return max
	}
	return 0
}

// parseMetric splits "fn:field" into its parts. A bare "count" needs no
// field; every other function does.
func parseMetric(metric string) (fn, field string, err error) {
	if metric == "" {
		return types.AggCount, "", nil
	}
	fn, field, _ = strings.Cut(metric, ":")
	if !types.IsValidAgg(fn) {
		return "", "", types.ErrInvalidRequest
	}
	if fn != types.AggCount && field == "" {
		return "", "", types.ErrInvalidRequest
	}
	return fn, field, nil
}

// renderSet renders a filter value, or each element of a value list,
// into a membership set.
func renderSet(v any) map[string]bool {
	set := map[string]bool{}
	if list, ok := v.([]any); ok {
		for _, item := range list {
			set[renderText(item)] = true
		}
		return set
	}
	set[renderText(v)] = true
	return set
}

// payloads projects rows onto their data maps.
func payloads(rows []*types.Row) []rowData {
	out := make([]rowData, 0, len(rows))
	for _, r := range rows {
		if r.Data == nil {
			out = append(out, rowData{})
			continue
		}
		out = append(out, r.Data)
	}
	return out
}
