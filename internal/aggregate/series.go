package aggregate

import (
	"github.com/mesh-intelligence/datashelf/pkg/types"
)

// MultiSeries computes several metrics over one shared group axis. The
// axis follows the first series' order (the explicit Filters[GroupBy]
// order when one is given); axis values only later series produce are
// appended after it. Every series aligns to the shared axis, with 0
// filled in for axis values it lacks.
func (e *Engine) MultiSeries(rows []*types.Row, req types.AggregateRequest, specs []types.SeriesSpec) (*types.SeriesResult, error) {
	if len(specs) == 0 {
		return nil, types.ErrInvalidRequest
	}

	perSeries := make([]map[string]float64, len(specs))
	names := make([]string, len(specs))
	var x []string
	onAxis := map[string]bool{}

	for i, spec := range specs {
		sreq := req
		sreq.Metric = spec.Metric
		if spec.Metric != types.AggCount {
			sreq.Metric = spec.Metric + ":" + spec.Field
		}
		buckets, err := e.Aggregate(rows, sreq)
		if err != nil {
			return nil, err
		}

		perSeries[i] = make(map[string]float64, len(buckets))
		for _, kv := range buckets {
			perSeries[i][kv.Key] = kv.Value
			if !onAxis[kv.Key] {
				onAxis[kv.Key] = true
				x = append(x, kv.Key)
			}
		}

		names[i] = spec.Name
		if names[i] == "" {
			names[i] = sreq.Metric
		}
	}

	result := &types.SeriesResult{X: x}
	for i := range specs {
		data := make([]float64, len(x))
		for j, key := range x {
			data[j] = perSeries[i][key]
		}
		result.Series = append(result.Series, types.Series{Name: names[i], Data: data})
	}
	return result, nil
}
