package shelf

import (
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/datashelf/pkg/types"
)

// Aggregate groups a snapshot's rows and computes one metric per
// bucket. Results are cached for the configured TTL under a normalized
// request key, so repeated dashboard queries fan in to one scan.
func (s *Service) Aggregate(req types.AggregateRequest) ([]types.KeyValue, error) {
	key := cacheKey("agg", req, nil)
	if s.aggCache != nil {
		if cached, ok := s.aggCache.Load(key); ok {
			return cloneBuckets(*cached), nil
		}
	}

	rows, err := s.snapshotRows(req.SnapshotID)
	if err != nil {
		return nil, err
	}
	result, err := s.engine.Aggregate(rows, req)
	if err != nil {
		return nil, err
	}

	// Callers get their own slice; the cached one must stay pristine.
	if s.aggCache != nil {
		s.aggCache.Set(key, result)
		return cloneBuckets(result), nil
	}
	return result, nil
}

// ChartData computes several metrics over one shared group axis, in the
// shape charting frontends consume. Cached like Aggregate.
func (s *Service) ChartData(req types.AggregateRequest, specs []types.SeriesSpec) (*types.SeriesResult, error) {
	key := cacheKey("chart", req, specs)
	if s.chartCache != nil {
		if cached, ok := s.chartCache.Load(key); ok {
			return cloneSeriesResult(*cached), nil
		}
	}

	rows, err := s.snapshotRows(req.SnapshotID)
	if err != nil {
		return nil, err
	}
	result, err := s.engine.MultiSeries(rows, req, specs)
	if err != nil {
		return nil, err
	}

	if s.chartCache != nil {
		s.chartCache.Set(key, result)
		return cloneSeriesResult(result), nil
	}
	return result, nil
}

// Facets summarizes the value distribution of each field across a
// snapshot's rows.
func (s *Service) Facets(snapshotID string, fields []string) (map[string]types.Facet, error) {
	rows, err := s.snapshotRows(snapshotID)
	if err != nil {
		return nil, err
	}
	return s.engine.Facets(rows, fields), nil
}

// Keys returns the distinct payload keys of a bounded row sample.
func (s *Service) Keys(snapshotID string) ([]string, error) {
	rows, err := s.snapshotRows(snapshotID)
	if err != nil {
		return nil, err
	}
	return s.engine.Keys(rows), nil
}

// Profile reports the observed value shape of every sampled key,
// for picking group and metric fields on uncharted data.
func (s *Service) Profile(snapshotID string) ([]types.KeyProfile, error) {
	rows, err := s.snapshotRows(snapshotID)
	if err != nil {
		return nil, err
	}
	return s.engine.Profile(rows), nil
}

// Distinct returns the sorted distinct non-empty values of one field.
func (s *Service) Distinct(snapshotID, field string) ([]string, error) {
	rows, err := s.snapshotRows(snapshotID)
	if err != nil {
		return nil, err
	}
	return s.engine.Distinct(rows, field), nil
}

// cloneBuckets copies an aggregation result so callers cannot mutate
// the cached slice.
func cloneBuckets(buckets []types.KeyValue) []types.KeyValue {
	out := make([]types.KeyValue, len(buckets))
	copy(out, buckets)
	return out
}

// cloneSeriesResult deep-copies a multi-series result.
func cloneSeriesResult(r *types.SeriesResult) *types.SeriesResult {
	out := &types.SeriesResult{
		X:      append([]string(nil), r.X...),
		Series: make([]types.Series, len(r.Series)),
	}
	for i, s := range r.Series {
		out.Series[i] = types.Series{
			Name: s.Name,
			Data: append([]float64(nil), s.Data...),
		}
	}
	return out
}

// cacheKey derives a deterministic cache key from a request. JSON
// encoding sorts map keys, so equivalent requests collide as intended.
func cacheKey(kind string, req types.AggregateRequest, specs []types.SeriesSpec) string {
	raw, err := json.Marshal(struct {
		Req   types.AggregateRequest
		Specs []types.SeriesSpec
	}{req, specs})
	if err != nil {
		return fmt.Sprintf("%s:%+v:%+v", kind, req, specs)
	}
	return kind + ":" + string(raw)
}
