package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/datashelf/pkg/types"
)

func testRows(payloads ...map[string]any) []*types.Row {
	rows := make([]*types.Row, 0, len(payloads))
	for i, p := range payloads {
		rows = append(rows, &types.Row{RowID: int64(i + 1), Data: p})
	}
	return rows
}

func TestAggregate_SumToleratesDirtyValues(t *testing.T) {
	e := NewEngine(0, 0)
	rows := testRows(
		map[string]any{"amount": "5"},
		map[string]any{"amount": "7,5"},
		map[string]any{"amount": "x"},
	)

	result, err := e.Aggregate(rows, types.AggregateRequest{Metric: "sum:amount"})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "all", result[0].Key)
	assert.Equal(t, 12.5, result[0].Value)
}

func TestAggregate_NBSPAndSpacesStripped(t *testing.T) {
	e := NewEngine(0, 0)
	rows := testRows(
		map[string]any{"amount": "1 000"},
		map[string]any{"amount": " 2 000 "},
	)

	result, err := e.Aggregate(rows, types.AggregateRequest{Metric: "sum:amount"})
	require.NoError(t, err)
	assert.Equal(t, 3000.0, result[0].Value)
}

func TestAggregate_AllDirtyBucketIsZero(t *testing.T) {
	e := NewEngine(0, 0)
	rows := testRows(
		map[string]any{"region": "A", "amount": "n/a"},
		map[string]any{"region": "A", "amount": nil},
	)

	result, err := e.Aggregate(rows, types.AggregateRequest{GroupBy: "region", Metric: "sum:amount"})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "A", result[0].Key)
	assert.Equal(t, 0.0, result[0].Value)
}

func TestAggregate_AvgExcludesDirtyFromDenominator(t *testing.T) {
	e := NewEngine(0, 0)
	rows := testRows(
		map[string]any{"amount": "4"},
		map[string]any{"amount": "6"},
		map[string]any{"amount": "oops"},
	)

	result, err := e.Aggregate(rows, types.AggregateRequest{Metric: "avg:amount"})
	require.NoError(t, err)
	assert.Equal(t, 5.0, result[0].Value)
}

func TestAggregate_CountCountsRowsNotNumbers(t *testing.T) {
	e := NewEngine(0, 0)
	rows := testRows(
		map[string]any{"region": "A"},
		map[string]any{"region": "A"},
		map[string]any{"region": "B"},
	)

	result, err := e.Aggregate(rows, types.AggregateRequest{GroupBy: "region", Metric: "count"})
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, types.KeyValue{Key: "A", Value: 2}, result[0])
	assert.Equal(t, types.KeyValue{Key: "B", Value: 1}, result[1])
}

func TestAggregate_MinMax(t *testing.T) {
	e := NewEngine(0, 0)
	rows := testRows(
		map[string]any{"amount": "3"},
		map[string]any{"amount": "-1,5"},
		map[string]any{"amount": "10"},
	)

	result, err := e.Aggregate(rows, types.AggregateRequest{Metric: "min:amount"})
	require.NoError(t, err)
	assert.Equal(t, -1.5, result[0].Value)

	result, err = e.Aggregate(rows, types.AggregateRequest{Metric: "max:amount"})
	require.NoError(t, err)
	assert.Equal(t, 10.0, result[0].Value)
}

func TestAggregate_CaseInsensitiveFieldResolution(t *testing.T) {
	e := NewEngine(0, 0)
	rows := testRows(
		map[string]any{"Region": "A", "Amount": "5"},
		map[string]any{"Region": "B", "Amount": "7"},
	)

	result, err := e.Aggregate(rows, types.AggregateRequest{GroupBy: "region", Metric: "sum:amount"})
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, types.KeyValue{Key: "A", Value: 5}, result[0])
	assert.Equal(t, types.KeyValue{Key: "B", Value: 7}, result[1])
}

func TestAggregate_UnknownFieldYieldsEmptyResult(t *testing.T) {
	e := NewEngine(0, 0)
	rows := testRows(
		map[string]any{"region": "A", "amount": "5"},
	)

	// An unresolvable filter field matches nothing.
	result, err := e.Aggregate(rows, types.AggregateRequest{
		GroupBy: "region",
		Metric:  "count",
		Filters: map[string]any{"ghost": "x"},
	})
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestAggregate_ExplicitOrderFromFilterList(t *testing.T) {
	e := NewEngine(0, 0)
	rows := testRows(
		map[string]any{"region": "A", "amount": "1"},
		map[string]any{"region": "B", "amount": "2"},
		map[string]any{"region": "C", "amount": "3"},
	)

	result, err := e.Aggregate(rows, types.AggregateRequest{
		GroupBy: "region",
		Metric:  "sum:amount",
		Filters: map[string]any{"region": []any{"B", "A", "Z"}},
	})
	require.NoError(t, err)
	// Listed order wins, and the zero-row "Z" is dropped.
	require.Len(t, result, 2)
	assert.Equal(t, "B", result[0].Key)
	assert.Equal(t, "A", result[1].Key)
}

func TestAggregate_ExcludesDropMatchingRows(t *testing.T) {
	e := NewEngine(0, 0)
	rows := testRows(
		map[string]any{"region": "A", "amount": "1"},
		map[string]any{"region": "B", "amount": "2"},
	)

	result, err := e.Aggregate(rows, types.AggregateRequest{
		Metric:   "sum:amount",
		Excludes: map[string]any{"region": "B"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, result[0].Value)
}

func TestAggregate_DateRangeFiltersLexically(t *testing.T) {
	e := NewEngine(0, 0)
	rows := testRows(
		map[string]any{"day": "2026-01-10", "amount": "1"},
		map[string]any{"day": "2026-02-10", "amount": "2"},
		map[string]any{"day": "2026-03-10", "amount": "4"},
	)

	result, err := e.Aggregate(rows, types.AggregateRequest{
		Metric:    "sum:amount",
		DateField: "day",
		DateFrom:  "2026-02-01",
		DateTo:    "2026-02-28",
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, result[0].Value)
}

func TestAggregate_NumericGroupKeysRenderPlain(t *testing.T) {
	e := NewEngine(0, 0)
	// JSON decoding yields float64 for numbers; keys must not grow an
	// exponent or trailing zeros.
	rows := testRows(
		map[string]any{"year": float64(2026), "amount": "1"},
		map[string]any{"year": float64(2026), "amount": "2"},
	)

	result, err := e.Aggregate(rows, types.AggregateRequest{GroupBy: "year", Metric: "sum:amount"})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "2026", result[0].Key)
}

func TestAggregate_InvalidMetric(t *testing.T) {
	e := NewEngine(0, 0)
	rows := testRows(map[string]any{"amount": "1"})

	_, err := e.Aggregate(rows, types.AggregateRequest{Metric: "median:amount"})
	assert.ErrorIs(t, err, types.ErrInvalidRequest)

	_, err = e.Aggregate(rows, types.AggregateRequest{Metric: "sum"})
	assert.ErrorIs(t, err, types.ErrInvalidRequest)
}

func TestMultiSeries_AlignsAndBackfills(t *testing.T) {
	e := NewEngine(0, 0)
	rows := testRows(
		map[string]any{"region": "A", "amount": "5", "units": "2"},
		map[string]any{"region": "B", "amount": "7"},
		map[string]any{"region": "B", "units": "3"},
	)

	result, err := e.MultiSeries(rows, types.AggregateRequest{GroupBy: "region"}, []types.SeriesSpec{
		{Metric: types.AggSum, Field: "amount", Name: "revenue"},
		{Metric: types.AggSum, Field: "units"},
		{Metric: types.AggCount, Name: "rows"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, result.X)
	require.Len(t, result.Series, 3)
	assert.Equal(t, "revenue", result.Series[0].Name)
	assert.Equal(t, []float64{5, 7}, result.Series[0].Data)
	assert.Equal(t, "sum:units", result.Series[1].Name)
	assert.Equal(t, []float64{2, 3}, result.Series[1].Data)
	assert.Equal(t, []float64{1, 2}, result.Series[2].Data)
}

func TestMultiSeries_NoSpecs(t *testing.T) {
	e := NewEngine(0, 0)
	_, err := e.MultiSeries(nil, types.AggregateRequest{}, nil)
	assert.ErrorIs(t, err, types.ErrInvalidRequest)
}
