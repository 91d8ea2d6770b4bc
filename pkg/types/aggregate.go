package types

// Aggregate functions accepted in a metric spec.
const (
	AggCount = "count"
	AggSum   = "sum"
	AggAvg   = "avg"
	AggMin   = "min"
	AggMax   = "max"
)

// IsValidAgg reports whether fn is a recognized aggregate function.
func IsValidAgg(fn string) bool {
	switch fn {
	case AggCount, AggSum, AggAvg, AggMin, AggMax:
		return true
	}
	return false
}

// AggregateRequest describes one grouped or scalar aggregation over a
// snapshot's rows. Metric is "fn:field" (e.g. "sum:amount"); a bare
// "count" needs no field. Filters and Excludes map a field name to a
// single value or a []any of values, compared on the field's text
// rendering. When Filters[GroupBy] is a list, its order dictates the
// output order.
type AggregateRequest struct {
	SnapshotID string
	GroupBy    string
	Metric     string
	DateField  string
	DateFrom   string // Compared lexically against the field's text (ISO dates).
	DateTo     string
	Filters    map[string]any
	Excludes   map[string]any
}

// KeyValue is one aggregation bucket.
type KeyValue struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// SeriesSpec names one series of a multi-series aggregation. Field is
// ignored for the count metric.
type SeriesSpec struct {
	Metric string
	Field  string
	Name   string
}

// Series is one aligned value array of a multi-series result.
type Series struct {
	Name string    `json:"name"`
	Data []float64 `json:"data"`
}

// SeriesResult is a shared group axis plus one value array per series.
// Axis values missing from a series are back-filled with 0.
type SeriesResult struct {
	X      []string `json:"x"`
	Series []Series `json:"series"`
}

// FacetValue is one entry of a facet's top-value list.
type FacetValue struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// NumericRange is the numeric min/max of a facet field, over values
// coercible under the dirty-number tolerance rule.
type NumericRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DateRange is the date min/max of a facet field in ISO text.
type DateRange struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

// Facet summarizes one field's value distribution across a snapshot.
// NumericRange and DateRange are nil when no value coerces.
type Facet struct {
	Top          []FacetValue  `json:"top"`
	NumericRange *NumericRange `json:"numeric_range,omitempty"`
	DateRange    *DateRange    `json:"date_range,omitempty"`
}

// KeyProfile summarizes the observed shape of one key across a row
// sample: how many values rendered as numbers, dates, or text, plus up
// to three sample values.
type KeyProfile struct {
	Key     string
	Total   int
	Numeric int
	Date    int
	Text    int
	Samples []string
}
