// Package types defines the Store and Table interfaces, entity types,
// and standard error values for the datashelf storage core.
//
// The core holds schema-less tabular data keyed by a logical dataset
// handle and a business period date. Entities: PeriodContainer (one per
// handle+date), Snapshot (a versioned, statused body of rows), Row (one
// schema-less record), Revision (immutable audit record of one row
// mutation), Template (validation rules for editable snapshots), and
// Event (the change journal).
package types
