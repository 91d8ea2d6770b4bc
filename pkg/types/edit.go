package types

// RowUpsert is one batch-edit item. ID zero means "create a new row";
// Version is ignored for creates. For updates, Version must equal the
// row's current version (revision count + 1) or the item fails with a
// version conflict.
type RowUpsert struct {
	ID      int64          `json:"id"`
	Version int            `json:"version"`
	Data    map[string]any `json:"data"`
}

// BatchEditRequest is one concurrency-safe batch mutation of a snapshot's
// rows. Deletes execute before upserts. Actor is the acting principal
// recorded in the revision ledger.
type BatchEditRequest struct {
	SnapshotID string
	DeleteIDs  []int64
	Upserts    []RowUpsert
	Actor      string
}

// ItemError carries the per-item failures of one batch-edit item.
// A validation or version failure is local to its item and never aborts
// the rest of the batch.
type ItemError struct {
	ID     int64    `json:"id"`
	Errors []string `json:"errors"`
}

// BatchEditResult reports a batch edit's outcome. The batch succeeded
// fully iff Errors is empty; otherwise it partially succeeded and the
// caller must inspect the per-item errors. Deleted counts the rows the
// batch actually removed; a delete of an absent id contributes nothing.
type BatchEditResult struct {
	SavedIDs []int64     `json:"saved_ids"`
	Deleted  int         `json:"deleted"`
	Errors   []ItemError `json:"errors"`
}

// Ok reports whether every item in the batch was accepted.
func (r BatchEditResult) Ok() bool {
	return len(r.Errors) == 0
}

// InsertResult reports a bulk import's outcome. Deleted counts the rows
// removed by truncation before the insert.
type InsertResult struct {
	RowIDs  []int64 `json:"row_ids"`
	Deleted int     `json:"deleted"`
}
