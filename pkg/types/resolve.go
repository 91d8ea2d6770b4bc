package types

import "time"

// SnapshotRef identifies the snapshot a resolution request selected,
// along with the container context callers need to display or audit it.
type SnapshotRef struct {
	SnapshotID  string
	ContainerID string
	Handle      string
	PeriodDate  time.Time
	Status      string
	Version     int
}

// PeriodInfo is one element of a period listing: a container paired with
// the snapshot selected for it under the requested status filter.
type PeriodInfo struct {
	ContainerID string
	PeriodDate  time.Time
	SnapshotID  string
	Status      string
	Version     int
}

// ListPeriodsRequest bounds and paginates a period listing for one handle.
// Status filters per-period snapshot selection: StatusDraft or
// StatusApproved skip periods lacking a matching snapshot; StatusLatest or
// "" take the most recent snapshot regardless of status.
type ListPeriodsRequest struct {
	Handle   string
	Status   string
	DateFrom time.Time // Zero means unbounded.
	DateTo   time.Time // Zero means unbounded.
	Offset   int
	PageSize int // Zero means the default page size.
}

// PeriodPage is one page of a period listing. Total counts all containers
// matching the date bounds before pagination and status selection.
type PeriodPage struct {
	Handle   string
	Total    int
	Offset   int
	PageSize int
	Periods  []PeriodInfo
}
