// Package resolve selects the snapshot that answers "the data for
// handle H as of date D". Containers carry the period axis; resolution
// walks it newest-first and picks the snapshot matching the requested
// status filter.
package resolve

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/datashelf/pkg/types"
)

// defaultPageSize bounds period listings when the caller supplies none.
const defaultPageSize = 50

// Resolver answers period resolution queries against a Store.
type Resolver struct {
	store types.Store
	log   *zap.SugaredLogger
}

// NewResolver creates a Resolver over store.
func NewResolver(store types.Store) *Resolver {
	return &Resolver{
		store: store,
		log:   zap.S().Named("resolve"),
	}
}

// Resolve finds the snapshot for handle as of onDate, preferring the
// newest period on or before the date. A zero onDate means "most
// recent". When no such period carries a matching snapshot, it falls
// back to the earliest period of the handle that does, so a query dated
// before the first upload still resolves. Status filters snapshot
// selection: StatusDraft or StatusApproved require a snapshot in that
// status, StatusLatest or "" take the most recent snapshot regardless.
func (r *Resolver) Resolve(handle string, onDate time.Time, status string) (*types.SnapshotRef, error) {
	return r.resolve(handle, onDate, status, true)
}

// ResolveStrict is Resolve without the fallback: when no period on or
// before onDate carries a matching snapshot, it returns ErrNotFound.
func (r *Resolver) ResolveStrict(handle string, onDate time.Time, status string) (*types.SnapshotRef, error) {
	return r.resolve(handle, onDate, status, false)
}

func (r *Resolver) resolve(handle string, onDate time.Time, status string, lenient bool) (*types.SnapshotRef, error) {
	if handle == "" {
		return nil, types.ErrInvalidRequest
	}
	if status != "" && status != types.StatusLatest && !types.IsValidStatus(status) {
		return nil, types.ErrInvalidStatus
	}

	filter := map[string]any{
		"handle": handle,
		"order":  "period_desc",
	}
	if !onDate.IsZero() {
		filter["date_to"] = onDate
	}
	containers, err := r.fetchContainers(filter)
	if err != nil {
		return nil, err
	}

	ref, err := r.selectFrom(containers, status)
	if err != nil {
		return nil, err
	}
	if ref != nil {
		return ref, nil
	}

	if !lenient {
		return nil, types.ErrNotFound
	}

	// Fallback: walk every period of the handle oldest-first and take
	// the first one with a matching snapshot.
	containers, err = r.fetchContainers(map[string]any{
		"handle": handle,
		"order":  "period_asc",
	})
	if err != nil {
		return nil, err
	}
	ref, err = r.selectFrom(containers, status)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, types.ErrNotFound
	}
	r.log.Debugw("lenient fallback", "handle", handle, "on_date", onDate.Format(time.DateOnly),
		"resolved_period", ref.PeriodDate.Format(time.DateOnly))
	return ref, nil
}

// selectFrom walks containers in the given order and returns the first
// resolvable snapshot, or nil when none matches.
func (r *Resolver) selectFrom(containers []*types.PeriodContainer, status string) (*types.SnapshotRef, error) {
	for _, c := range containers {
		snap, err := r.selectSnapshot(c.ContainerID, status)
		if err != nil {
			return nil, err
		}
		if snap == nil {
			continue
		}
		return &types.SnapshotRef{
			SnapshotID:  snap.SnapshotID,
			ContainerID: c.ContainerID,
			Handle:      c.Handle,
			PeriodDate:  c.PeriodDate,
			Status:      snap.Status,
			Version:     snap.Version,
		}, nil
	}
	return nil, nil
}

// selectSnapshot picks the newest snapshot of a container under the
// status filter, or nil when the container has no matching snapshot.
func (r *Resolver) selectSnapshot(containerID, status string) (*types.Snapshot, error) {
	filter := map[string]any{
		"container_id": containerID,
		"limit":        1,
	}
	if types.IsValidStatus(status) {
		filter["status"] = status
	}
	snapshots, err := r.store.GetTable(types.SnapshotsTable)
	if err != nil {
		return nil, err
	}
	items, err := snapshots.Fetch(filter)
	if err != nil {
		return nil, fmt.Errorf("fetching snapshots: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0].(*types.Snapshot), nil
}

// ResolveOrCreate returns the snapshot for the exact (handle, periodDate)
// period, creating the container and a default draft snapshot when
// either is missing. A concurrent create losing the unique-index race is
// retried as a fetch, so both racers resolve to the same container.
func (r *Resolver) ResolveOrCreate(handle string, periodDate time.Time, name string) (*types.SnapshotRef, error) {
	if handle == "" || periodDate.IsZero() {
		return nil, types.ErrInvalidRequest
	}

	container, err := r.findContainer(handle, periodDate)
	if err != nil {
		return nil, err
	}
	if container == nil {
		containers, err := r.store.GetTable(types.ContainersTable)
		if err != nil {
			return nil, err
		}
		container = &types.PeriodContainer{
			Handle:     handle,
			PeriodDate: periodDate,
			State:      types.ContainerStateNew,
		}
		if _, err := containers.Set("", container); err != nil {
			if err != types.ErrDuplicatePeriod {
				return nil, fmt.Errorf("creating container: %w", err)
			}
			container, err = r.findContainer(handle, periodDate)
			if err != nil {
				return nil, err
			}
			if container == nil {
				return nil, types.ErrNotFound
			}
		}
	}

	snap, err := r.selectSnapshot(container.ContainerID, types.StatusLatest)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		snapshots, err := r.store.GetTable(types.SnapshotsTable)
		if err != nil {
			return nil, err
		}
		if name == "" {
			name = handle
		}
		snap = &types.Snapshot{
			ContainerID: container.ContainerID,
			Name:        name,
			Status:      types.StatusDraft,
			Version:     1,
			Meta:        map[string]any{types.MetaEditable: true},
		}
		if _, err := snapshots.Set("", snap); err != nil {
			return nil, fmt.Errorf("creating snapshot: %w", err)
		}
	}

	return &types.SnapshotRef{
		SnapshotID:  snap.SnapshotID,
		ContainerID: container.ContainerID,
		Handle:      handle,
		PeriodDate:  container.PeriodDate,
		Status:      snap.Status,
		Version:     snap.Version,
	}, nil
}

// findContainer fetches the container for an exact (handle, periodDate)
// pair, or nil when absent.
func (r *Resolver) findContainer(handle string, periodDate time.Time) (*types.PeriodContainer, error) {
	containers, err := r.fetchContainers(map[string]any{
		"handle":      handle,
		"period_date": periodDate,
	})
	if err != nil {
		return nil, err
	}
	if len(containers) == 0 {
		return nil, nil
	}
	return containers[0], nil
}

// ListPeriods pages through a handle's periods newest-first. Total
// counts every container inside the date bounds; status selection then
// drops periods lacking a matching snapshot from the page items.
func (r *Resolver) ListPeriods(req types.ListPeriodsRequest) (*types.PeriodPage, error) {
	if req.Handle == "" {
		return nil, types.ErrInvalidRequest
	}
	if req.Status != "" && req.Status != types.StatusLatest && !types.IsValidStatus(req.Status) {
		return nil, types.ErrInvalidStatus
	}
	if req.Offset < 0 || req.PageSize < 0 {
		return nil, types.ErrInvalidRequest
	}
	pageSize := req.PageSize
	if pageSize == 0 {
		pageSize = defaultPageSize
	}

	filter := map[string]any{
		"handle": req.Handle,
		"order":  "period_desc",
	}
	if !req.DateFrom.IsZero() {
		filter["date_from"] = req.DateFrom
	}
	if !req.DateTo.IsZero() {
		filter["date_to"] = req.DateTo
	}
	containers, err := r.fetchContainers(filter)
	if err != nil {
		return nil, err
	}

	var periods []types.PeriodInfo
	for _, c := range containers {
		snap, err := r.selectSnapshot(c.ContainerID, req.Status)
		if err != nil {
			return nil, err
		}
		if snap == nil {
			continue
		}
		periods = append(periods, types.PeriodInfo{
			ContainerID: c.ContainerID,
			PeriodDate:  c.PeriodDate,
			SnapshotID:  snap.SnapshotID,
			Status:      snap.Status,
			Version:     snap.Version,
		})
	}

	page := &types.PeriodPage{
		Handle:   req.Handle,
		Total:    len(containers),
		Offset:   req.Offset,
		PageSize: pageSize,
	}
	if req.Offset < len(periods) {
		end := req.Offset + pageSize
		if end > len(periods) {
			end = len(periods)
		}
		page.Periods = periods[req.Offset:end]
	}
	return page, nil
}

func (r *Resolver) fetchContainers(filter map[string]any) ([]*types.PeriodContainer, error) {
	containers, err := r.store.GetTable(types.ContainersTable)
	if err != nil {
		return nil, err
	}
	items, err := containers.Fetch(filter)
	if err != nil {
		return nil, fmt.Errorf("fetching containers: %w", err)
	}
	out := make([]*types.PeriodContainer, 0, len(items))
	for _, item := range items {
		out = append(out, item.(*types.PeriodContainer))
	}
	return out, nil
}
