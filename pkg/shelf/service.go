// Package shelf is the boundary API of datashelf. A Service ties the
// period resolver, the aggregation engine, and the row editing path
// together over one attached store, and is what embedding applications
// talk to.
package shelf

import (
	"fmt"
	"time"

	"github.com/united-manufacturing-hub/expiremap/v2/pkg/expiremap"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/datashelf/internal/aggregate"
	"github.com/mesh-intelligence/datashelf/internal/resolve"
	"github.com/mesh-intelligence/datashelf/pkg/types"
)

// EditGrant decides whether a principal may modify rows of a handle.
// The default grant allows everyone.
type EditGrant func(principal, handle string) bool

// Service is the boundary API over one attached RowStore. It is safe
// for concurrent use.
type Service struct {
	store    types.RowStore
	cfg      types.Config
	resolver *resolve.Resolver
	engine   *aggregate.Engine
	grant    EditGrant
	log      *zap.SugaredLogger

	// Aggregate results are cached for the configured TTL, so readers
	// may observe up to one TTL of staleness after a write. Nil when
	// caching is disabled.
	aggCache   *expiremap.ExpireMap[string, []types.KeyValue]
	chartCache *expiremap.ExpireMap[string, *types.SeriesResult]
}

// Option configures a Service.
type Option func(*Service)

// WithEditGrant installs the edit authorization check.
func WithEditGrant(grant EditGrant) Option {
	return func(s *Service) { s.grant = grant }
}

// WithLogger replaces the service logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Service) { s.log = log }
}

// NewService creates a Service over an attached store.
func NewService(store types.RowStore, cfg types.Config, opts ...Option) *Service {
	s := &Service{
		store:    store,
		cfg:      cfg,
		resolver: resolve.NewResolver(store),
		engine:   aggregate.NewEngine(cfg.GetSampleLimit(), cfg.GetFacetTopN()),
		grant:    func(string, string) bool { return true },
		log:      zap.S().Named("shelf"),
	}
	if ttl := cfg.GetCacheTTL(); ttl > 0 {
		cull := ttl / 2
		if cull < time.Second {
			cull = time.Second
		}
		s.aggCache = expiremap.NewEx[string, []types.KeyValue](cull, ttl)
		s.chartCache = expiremap.NewEx[string, *types.SeriesResult](cull, ttl)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve finds the snapshot for handle as of onDate, falling back to
// the earliest period when nothing exists on or before the date.
func (s *Service) Resolve(handle string, onDate time.Time, status string) (*types.SnapshotRef, error) {
	return s.resolver.Resolve(handle, onDate, status)
}

// ResolveStrict is Resolve without the fallback; it returns ErrNotFound
// when no period on or before onDate matches.
func (s *Service) ResolveStrict(handle string, onDate time.Time, status string) (*types.SnapshotRef, error) {
	return s.resolver.ResolveStrict(handle, onDate, status)
}

// ResolveOrCreate returns the snapshot for the exact period, creating
// the container and a default draft snapshot when missing.
func (s *Service) ResolveOrCreate(handle string, periodDate time.Time, name string) (*types.SnapshotRef, error) {
	return s.resolver.ResolveOrCreate(handle, periodDate, name)
}

// ListPeriods pages through a handle's periods newest-first.
func (s *Service) ListPeriods(req types.ListPeriodsRequest) (*types.PeriodPage, error) {
	return s.resolver.ListPeriods(req)
}

// RowPage is a resolved snapshot together with one page of its rows.
type RowPage struct {
	Ref  types.SnapshotRef
	Rows []*types.Row
}

// Rows lists one page of a snapshot's rows in creation order. A zero
// limit takes the configured default; limits above the configured
// maximum are clamped to it.
func (s *Service) Rows(snapshotID string, limit, offset int) ([]*types.Row, error) {
	if snapshotID == "" {
		return nil, types.ErrInvalidID
	}
	if limit < 0 || offset < 0 {
		return nil, types.ErrInvalidRequest
	}
	if limit == 0 {
		limit = s.cfg.GetDefaultRowLimit()
	}
	if max := s.cfg.GetMaxRowLimit(); limit > max {
		limit = max
	}
	return s.fetchRows(map[string]any{
		"snapshot_id": snapshotID,
		"limit":       limit,
		"offset":      offset,
	})
}

// ResolveRows resolves handle as of onDate and returns the selected
// snapshot with one page of its rows.
func (s *Service) ResolveRows(handle string, onDate time.Time, status string, limit, offset int) (*RowPage, error) {
	ref, err := s.resolver.Resolve(handle, onDate, status)
	if err != nil {
		return nil, err
	}
	rows, err := s.Rows(ref.SnapshotID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &RowPage{Ref: *ref, Rows: rows}, nil
}

// ResolveMerged resolves handle as of onDate and folds the snapshot's
// rows, oldest first, into one payload map: keys from newer rows
// overwrite those from older ones. A row carrying a nested "parsed"
// map contributes that map's keys instead of its own top level.
func (s *Service) ResolveMerged(handle string, onDate time.Time, status string) (*types.SnapshotRef, map[string]any, error) {
	ref, err := s.resolver.Resolve(handle, onDate, status)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.snapshotRows(ref.SnapshotID)
	if err != nil {
		return nil, nil, err
	}
	merged := make(map[string]any)
	for _, row := range rows {
		payload := row.Data
		if parsed, ok := payload["parsed"].(map[string]any); ok {
			payload = parsed
		}
		for k, v := range payload {
			merged[k] = v
		}
	}
	return ref, merged, nil
}

// fetchRows loads rows via the generic table interface.
func (s *Service) fetchRows(filter map[string]any) ([]*types.Row, error) {
	table, err := s.store.GetTable(types.RowsTable)
	if err != nil {
		return nil, err
	}
	items, err := table.Fetch(filter)
	if err != nil {
		return nil, fmt.Errorf("fetching rows: %w", err)
	}
	rows := make([]*types.Row, 0, len(items))
	for _, item := range items {
		rows = append(rows, item.(*types.Row))
	}
	return rows, nil
}

// snapshotRows loads every row of a snapshot for aggregation.
func (s *Service) snapshotRows(snapshotID string) ([]*types.Row, error) {
	if snapshotID == "" {
		return nil, types.ErrInvalidID
	}
	return s.fetchRows(map[string]any{"snapshot_id": snapshotID})
}

// getSnapshot loads one snapshot.
func (s *Service) getSnapshot(snapshotID string) (*types.Snapshot, error) {
	table, err := s.store.GetTable(types.SnapshotsTable)
	if err != nil {
		return nil, err
	}
	item, err := table.Get(snapshotID)
	if err != nil {
		return nil, err
	}
	return item.(*types.Snapshot), nil
}

// getContainer loads one container.
func (s *Service) getContainer(containerID string) (*types.PeriodContainer, error) {
	table, err := s.store.GetTable(types.ContainersTable)
	if err != nil {
		return nil, err
	}
	item, err := table.Get(containerID)
	if err != nil {
		return nil, err
	}
	return item.(*types.PeriodContainer), nil
}
