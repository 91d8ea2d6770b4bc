package shelf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/datashelf/pkg/sqlite"
	"github.com/mesh-intelligence/datashelf/pkg/types"
)

func newService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	cfg := types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}
	store := sqlite.NewBackend()
	require.NoError(t, store.Attach(cfg))
	t.Cleanup(func() { store.Detach() })
	return NewService(store, cfg, opts...)
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	require.NoError(t, err)
	return d
}

func importSales(t *testing.T, s *Service) *types.SnapshotRef {
	t.Helper()
	ref, result, err := s.ImportRows("sales", day(t, "2026-01-31"), []map[string]any{
		{"region": "north", "amount": "5"},
		{"region": "north", "amount": "7,5"},
		{"region": "south", "amount": "x"},
	}, false, "alice")
	require.NoError(t, err)
	require.Len(t, result.RowIDs, 3)
	return ref
}

func TestImportRows_CreatesPeriodAndJournals(t *testing.T) {
	s := newService(t)

	ref := importSales(t, s)
	assert.Equal(t, types.StatusDraft, ref.Status)

	rows, err := s.Rows(ref.SnapshotID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	events, err := s.Journal("sales", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, types.ActionUpload, events[0].Action)
	assert.Equal(t, 3, events[0].RowCount)
	assert.Equal(t, "alice", events[0].Actor)
}

func TestImportRows_TruncateReplacesRows(t *testing.T) {
	s := newService(t)

	ref := importSales(t, s)
	_, result, err := s.ImportRows("sales", day(t, "2026-01-31"), []map[string]any{
		{"region": "east", "amount": "1"},
	}, true, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Deleted)

	rows, err := s.Rows(ref.SnapshotID, 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "east", rows[0].Data["region"])

	events, err := s.Journal("sales", 0)
	require.NoError(t, err)
	assert.Equal(t, types.ActionTruncateUpload, events[0].Action)
}

func TestImportRows_GrantDenied(t *testing.T) {
	s := newService(t, WithEditGrant(func(principal, handle string) bool {
		return principal == "admin"
	}))

	_, _, err := s.ImportRows("sales", day(t, "2026-01-31"), nil, false, "mallory")
	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestResolveRows_ReturnsSnapshotPage(t *testing.T) {
	s := newService(t)

	importSales(t, s)
	page, err := s.ResolveRows("sales", day(t, "2026-02-15"), types.StatusLatest, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, "sales", page.Ref.Handle)
	assert.Len(t, page.Rows, 2)
}

func TestResolveMerged_NewerRowsWin(t *testing.T) {
	s := newService(t)

	_, _, err := s.ImportRows("profile", day(t, "2026-01-31"), []map[string]any{
		{"name": "old co", "city": "malmo"},
		{"parsed": map[string]any{"name": "new co", "phone": "123"}},
	}, false, "alice")
	require.NoError(t, err)

	ref, merged, err := s.ResolveMerged("profile", day(t, "2026-02-15"), types.StatusLatest)
	require.NoError(t, err)
	assert.Equal(t, "profile", ref.Handle)
	assert.Equal(t, map[string]any{
		"name":  "new co",
		"city":  "malmo",
		"phone": "123",
	}, merged)
}

func TestSetSnapshotStatus_RejectsManualDemotion(t *testing.T) {
	s := newService(t)
	ref := importSales(t, s)
	require.NoError(t, s.SetSnapshotStatus(ref.SnapshotID, types.StatusApproved, "alice"))

	assert.ErrorIs(t, s.SetSnapshotStatus(ref.SnapshotID, types.StatusDraft, "alice"), types.ErrInvalidTransition)
	assert.ErrorIs(t, s.SetSnapshotStatus(ref.SnapshotID, "published", "alice"), types.ErrInvalidRequest)
}

func TestAggregate_EndToEndWithDirtyData(t *testing.T) {
	s := newService(t)

	ref := importSales(t, s)
	result, err := s.Aggregate(types.AggregateRequest{
		SnapshotID: ref.SnapshotID,
		GroupBy:    "region",
		Metric:     "sum:amount",
	})
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, types.KeyValue{Key: "north", Value: 12.5}, result[0])
	assert.Equal(t, types.KeyValue{Key: "south", Value: 0}, result[1])
}

func TestAggregate_ServesCachedResult(t *testing.T) {
	s := newService(t)

	ref := importSales(t, s)
	req := types.AggregateRequest{SnapshotID: ref.SnapshotID, Metric: "count"}

	first, err := s.Aggregate(req)
	require.NoError(t, err)
	assert.Equal(t, 3.0, first[0].Value)

	// A write inside the TTL is invisible to the cached read.
	_, _, err = s.ImportRows("sales", day(t, "2026-01-31"), []map[string]any{
		{"region": "west"},
	}, false, "alice")
	require.NoError(t, err)

	second, err := s.Aggregate(req)
	require.NoError(t, err)
	assert.Equal(t, 3.0, second[0].Value)
}

func TestAggregate_CallerMutationDoesNotCorruptCache(t *testing.T) {
	s := newService(t)

	ref := importSales(t, s)
	req := types.AggregateRequest{SnapshotID: ref.SnapshotID, GroupBy: "region", Metric: "sum:amount"}

	first, err := s.Aggregate(req)
	require.NoError(t, err)
	first[0] = types.KeyValue{Key: "hacked", Value: -1}

	second, err := s.Aggregate(req)
	require.NoError(t, err)
	assert.Equal(t, types.KeyValue{Key: "north", Value: 12.5}, second[0])
}

func TestAggregate_CacheDisabledByNegativeTTL(t *testing.T) {
	cfg := types.Config{
		Backend:         types.BackendSQLite,
		DataDir:         t.TempDir(),
		CacheTTLSeconds: -1,
	}
	store := sqlite.NewBackend()
	require.NoError(t, store.Attach(cfg))
	t.Cleanup(func() { store.Detach() })
	s := NewService(store, cfg)

	ref, _, err := s.ImportRows("sales", day(t, "2026-01-31"), []map[string]any{
		{"region": "north"},
	}, false, "alice")
	require.NoError(t, err)

	req := types.AggregateRequest{SnapshotID: ref.SnapshotID, Metric: "count"}
	first, err := s.Aggregate(req)
	require.NoError(t, err)
	assert.Equal(t, 1.0, first[0].Value)

	_, _, err = s.ImportRows("sales", day(t, "2026-01-31"), []map[string]any{
		{"region": "south"},
	}, false, "alice")
	require.NoError(t, err)

	second, err := s.Aggregate(req)
	require.NoError(t, err)
	assert.Equal(t, 2.0, second[0].Value)
}

func TestChartData_SharedAxis(t *testing.T) {
	s := newService(t)

	ref := importSales(t, s)
	result, err := s.ChartData(types.AggregateRequest{
		SnapshotID: ref.SnapshotID,
		GroupBy:    "region",
	}, []types.SeriesSpec{
		{Metric: types.AggSum, Field: "amount", Name: "revenue"},
		{Metric: types.AggCount, Name: "rows"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"north", "south"}, result.X)
	assert.Equal(t, []float64{12.5, 0}, result.Series[0].Data)
	assert.Equal(t, []float64{2, 1}, result.Series[1].Data)
}

func TestBatchEdit_ValidRowsSaveInvalidRowsReport(t *testing.T) {
	s := newService(t)
	ref := importSales(t, s)

	// Bind a template requiring a numeric amount.
	bindTemplate(t, s, ref.SnapshotID)

	rows, err := s.Rows(ref.SnapshotID, 0, 0)
	require.NoError(t, err)

	result, err := s.BatchEdit(types.BatchEditRequest{
		SnapshotID: ref.SnapshotID,
		Upserts: []types.RowUpsert{
			{ID: rows[0].RowID, Version: 2, Data: map[string]any{"region": "north", "amount": "9"}},
			{ID: rows[1].RowID, Version: 2, Data: map[string]any{"region": "north", "amount": "oops"}},
		},
		Actor: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{rows[0].RowID}, result.SavedIDs)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, rows[1].RowID, result.Errors[0].ID)
	assert.Contains(t, result.Errors[0].Errors[0], "not a number")
}

func TestBatchEdit_NotEditableForbidden(t *testing.T) {
	s := newService(t)
	ref := importSales(t, s)

	setSnapshotMeta(t, s, ref.SnapshotID, map[string]any{types.MetaEditable: false})

	_, err := s.BatchEdit(types.BatchEditRequest{SnapshotID: ref.SnapshotID, Actor: "alice"})
	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestBatchEdit_GrantDenied(t *testing.T) {
	s := newService(t, WithEditGrant(func(principal, handle string) bool {
		return principal == "admin" && handle == "sales"
	}))

	ref, _, err := s.ImportRows("sales", day(t, "2026-01-31"), []map[string]any{
		{"amount": "1"},
	}, false, "admin")
	require.NoError(t, err)

	_, err = s.BatchEdit(types.BatchEditRequest{SnapshotID: ref.SnapshotID, Actor: "mallory"})
	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestApprove_Lifecycle(t *testing.T) {
	s := newService(t)
	ref := importSales(t, s)

	require.NoError(t, s.Approve(ref.SnapshotID, "alice"))

	// Re-approving is not a valid transition.
	assert.ErrorIs(t, s.Approve(ref.SnapshotID, "alice"), types.ErrInvalidTransition)

	resolved, err := s.Resolve("sales", day(t, "2026-02-15"), types.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, ref.SnapshotID, resolved.SnapshotID)

	events, err := s.Journal("sales", 0)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, types.ActionStatusChange, events[0].Action)
	assert.Equal(t, types.StatusDraft, events[0].StatusBefore)
	assert.Equal(t, types.StatusApproved, events[0].StatusAfter)
}

func TestBatchEdit_DemotesApprovedAndJournals(t *testing.T) {
	s := newService(t)
	ref := importSales(t, s)
	require.NoError(t, s.Approve(ref.SnapshotID, "alice"))

	rows, err := s.Rows(ref.SnapshotID, 0, 0)
	require.NoError(t, err)

	result, err := s.BatchEdit(types.BatchEditRequest{
		SnapshotID: ref.SnapshotID,
		Upserts: []types.RowUpsert{
			{ID: rows[0].RowID, Version: 2, Data: map[string]any{"region": "west", "amount": "1"}},
		},
		Actor: "bob",
	})
	require.NoError(t, err)
	assert.True(t, result.Ok())

	_, err = s.Resolve("sales", day(t, "2026-02-15"), types.StatusApproved)
	assert.ErrorIs(t, err, types.ErrNotFound)

	events, err := s.Journal("sales", 0)
	require.NoError(t, err)
	assert.Equal(t, types.ActionStatusChange, events[0].Action)
	assert.Equal(t, types.StatusApproved, events[0].StatusBefore)
	assert.Equal(t, types.StatusDraft, events[0].StatusAfter)
}

func TestBatchEdit_AbsentDeletesKeepApprovalAndJournal(t *testing.T) {
	s := newService(t)
	ref := importSales(t, s)
	require.NoError(t, s.Approve(ref.SnapshotID, "alice"))

	result, err := s.BatchEdit(types.BatchEditRequest{
		SnapshotID: ref.SnapshotID,
		DeleteIDs:  []int64{99999},
		Actor:      "bob",
	})
	require.NoError(t, err)
	assert.Zero(t, result.Deleted)

	// Nothing changed, so the snapshot stays approved and no demotion
	// is journaled.
	resolved, err := s.Resolve("sales", day(t, "2026-02-15"), types.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, ref.SnapshotID, resolved.SnapshotID)

	events, err := s.Journal("sales", 0)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, types.StatusApproved, events[0].StatusAfter)
}

func TestEditableSchema_FromBoundTemplate(t *testing.T) {
	s := newService(t)
	ref := importSales(t, s)
	bindTemplate(t, s, ref.SnapshotID)

	schema, err := s.EditableSchema(ref.SnapshotID)
	require.NoError(t, err)
	assert.True(t, schema.Editable)
	assert.Equal(t, "sales-columns", schema.Template)
	require.Len(t, schema.Columns, 2)
	assert.Equal(t, "region", schema.Columns[0].Key)
}

func TestEditableSchema_DanglingTemplateBinding(t *testing.T) {
	s := newService(t)
	ref := importSales(t, s)

	setSnapshotMeta(t, s, ref.SnapshotID, map[string]any{
		types.MetaEditable:   true,
		types.MetaTemplateID: "0199c7d0-0000-7000-8000-000000000000",
	})

	_, err := s.EditableSchema(ref.SnapshotID)
	assert.ErrorIs(t, err, types.ErrTemplateNotBound)
}

func TestProfileAndDistinct(t *testing.T) {
	s := newService(t)
	ref := importSales(t, s)

	profiles, err := s.Profile(ref.SnapshotID)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "amount", profiles[0].Key)
	assert.Equal(t, 2, profiles[0].Numeric)

	values, err := s.Distinct(ref.SnapshotID, "region")
	require.NoError(t, err)
	assert.Equal(t, []string{"north", "south"}, values)
}

// bindTemplate creates a two-column template and binds it to the
// snapshot's metadata.
func bindTemplate(t *testing.T, s *Service, snapshotID string) *types.Template {
	t.Helper()
	templates, err := s.store.GetTable(types.TemplatesTable)
	require.NoError(t, err)
	tpl := &types.Template{
		Name: "sales-columns",
		Columns: []types.ColumnRule{
			{Key: "region", DType: types.DTypeText, Required: true},
			{Key: "amount", DType: types.DTypeNumber},
		},
	}
	_, err = templates.Set("", tpl)
	require.NoError(t, err)

	snap, err := s.getSnapshot(snapshotID)
	require.NoError(t, err)
	meta := snap.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	meta[types.MetaTemplateID] = tpl.TemplateID
	setSnapshotMeta(t, s, snapshotID, meta)
	return tpl
}

func setSnapshotMeta(t *testing.T, s *Service, snapshotID string, meta map[string]any) {
	t.Helper()
	snap, err := s.getSnapshot(snapshotID)
	require.NoError(t, err)
	snap.Meta = meta
	snapshots, err := s.store.GetTable(types.SnapshotsTable)
	require.NoError(t, err)
	_, err = snapshots.Set(snap.SnapshotID, snap)
	require.NoError(t, err)
}
