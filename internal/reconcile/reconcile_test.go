package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/prepportal/internal/clock"
	"github.com/vytor/prepportal/internal/errors"
	"github.com/vytor/prepportal/internal/kv"
	"github.com/vytor/prepportal/internal/models"
	"github.com/vytor/prepportal/internal/progress"
	"github.com/vytor/prepportal/internal/reconcile"
	"github.com/vytor/prepportal/internal/testutil/mocks"
)

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func record(days map[string]bool, tasks map[string]bool) *models.ProgressRecord {
	r := models.NewProgressRecord()
	r.Source = models.SourceLocal
	for k, v := range days {
		r.CompletedDays[k] = v
	}
	for k, v := range tasks {
		r.Tasks[k] = v
	}
	return r
}

func TestChoose(t *testing.T) {
	a := *ts("2024-01-01T00:00:00Z")
	b := *ts("2024-01-02T00:00:00Z")

	assert.Equal(t, reconcile.StrategyPush, reconcile.Choose(b, a))
	assert.Equal(t, reconcile.StrategyPull, reconcile.Choose(a, b))
	assert.Equal(t, reconcile.StrategyMerge, reconcile.Choose(a, a))
	assert.Equal(t, reconcile.StrategyMerge, reconcile.Choose(time.Time{}, time.Time{}))
	assert.Equal(t, reconcile.StrategyPull, reconcile.Choose(time.Time{}, a))
}

func TestMerge_UnionIsSymmetricOnDisjointKeys(t *testing.T) {
	a := record(map[string]bool{"a": true}, nil)
	b := record(map[string]bool{"b": true}, nil)

	ab := reconcile.Merge(a, b)
	ba := reconcile.Merge(b, a)

	assert.Equal(t, map[string]bool{"a": true, "b": true}, ab.CompletedDays)
	assert.Equal(t, ab.CompletedDays, ba.CompletedDays)
	assert.Equal(t, models.SourceMerged, ab.Source)
}

func TestMerge_RemoteWinsOnConflict(t *testing.T) {
	local := record(map[string]bool{"a": true}, map[string]bool{"a-1-task-0": true})
	remote := record(map[string]bool{"a": false}, map[string]bool{"a-1-task-0": false})
	local.Analytics = map[string]int{models.AnalyticsCurrentStreak: 3, "local": 1}
	remote.Analytics = map[string]int{models.AnalyticsCurrentStreak: 5}

	merged := reconcile.Merge(local, remote)

	assert.Equal(t, map[string]bool{"a": false}, merged.CompletedDays)
	assert.Equal(t, map[string]bool{"a-1-task-0": false}, merged.Tasks)
	assert.Equal(t, map[string]int{models.AnalyticsCurrentStreak: 5, "local": 1}, merged.Analytics)
	assert.True(t, local.CompletedDays["a"], "inputs are not modified")
}

func TestMerge_Idempotent(t *testing.T) {
	local := record(map[string]bool{"a": true, "c": false}, map[string]bool{"x": true})
	remote := record(map[string]bool{"b": true, "c": true}, map[string]bool{"y": false})

	once := reconcile.Merge(local, remote)
	twice := reconcile.Merge(once, remote)
	again := reconcile.Merge(local, remote)

	assert.Equal(t, once.CompletedDays, twice.CompletedDays)
	assert.Equal(t, once.Tasks, twice.Tasks)
	assert.Equal(t, once.CompletedDays, again.CompletedDays)
	assert.Equal(t, once.Tasks, again.Tasks)
}

type fixture struct {
	kv         *kv.MemoryStore
	remote     *mocks.MockRemoteStore
	store      *progress.Store
	reconciler *reconcile.Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{kv: kv.NewMemoryStore(0), remote: &mocks.MockRemoteStore{}}
	f.store = progress.NewStore(f.kv,
		progress.WithRemote(f.remote),
		progress.WithClock(clock.NewFixed(time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC))),
	)
	f.reconciler = reconcile.New(f.store)
	f.remote.On("Authenticated").Return(true)
	t.Cleanup(func() { f.remote.AssertExpectations(t) })
	return f
}

func (f *fixture) remoteState(days []models.DayProgress, lastActivity string) {
	stats := &models.RemoteStats{}
	if lastActivity != "" {
		stats.LastActivity = &lastActivity
	}
	f.remote.On("FetchProgress", mock.Anything, "").Return(days, nil)
	f.remote.On("FetchStats", mock.Anything).Return(stats, nil)
}

func TestReconcile_PullReplacesWholesale(t *testing.T) {
	f := newFixture(t)
	f.remoteState([]models.DayProgress{
		{TrackID: "standard", DayNumber: 2, Completed: true},
	}, "2024-01-02T00:00:00.000Z")

	local := record(map[string]bool{"standard-1": true}, nil)
	local.LastSynced = ts("2024-01-01T00:00:00Z")
	require.NoError(t, f.store.SaveLocal(context.Background(), local))

	res, err := f.reconciler.Reconcile(context.Background(), local)
	require.NoError(t, err)

	assert.Equal(t, reconcile.StrategyPull, res.Strategy)
	assert.Equal(t, map[string]bool{"standard-2": true}, res.Record.CompletedDays)
	assert.NotContains(t, res.Record.CompletedDays, "standard-1")
	assert.Equal(t, models.SourceDatabase, res.Record.Source)
	assert.True(t, res.Previous.CompletedDays["standard-1"])

	stored := f.store.LoadLocal(context.Background())
	assert.Equal(t, map[string]bool{"standard-2": true}, stored.CompletedDays)
	f.remote.AssertNotCalled(t, "UpdateProgress", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_PushWhenLocalNewer(t *testing.T) {
	f := newFixture(t)
	f.remoteState([]models.DayProgress{
		{TrackID: "standard", DayNumber: 9, Completed: true},
	}, "2024-01-01T00:00:00.000Z")
	f.remote.On("UpdateProgress", mock.Anything, "standard", 1, mock.MatchedBy(func(u models.DayUpdate) bool {
		return u.Completed
	})).Return(&models.DayProgress{UpdatedAt: "2024-01-03T00:00:00.000Z"}, nil).Once()

	local := record(map[string]bool{"standard-1": true}, nil)
	local.LastSynced = ts("2024-01-02T00:00:00Z")

	res, err := f.reconciler.Reconcile(context.Background(), local)
	require.NoError(t, err)

	assert.Equal(t, reconcile.StrategyPush, res.Strategy)
	assert.Equal(t, map[string]bool{"standard-1": true}, res.Record.CompletedDays)
	assert.Equal(t, *ts("2024-01-03T00:00:00Z"), res.Record.Timestamp())
	assert.Equal(t, *ts("2024-01-02T00:00:00Z"), local.Timestamp(), "caller's record is not modified")
	assert.Equal(t, *ts("2024-01-03T00:00:00Z"), f.store.LoadLocal(context.Background()).Timestamp())
}

func TestReconcile_MergeWhenNeitherSideHasATimestamp(t *testing.T) {
	f := newFixture(t)
	f.remoteState([]models.DayProgress{
		{TrackID: "standard", DayNumber: 2, Completed: true},
	}, "")
	f.remote.On("UpdateProgress", mock.Anything, "standard", mock.Anything, mock.Anything).
		Return(&models.DayProgress{UpdatedAt: "2024-01-05T09:00:00.000Z"}, nil).Twice()

	local := record(map[string]bool{"standard-1": true}, nil)

	res, err := f.reconciler.Reconcile(context.Background(), local)
	require.NoError(t, err)

	assert.Equal(t, reconcile.StrategyMerge, res.Strategy)
	assert.Equal(t, map[string]bool{"standard-1": true, "standard-2": true}, res.Record.CompletedDays)
	assert.Equal(t, models.SourceMerged, res.Record.Source)
	assert.Equal(t, res.Record.CompletedDays, f.store.LoadLocal(context.Background()).CompletedDays)
}

func TestReconcile_MergeInSyncDoesNotPush(t *testing.T) {
	f := newFixture(t)
	f.remoteState([]models.DayProgress{
		{TrackID: "standard", DayNumber: 1, Completed: true, TasksCompleted: models.TaskFlags{"0": true}},
	}, "2024-01-02T00:00:00.000Z")

	local := record(map[string]bool{"standard-1": true, "notes": true}, map[string]bool{"standard-1-task-0": true})
	local.LastSynced = ts("2024-01-02T00:00:00Z")

	res, err := f.reconciler.Reconcile(context.Background(), local)
	require.NoError(t, err)

	assert.Equal(t, reconcile.StrategyMerge, res.Strategy)
	assert.True(t, res.Record.CompletedDays["notes"], "unsendable keys are kept locally")
	stored := f.store.LoadLocal(context.Background())
	assert.Equal(t, *ts("2024-01-02T00:00:00Z"), stored.Timestamp())
	assert.Equal(t, res.Record.CompletedDays, stored.CompletedDays)
	f.remote.AssertNotCalled(t, "UpdateProgress", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_FetchFailureAborts(t *testing.T) {
	f := newFixture(t)
	offline := errors.NewRemoteUnavailableError("fetch progress", errors.New("offline"))
	f.remote.On("FetchProgress", mock.Anything, "").Return(nil, offline)
	f.remote.On("FetchStats", mock.Anything).Return(&models.RemoteStats{}, nil).Maybe()

	local := record(map[string]bool{"standard-1": true}, nil)
	require.NoError(t, f.store.SaveLocal(context.Background(), local))
	before := local.Clone()

	res, err := f.reconciler.Reconcile(context.Background(), local)

	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.ErrCodeReconciliationAbort))
	assert.Equal(t, before, local)
	assert.Equal(t, before.CompletedDays, f.store.LoadLocal(context.Background()).CompletedDays)
}

func TestReconcile_PushFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.remoteState(nil, "2024-01-01T00:00:00.000Z")
	f.remote.On("UpdateProgress", mock.Anything, "standard", 1, mock.Anything).
		Return(nil, errors.NewRemoteUnavailableError("update progress", errors.New("offline")))

	local := record(map[string]bool{"standard-1": true}, nil)
	local.LastSynced = ts("2024-01-02T00:00:00Z")

	_, err := f.reconciler.Reconcile(context.Background(), local)

	assert.True(t, errors.IsKind(err, errors.ErrCodeReconciliationAbort))
	assert.False(t, f.store.HasLocal(context.Background()))
}

func TestReconcile_NotAuthenticated(t *testing.T) {
	r := &mocks.MockRemoteStore{}
	r.On("Authenticated").Return(false)
	store := progress.NewStore(kv.NewMemoryStore(0), progress.WithRemote(r))

	_, err := reconcile.New(store).Reconcile(context.Background(), models.NewProgressRecord())

	assert.True(t, errors.IsKind(err, errors.ErrCodeReconciliationAbort))
	r.AssertNotCalled(t, "FetchProgress", mock.Anything, mock.Anything)
}
