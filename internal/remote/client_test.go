package remote_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/prepportal/internal/errors"
	"github.com/vytor/prepportal/internal/models"
	"github.com/vytor/prepportal/internal/remote"
)

func writeEnvelope(t *testing.T, w http.ResponseWriter, status int, success bool, data any, msg string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"success": success}
	if data != nil {
		body["data"] = data
	}
	if msg != "" {
		body["error"] = msg
	}
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestClient_FetchProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/progress", r.URL.Path)
		assert.Equal(t, "standard", r.URL.Query().Get("track"))
		assert.Equal(t, "alice", r.Header.Get(remote.UserHeader))
		writeEnvelope(t, w, http.StatusOK, true, []map[string]any{
			{"track_id": "standard", "day_number": 2, "completed": true, "tasks_completed": `{"0":true}`},
			{"track_id": "standard", "day_number": 3, "completed": false, "tasks_completed": map[string]bool{"1": true}},
		}, "")
	}))
	defer srv.Close()

	c := remote.New(srv.URL+"/", "alice")
	days, err := c.FetchProgress(context.Background(), "standard")

	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, models.DayKey{Track: "standard", Day: 2}, days[0].Key())
	assert.Equal(t, models.TaskFlags{"0": true}, days[0].TasksCompleted)
	assert.Equal(t, models.TaskFlags{"1": true}, days[1].TasksCompleted)
}

func TestClient_NonSuccessEnvelopeIsRemoteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A 200 without success:true is still a failure.
		writeEnvelope(t, w, http.StatusOK, false, nil, "database locked")
	}))
	defer srv.Close()

	_, err := remote.New(srv.URL, "alice").FetchStats(context.Background())

	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.ErrCodeRemoteUnavailable))
	assert.Contains(t, err.Error(), "database locked")
}

func TestClient_TransportFailureIsRemoteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	err := remote.New(srv.URL, "alice").ResetProgress(context.Background())

	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.ErrCodeRemoteUnavailable))
}

func TestClient_GarbageBodyIsRemoteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	_, err := remote.New(srv.URL, "alice").FetchProgress(context.Background(), "")

	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.ErrCodeRemoteUnavailable))
}

func TestClient_NotAuthenticated(t *testing.T) {
	c := remote.New("http://localhost:1", "")
	assert.False(t, c.Authenticated())
	assert.False(t, remote.New("", "alice").Authenticated())

	_, err := c.FetchStats(context.Background())
	assert.True(t, errors.IsKind(err, errors.ErrCodeRemoteUnavailable))
}

func TestClient_UpdateProgressSendsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/progress/standard/4", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body models.DayUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body.Completed)
		assert.Equal(t, models.TaskFlags{"2": true}, body.TasksCompleted)

		writeEnvelope(t, w, http.StatusOK, true, map[string]any{
			"track_id": "standard", "day_number": 4, "completed": true,
			"tasks_completed": map[string]bool{"2": true}, "updated_at": "2024-01-02T00:00:00.000Z",
		}, "")
	}))
	defer srv.Close()

	stored, err := remote.New(srv.URL, "alice").UpdateProgress(context.Background(), "standard", 4,
		models.DayUpdate{Completed: true, TasksCompleted: models.TaskFlags{"2": true}})

	require.NoError(t, err)
	assert.Equal(t, "2024-01-02T00:00:00.000Z", stored.UpdatedAt)
}

// fakeStore is an in-memory remote.Store.
type fakeStore struct {
	mu      sync.Mutex
	days    []models.DayProgress
	stats   *models.RemoteStats
	updates map[models.DayKey]models.DayUpdate
	err     error
}

func (f *fakeStore) Authenticated() bool { return true }

func (f *fakeStore) FetchProgress(context.Context, string) ([]models.DayProgress, error) {
	return f.days, f.err
}

func (f *fakeStore) FetchStats(context.Context) (*models.RemoteStats, error) {
	return f.stats, f.err
}

func (f *fakeStore) UpdateProgress(_ context.Context, track string, day int, u models.DayUpdate) (*models.DayProgress, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updates == nil {
		f.updates = map[models.DayKey]models.DayUpdate{}
	}
	f.updates[models.DayKey{Track: track, Day: day}] = u
	stamp := time.Date(2024, 1, 1, 0, 0, day, 0, time.UTC).Format(models.TimestampLayout)
	return &models.DayProgress{TrackID: track, DayNumber: day, UpdatedAt: stamp}, nil
}

func (f *fakeStore) UpdateStats(context.Context, models.StatsUpdate) (*models.RemoteStats, error) {
	return f.stats, f.err
}

func (f *fakeStore) ResetProgress(context.Context) error { return f.err }

func TestFetchSnapshot_Record(t *testing.T) {
	last := "2024-01-02T00:00:00.000Z"
	store := &fakeStore{
		days: []models.DayProgress{
			{TrackID: "standard", DayNumber: 2, Completed: true, TasksCompleted: models.TaskFlags{"0": true, "standard-2-task-5": false, "notes": true}},
			{TrackID: "advanced", DayNumber: 1, Completed: false},
		},
		stats: &models.RemoteStats{TotalStudyTime: 90, QuestionsStudied: 3, LastActivity: &last},
	}

	snap, err := remote.FetchSnapshot(context.Background(), store, "")
	require.NoError(t, err)
	rec := snap.Record()

	assert.Equal(t, models.SourceDatabase, rec.Source)
	assert.Equal(t, map[string]bool{"standard-2": true, "advanced-1": false}, rec.CompletedDays)
	assert.Equal(t, map[string]bool{
		"standard-2-task-0": true,
		"standard-2-task-5": false,
		"standard-2-task-notes": true,
	}, rec.Tasks)
	require.NotNil(t, rec.LastSynced)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), *rec.LastSynced)
	assert.Equal(t, 90, rec.Analytics[models.AnalyticsTotalStudyTime])
}

func TestFetchSnapshot_FailsWhenEitherCallFails(t *testing.T) {
	store := &fakeStore{err: errors.NewRemoteUnavailableError("fetch", errors.New("offline"))}
	_, err := remote.FetchSnapshot(context.Background(), store, "")
	assert.True(t, errors.IsKind(err, errors.ErrCodeRemoteUnavailable))
}

func TestEntries(t *testing.T) {
	rec := models.NewProgressRecord()
	rec.CompletedDays["standard-2"] = true
	rec.CompletedDays["advanced-1"] = false
	rec.CompletedDays["my-track-3"] = true
	rec.CompletedDays["garbage"] = true
	rec.Tasks["standard-2-task-0"] = true
	rec.Tasks["standard-4-task-1"] = true
	rec.Tasks["standard-2-task-x"] = true

	entries, skipped := remote.Entries(rec)

	require.Len(t, entries, 3)
	assert.Equal(t, models.DayKey{Track: "advanced", Day: 1}, entries[0].Day)
	assert.False(t, entries[0].Update.Completed)
	assert.Equal(t, models.DayKey{Track: "standard", Day: 2}, entries[1].Day)
	assert.True(t, entries[1].Update.Completed)
	assert.Equal(t, models.TaskFlags{"0": true}, entries[1].Update.TasksCompleted)
	assert.Equal(t, models.DayKey{Track: "standard", Day: 4}, entries[2].Day)
	assert.False(t, entries[2].Update.Completed)
	assert.Equal(t, models.TaskFlags{"1": true}, entries[2].Update.TasksCompleted)

	assert.Equal(t, []string{"garbage", "my-track-3", "standard-2-task-x"}, skipped)
}

func TestPushRecord(t *testing.T) {
	store := &fakeStore{}
	rec := models.NewProgressRecord()
	rec.CompletedDays["standard-1"] = true
	rec.CompletedDays["standard-3"] = true

	latest, err := remote.PushRecord(context.Background(), store, rec)

	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 3, 0, time.UTC), latest)
	assert.Len(t, store.updates, 2)
	assert.True(t, store.updates[models.DayKey{Track: "standard", Day: 3}].Completed)
}

func TestInSync(t *testing.T) {
	current := models.NewProgressRecord()
	current.CompletedDays["standard-1"] = true
	current.Tasks["standard-1-task-0"] = true

	same := current.Clone()
	same.CompletedDays["free-form"] = true
	assert.True(t, remote.InSync(same, current), "keys that are never sent are ignored")

	extraDay := current.Clone()
	extraDay.CompletedDays["standard-2"] = true
	assert.False(t, remote.InSync(extraDay, current))

	flipped := current.Clone()
	flipped.Tasks["standard-1-task-0"] = false
	assert.False(t, remote.InSync(flipped, current))
}
