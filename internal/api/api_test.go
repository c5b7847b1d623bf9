package api_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/prepportal/internal/api"
	"github.com/vytor/prepportal/internal/clock"
	"github.com/vytor/prepportal/internal/errors"
	"github.com/vytor/prepportal/internal/models"
	"github.com/vytor/prepportal/internal/remote"
	"github.com/vytor/prepportal/internal/repository/sqlite"
	"github.com/vytor/prepportal/internal/services"
	"github.com/vytor/prepportal/internal/testutil"
)

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func newServer(t *testing.T) (http.Handler, *sql.DB, *clock.Fixed) {
	t.Helper()
	sqlDB := testutil.NewTestDB(t)
	t.Cleanup(func() { testutil.MustClose(t, sqlDB) })

	clk := clock.NewFixed(time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC))
	progressRepo := sqlite.NewProgressRepository(sqlDB)
	statsRepo := sqlite.NewStatsRepository(sqlDB)
	srv := &api.Server{
		ProgressService: services.NewProgressService(progressRepo, statsRepo, clk),
		StatsService:    services.NewStatsService(progressRepo, statsRepo, clk),
		DB:              sqlDB,
	}
	return srv.Routes(), sqlDB, clk
}

func do(t *testing.T, h http.Handler, method, path, user, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		req.Header.Set(remote.UserHeader, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestHealthAndReady(t *testing.T) {
	h, _, _ := newServer(t)

	rec, _ := do(t, h, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec, _ = do(t, h, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReady_DatabaseClosed(t *testing.T) {
	h, sqlDB, _ := newServer(t)
	require.NoError(t, sqlDB.Close())

	rec, _ := do(t, h, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPI_RequiresUser(t *testing.T) {
	h, _, _ := newServer(t)

	rec, resp := do(t, h, http.MethodGet, "/api/progress", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, errors.ErrCodeUnauthorized, resp.Error)
}

func TestAPI_ProgressLifecycle(t *testing.T) {
	h, _, _ := newServer(t)

	rec, resp := do(t, h, http.MethodPut, "/api/progress/standard/2", "u1",
		`{"completed":true,"tasks_completed":{"0":true},"study_time":30}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, resp.Success)

	var stored models.DayProgress
	require.NoError(t, json.Unmarshal(resp.Data, &stored))
	assert.Equal(t, "standard", stored.TrackID)
	assert.Equal(t, 2, stored.DayNumber)
	require.NotNil(t, stored.CompletionDate)
	assert.Equal(t, "2024-01-03", *stored.CompletionDate)
	assert.Equal(t, "2024-01-03T09:00:00.000Z", stored.UpdatedAt)

	_, resp = do(t, h, http.MethodPut, "/api/progress/advanced/1", "u1", `{"completed":false,"tasks_completed":"{\"1\":true}"}`)
	require.True(t, resp.Success)

	_, resp = do(t, h, http.MethodGet, "/api/progress?track=standard", "u1", "")
	require.True(t, resp.Success)
	var rows []models.DayProgress
	require.NoError(t, json.Unmarshal(resp.Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, models.TaskFlags{"0": true}, rows[0].TasksCompleted)

	_, resp = do(t, h, http.MethodGet, "/api/progress", "u2", "")
	require.True(t, resp.Success)
	assert.JSONEq(t, `[]`, string(resp.Data))

	rec, resp = do(t, h, http.MethodDelete, "/api/progress", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	_, resp = do(t, h, http.MethodGet, "/api/progress", "u1", "")
	assert.JSONEq(t, `[]`, string(resp.Data))
}

func TestAPI_ProgressValidation(t *testing.T) {
	h, _, _ := newServer(t)

	tests := []struct {
		name string
		path string
		body string
		code string
	}{
		{name: "non-numeric day", path: "/api/progress/standard/abc", body: `{}`, code: errors.ErrCodeValidation},
		{name: "day zero", path: "/api/progress/standard/0", body: `{}`, code: errors.ErrCodeValidation},
		{name: "dash in track", path: "/api/progress/my-track/1", body: `{}`, code: errors.ErrCodeValidation},
		{name: "negative study time", path: "/api/progress/standard/1", body: `{"study_time":-5}`, code: errors.ErrCodeValidation},
		{name: "bad json", path: "/api/progress/standard/1", body: `{`, code: errors.ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := do(t, h, http.MethodPut, tt.path, "u1", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Error)
		})
	}
}

func TestAPI_Stats(t *testing.T) {
	h, _, clk := newServer(t)

	_, resp := do(t, h, http.MethodGet, "/api/stats", "u1", "")
	require.True(t, resp.Success)
	var stats models.RemoteStats
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	assert.Nil(t, stats.LastActivity)

	do(t, h, http.MethodPut, "/api/progress/standard/1", "u1", `{"completed":true,"study_time":20}`)
	clk.Advance(time.Hour)
	do(t, h, http.MethodPut, "/api/progress/standard/2", "u1", `{"completed":false,"study_time":15}`)
	clk.Advance(time.Hour)

	_, resp = do(t, h, http.MethodPut, "/api/stats", "u1", `{"questions_studied":7,"current_streak":2,"longest_streak":4}`)
	require.True(t, resp.Success)
	require.NoError(t, json.Unmarshal(resp.Data, &stats))

	assert.Equal(t, 35, stats.TotalStudyTime)
	assert.Equal(t, 7, stats.QuestionsStudied)
	assert.Equal(t, 4, stats.LongestStreak)
	require.NotNil(t, stats.LastActivity)
	// The stats write itself does not move last_activity.
	assert.Equal(t, "2024-01-03T10:00:00.000Z", *stats.LastActivity)

	rec, resp := do(t, h, http.MethodPut, "/api/stats", "u1", `{"questions_studied":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.ErrCodeValidation, resp.Error)
}

func TestAPI_UnknownRoute(t *testing.T) {
	h, _, _ := newServer(t)

	rec, resp := do(t, h, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, errors.ErrCodeNotFound, resp.Error)
}

// The portal's client speaks to this router end to end.
func TestAPI_RemoteClientRoundTrip(t *testing.T) {
	h, _, _ := newServer(t)
	ts := httptest.NewServer(h)
	defer ts.Close()

	ctx := context.Background()
	client := remote.New(ts.URL, "u1")

	rec := models.NewProgressRecord()
	rec.CompletedDays["standard-1"] = true
	rec.Tasks["standard-1-task-0"] = true
	rec.Tasks["standard-3-task-2"] = true

	last, err := remote.PushRecord(ctx, client, rec)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-03T09:00:00Z", last.UTC().Format(time.RFC3339))

	snap, err := remote.FetchSnapshot(ctx, client, "")
	require.NoError(t, err)
	got := snap.Record()
	assert.Equal(t, map[string]bool{"standard-1": true, "standard-3": false}, got.CompletedDays)
	assert.True(t, got.Tasks["standard-1-task-0"])
	assert.True(t, got.Tasks["standard-3-task-2"])
	assert.Equal(t, last, snap.Timestamp())

	require.NoError(t, client.ResetProgress(ctx))
	snap, err = remote.FetchSnapshot(ctx, client, "")
	require.NoError(t, err)
	assert.Empty(t, snap.Days)
	assert.True(t, snap.Timestamp().IsZero())
}
