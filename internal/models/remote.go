package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the fixed-width UTC layout the backend stores timestamps in,
// so that they sort lexically.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// TaskFlags is the per-day task map on the wire. Older clients sent it as a
// JSON-encoded string, so both a string and an object are accepted.
type TaskFlags map[string]bool

func (f *TaskFlags) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = TaskFlags{}
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if raw == "" {
			*f = TaskFlags{}
			return nil
		}
		data = []byte(raw)
	}
	m := map[string]bool{}
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("tasks_completed: %w", err)
	}
	*f = m
	return nil
}

// DayProgress is one per-day row as served by the backend.
type DayProgress struct {
	TrackID        string    `json:"track_id"`
	DayNumber      int       `json:"day_number"`
	Completed      bool      `json:"completed"`
	TasksCompleted TaskFlags `json:"tasks_completed"`
	StudyTime      int       `json:"study_time"`
	CompletionDate *string   `json:"completion_date"`
	UpdatedAt      string    `json:"updated_at,omitempty"`
}

// Key returns the canonical day key of the row.
func (p DayProgress) Key() DayKey {
	return DayKey{Track: p.TrackID, Day: p.DayNumber}
}

// DayUpdate is the body of a per-day upsert.
type DayUpdate struct {
	Completed      bool      `json:"completed"`
	TasksCompleted TaskFlags `json:"tasks_completed"`
	StudyTime      int       `json:"study_time"`
	CompletionDate *string   `json:"completion_date"`
}

// RemoteStats is the aggregate summary served by the backend.
type RemoteStats struct {
	TotalStudyTime   int     `json:"total_study_time"`
	QuestionsStudied int     `json:"questions_studied"`
	CurrentStreak    int     `json:"current_streak"`
	LongestStreak    int     `json:"longest_streak"`
	LastActivity     *string `json:"last_activity"`
}

// LastActivityTime parses LastActivity. A missing or unparsable value yields the zero time.
func (s *RemoteStats) LastActivityTime() time.Time {
	if s == nil || s.LastActivity == nil || *s.LastActivity == "" {
		return time.Time{}
	}
	for _, layout := range []string{TimestampLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, *s.LastActivity); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Analytics converts the summary into the record's analytics map.
func (s *RemoteStats) Analytics() map[string]int {
	if s == nil {
		return nil
	}
	return map[string]int{
		AnalyticsTotalStudyTime:   s.TotalStudyTime,
		AnalyticsQuestionsStudied: s.QuestionsStudied,
		AnalyticsCurrentStreak:    s.CurrentStreak,
		AnalyticsLongestStreak:    s.LongestStreak,
	}
}

// StatsUpdate is the client summary pushed to the backend.
type StatsUpdate struct {
	QuestionsStudied int `json:"questions_studied"`
	CurrentStreak    int `json:"current_streak"`
	LongestStreak    int `json:"longest_streak"`
}

// Envelope is the response shape of every backend endpoint.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}
