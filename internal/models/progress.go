package models

import (
	"strings"
	"time"
)

// Source tags where the in-memory progress record came from.
type Source string

const (
	SourceDefault  Source = "default"
	SourceLocal    Source = "local"
	SourceDatabase Source = "database"
	SourceMerged   Source = "merged"
)

// Analytics keys filled from the remote stats summary.
const (
	AnalyticsTotalStudyTime   = "totalStudyTime"
	AnalyticsQuestionsStudied = "questionsStudied"
	AnalyticsCurrentStreak    = "currentStreak"
	AnalyticsLongestStreak    = "longestStreak"
)

// ProgressRecord is the canonical curriculum progress of one learner.
// CompletedDays is keyed by DayKey strings and Tasks by TaskKey strings.
type ProgressRecord struct {
	CompletedDays map[string]bool `json:"completedDays"`
	Tasks         map[string]bool `json:"tasks"`
	LastSynced    *time.Time      `json:"lastSynced"`
	Source        Source          `json:"source"`
	Analytics     map[string]int  `json:"analytics,omitempty"`
}

// NewProgressRecord returns an empty record tagged as default.
func NewProgressRecord() *ProgressRecord {
	return &ProgressRecord{
		CompletedDays: make(map[string]bool),
		Tasks:         make(map[string]bool),
		Source:        SourceDefault,
	}
}

// Clone returns a deep copy.
func (r *ProgressRecord) Clone() *ProgressRecord {
	if r == nil {
		return nil
	}
	out := &ProgressRecord{
		CompletedDays: copyBoolMap(r.CompletedDays),
		Tasks:         copyBoolMap(r.Tasks),
		Source:        r.Source,
	}
	if r.LastSynced != nil {
		t := *r.LastSynced
		out.LastSynced = &t
	}
	if r.Analytics != nil {
		out.Analytics = make(map[string]int, len(r.Analytics))
		for k, v := range r.Analytics {
			out.Analytics[k] = v
		}
	}
	return out
}

// Timestamp returns LastSynced, or the zero time when the record was never synced.
func (r *ProgressRecord) Timestamp() time.Time {
	if r == nil || r.LastSynced == nil {
		return time.Time{}
	}
	return *r.LastSynced
}

// CompletedCount counts days marked true.
func (r *ProgressRecord) CompletedCount() int {
	n := 0
	for _, done := range r.CompletedDays {
		if done {
			n++
		}
	}
	return n
}

// CompletedInTrack counts days marked true whose key belongs to track.
func (r *ProgressRecord) CompletedInTrack(track string) int {
	n := 0
	for key, done := range r.CompletedDays {
		if !done {
			continue
		}
		if k, err := ParseDayKey(key); err == nil && k.Track == track {
			n++
		}
	}
	return n
}

// TasksForDay returns the task flags of a single day, keyed by full task key.
func (r *ProgressRecord) TasksForDay(day DayKey) map[string]bool {
	prefix := day.TaskPrefix()
	out := make(map[string]bool)
	for key, done := range r.Tasks {
		if strings.HasPrefix(key, prefix) {
			out[key] = done
		}
	}
	return out
}

func copyBoolMap(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
