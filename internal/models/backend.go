package models

// ProgressFilter narrows a progress listing. An empty TrackID lists every track.
type ProgressFilter struct {
	TrackID string
}

// UserStats is the client-reported summary stored by the backend.
type UserStats struct {
	QuestionsStudied int
	CurrentStreak    int
	LongestStreak    int
	UpdatedAt        string
}

// ProgressSummary aggregates a user's stored day rows.
type ProgressSummary struct {
	Days           int
	CompletedDays  int
	TotalStudyTime int
	// LastActivity is the latest updated_at among the rows, nil when there are none.
	LastActivity *string
}
