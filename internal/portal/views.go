package portal

import (
	"time"

	"github.com/vytor/prepportal/internal/gamification"
	"github.com/vytor/prepportal/internal/models"
)

// CompletionPercentage is the share of a track's days marked complete,
// rounded down. It is 0 when totalDays is not positive.
func CompletionPercentage(rec *models.ProgressRecord, track string, totalDays int) int {
	if totalDays <= 0 || rec == nil {
		return 0
	}
	return rec.CompletedInTrack(track) * 100 / totalDays
}

// CompletionPercentage reports completion of track in the current record.
func (p *Portal) CompletionPercentage(track string, totalDays int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return CompletionPercentage(p.progress, track, totalDays)
}

// GoalStatus reports progress toward the configured goals as of now.
func (p *Portal) GoalStatus() gamification.GoalReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return gamification.Goals(p.dashboard, p.clock.Now())
}

// Status is a summary of the session for display.
type Status struct {
	Source           models.Source
	CompletedDays    int
	CompletedTasks   int
	CurrentStreak    int
	LongestStreak    int
	QuestionsStudied int
	StudyMinutes     int
	Achievements     []string
	LastSynced       time.Time
	RemoteConfigured bool
	RemoteReady      bool
	Analytics        map[string]int
}

func (p *Portal) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	tasks := 0
	for _, done := range p.progress.Tasks {
		if done {
			tasks++
		}
	}
	var unlocked []string
	for _, id := range models.AchievementIDs {
		if p.dashboard.Achievements[id] {
			unlocked = append(unlocked, id)
		}
	}
	return Status{
		Source:           p.progress.Source,
		CompletedDays:    p.progress.CompletedCount(),
		CompletedTasks:   tasks,
		CurrentStreak:    p.dashboard.Streak.Current,
		LongestStreak:    p.dashboard.Streak.Longest,
		QuestionsStudied: len(p.dashboard.Questions.Studied),
		StudyMinutes:     p.dashboard.StudyTime.Total,
		Achievements:     unlocked,
		LastSynced:       p.lastSync,
		RemoteConfigured: p.store.Remote() != nil,
		RemoteReady:      p.store.RemoteReady(),
		Analytics:        p.progress.Clone().Analytics,
	}
}
