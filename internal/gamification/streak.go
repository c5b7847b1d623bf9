// Package gamification derives streaks, achievements and goal progress from
// the progress and dashboard records.
package gamification

import (
	"time"

	"github.com/vytor/prepportal/internal/clock"
	"github.com/vytor/prepportal/internal/models"
)

// StreakWindow is how many days back the streak walk looks, today included.
const StreakWindow = 30

// CalculateStreak walks back from today over at most StreakWindow days and
// counts the days present in studyDates. A missing today contributes nothing
// but does not end the walk; any other missing day does. The returned longest
// is max(longest, current).
func CalculateStreak(today time.Time, studyDates map[string]bool, longest int) (current, newLongest int) {
	for i := 0; i < StreakWindow; i++ {
		date := clock.Date(today.AddDate(0, 0, -i))
		if studyDates[date] {
			current++
			continue
		}
		if i > 0 {
			break
		}
	}
	newLongest = longest
	if current > newLongest {
		newLongest = current
	}
	return current, newLongest
}

// UpdateStreak recomputes the dashboard streak for today. It reports whether anything changed.
func UpdateStreak(d *models.DashboardRecord, today time.Time) bool {
	dates := make(map[string]bool, len(d.Streak.StudyDates))
	for _, date := range d.Streak.StudyDates {
		dates[date] = true
	}
	current, longest := CalculateStreak(today, dates, d.Streak.Longest)
	changed := current != d.Streak.Current || longest != d.Streak.Longest
	d.Streak.Current = current
	d.Streak.Longest = longest
	return changed
}
