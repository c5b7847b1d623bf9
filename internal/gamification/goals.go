package gamification

import (
	"time"

	"github.com/vytor/prepportal/internal/clock"
	"github.com/vytor/prepportal/internal/models"
)

// GoalProgress is the state of one goal.
type GoalProgress struct {
	Target  int  `json:"target"`
	Current int  `json:"current"`
	Met     bool `json:"met"`
}

func goal(target, current int) GoalProgress {
	return GoalProgress{Target: target, Current: current, Met: target > 0 && current >= target}
}

// GoalReport summarises progress toward every configured goal.
type GoalReport struct {
	DailyStreak     GoalProgress `json:"dailyStreak"`
	WeeklyDays      GoalProgress `json:"weeklyDays"`
	DailyQuestions  GoalProgress `json:"dailyQuestions"`
	WeeklyQuestions GoalProgress `json:"weeklyQuestions"`
}

// WeekStart returns the Monday of t's ISO week at midnight in t's location.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Goals reports goal progress as of today. Weeks run Monday through Sunday.
func Goals(d *models.DashboardRecord, today time.Time) GoalReport {
	start := WeekStart(today)
	todayDate := clock.Date(today)

	daysThisWeek := 0
	questionsThisWeek := 0
	for i := 0; i < 7; i++ {
		date := clock.Date(start.AddDate(0, 0, i))
		if date > todayDate {
			break
		}
		if d.HasStudyDate(date) {
			daysThisWeek++
		}
		questionsThisWeek += d.Questions.ByDate[date]
	}

	return GoalReport{
		DailyStreak:     goal(d.Goals.DailyStreak, d.Streak.Current),
		WeeklyDays:      goal(d.Goals.WeeklyDays, daysThisWeek),
		DailyQuestions:  goal(d.Goals.DailyQuestions, d.Questions.ByDate[todayDate]),
		WeeklyQuestions: goal(d.Goals.WeeklyQuestions, questionsThisWeek),
	}
}
