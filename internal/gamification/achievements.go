package gamification

import "github.com/vytor/prepportal/internal/models"

// Snapshot is the set of numbers the achievement rules look at.
type Snapshot struct {
	CompletedDays      int
	CurrentStreak      int
	QuestionsStudied   int
	CategoriesExplored int
	StudyMinutes       int
}

// SnapshotOf extracts the rule inputs from the two records. progress may be nil.
func SnapshotOf(progress *models.ProgressRecord, d *models.DashboardRecord) Snapshot {
	s := Snapshot{
		CurrentStreak:      d.Streak.Current,
		QuestionsStudied:   len(d.Questions.Studied),
		CategoriesExplored: d.CategoriesExplored(),
		StudyMinutes:       d.StudyTime.Total,
	}
	if progress != nil {
		s.CompletedDays = progress.CompletedCount()
	}
	return s
}

// Rule unlocks one achievement once its condition first holds.
type Rule struct {
	ID          string
	Title       string
	Description string
	Met         func(Snapshot) bool
}

// Rules is the achievement catalogue in display order.
var Rules = []Rule{
	{
		ID:          models.AchievementFirstDay,
		Title:       "First Day",
		Description: "Complete your first curriculum day",
		Met:         func(s Snapshot) bool { return s.CompletedDays >= 1 },
	},
	{
		ID:          models.AchievementWeekWarrior,
		Title:       "Week Warrior",
		Description: "Complete 7 curriculum days",
		Met:         func(s Snapshot) bool { return s.CompletedDays >= 7 },
	},
	{
		ID:          models.AchievementStreakMaster,
		Title:       "Streak Master",
		Description: "Study 7 days in a row",
		Met:         func(s Snapshot) bool { return s.CurrentStreak >= 7 },
	},
	{
		ID:          models.AchievementQuestionSolver,
		Title:       "Question Solver",
		Description: "Study 25 questions",
		Met:         func(s Snapshot) bool { return s.QuestionsStudied >= 25 },
	},
	{
		ID:          models.AchievementCategoryExplorer,
		Title:       "Category Explorer",
		Description: "Study questions from 4 categories",
		Met:         func(s Snapshot) bool { return s.CategoriesExplored >= 4 },
	},
	{
		ID:          models.AchievementTimeKeeper,
		Title:       "Time Keeper",
		Description: "Log 10 hours of study",
		Met:         func(s Snapshot) bool { return s.StudyMinutes >= 600 },
	},
	{
		ID:          models.AchievementConsistencyKing,
		Title:       "Consistency King",
		Description: "Study 14 days in a row",
		Met:         func(s Snapshot) bool { return s.CurrentStreak >= 14 },
	},
	{
		ID:          models.AchievementKnowledgeSeeker,
		Title:       "Knowledge Seeker",
		Description: "Study 100 questions",
		Met:         func(s Snapshot) bool { return s.QuestionsStudied >= 100 },
	},
}

// RuleByID looks up a catalogue entry.
func RuleByID(id string) (Rule, bool) {
	for _, r := range Rules {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}

// CheckAchievements evaluates every still-locked rule and flips the ones now met.
// Unlocked flags are never evaluated again and never cleared here.
// It returns the ids unlocked by this call, in catalogue order.
func CheckAchievements(progress *models.ProgressRecord, d *models.DashboardRecord) []string {
	if d.Achievements == nil {
		d.Achievements = make(map[string]bool, len(Rules))
	}
	snap := SnapshotOf(progress, d)
	var unlocked []string
	for _, rule := range Rules {
		if d.Achievements[rule.ID] {
			continue
		}
		if rule.Met(snap) {
			d.Achievements[rule.ID] = true
			unlocked = append(unlocked, rule.ID)
		}
	}
	return unlocked
}
