package models

import "sort"

// Achievement ids.
const (
	AchievementFirstDay         = "first-day"
	AchievementWeekWarrior      = "week-warrior"
	AchievementStreakMaster     = "streak-master"
	AchievementQuestionSolver   = "question-solver"
	AchievementCategoryExplorer = "category-explorer"
	AchievementTimeKeeper       = "time-keeper"
	AchievementConsistencyKing  = "consistency-king"
	AchievementKnowledgeSeeker  = "knowledge-seeker"
)

type StreakData struct {
	Current    int      `json:"current"`
	Longest    int      `json:"longest"`
	StudyDates []string `json:"studyDates"`
}

type StudySession struct {
	Date     string `json:"date"`
	Duration int    `json:"duration"`
}

type StudyTime struct {
	Total    int            `json:"total"`
	Sessions []StudySession `json:"sessions"`
}

type QuestionStats struct {
	Studied    []string       `json:"studied"`
	TimeSpent  map[string]int `json:"timeSpent"`
	Categories map[string]int `json:"categories"`
	// ByDate counts questions studied per calendar date; it feeds the goal report.
	ByDate     map[string]int `json:"byDate,omitempty"`
}

// Goals are user-configured targets, not derived state.
type Goals struct {
	DailyStreak     int `json:"dailyStreak"`
	WeeklyDays      int `json:"weeklyDays"`
	DailyQuestions  int `json:"dailyQuestions"`
	WeeklyQuestions int `json:"weeklyQuestions"`
}

// DashboardRecord holds the gamification state derived from study activity.
type DashboardRecord struct {
	Streak       StreakData      `json:"streak"`
	StudyTime    StudyTime       `json:"studyTime"`
	Questions    QuestionStats   `json:"questions"`
	Achievements map[string]bool `json:"achievements"`
	Goals        Goals           `json:"goals"`
}

// AchievementIDs lists every achievement in display order.
var AchievementIDs = []string{
	AchievementFirstDay,
	AchievementWeekWarrior,
	AchievementStreakMaster,
	AchievementQuestionSolver,
	AchievementCategoryExplorer,
	AchievementTimeKeeper,
	AchievementConsistencyKing,
	AchievementKnowledgeSeeker,
}

// DefaultGoals returns the starting targets.
func DefaultGoals() Goals {
	return Goals{DailyStreak: 1, WeeklyDays: 5, DailyQuestions: 5, WeeklyQuestions: 25}
}

// NewDashboardRecord returns a fresh dashboard with every achievement locked.
func NewDashboardRecord() *DashboardRecord {
	achievements := make(map[string]bool, len(AchievementIDs))
	for _, id := range AchievementIDs {
		achievements[id] = false
	}
	return &DashboardRecord{
		Streak:    StreakData{StudyDates: []string{}},
		StudyTime: StudyTime{Sessions: []StudySession{}},
		Questions: QuestionStats{
			Studied:    []string{},
			TimeSpent:  make(map[string]int),
			Categories: make(map[string]int),
			ByDate:     make(map[string]int),
		},
		Achievements: achievements,
		Goals:        DefaultGoals(),
	}
}

// Normalize fills nil collections and restores set semantics on the slice-backed sets.
func (d *DashboardRecord) Normalize() {
	d.Streak.StudyDates = uniqueSorted(d.Streak.StudyDates)
	d.Questions.Studied = uniqueSorted(d.Questions.Studied)
	if d.StudyTime.Sessions == nil {
		d.StudyTime.Sessions = []StudySession{}
	}
	if d.Questions.TimeSpent == nil {
		d.Questions.TimeSpent = make(map[string]int)
	}
	if d.Questions.Categories == nil {
		d.Questions.Categories = make(map[string]int)
	}
	if d.Questions.ByDate == nil {
		d.Questions.ByDate = make(map[string]int)
	}
	if d.Achievements == nil {
		d.Achievements = make(map[string]bool)
	}
	for _, id := range AchievementIDs {
		if _, ok := d.Achievements[id]; !ok {
			d.Achievements[id] = false
		}
	}
}

// AddStudyDate inserts date into the study-date set. It reports whether the set changed.
func (d *DashboardRecord) AddStudyDate(date string) bool {
	var added bool
	d.Streak.StudyDates, added = insertSorted(d.Streak.StudyDates, date)
	return added
}

// HasStudyDate reports whether date is in the study-date set.
func (d *DashboardRecord) HasStudyDate(date string) bool {
	i := sort.SearchStrings(d.Streak.StudyDates, date)
	return i < len(d.Streak.StudyDates) && d.Streak.StudyDates[i] == date
}

// AddStudied inserts a question id into the studied set. It reports whether the set changed.
func (d *DashboardRecord) AddStudied(questionID string) bool {
	var added bool
	d.Questions.Studied, added = insertSorted(d.Questions.Studied, questionID)
	return added
}

// CategoriesExplored counts categories with at least one studied question.
func (d *DashboardRecord) CategoriesExplored() int {
	n := 0
	for _, count := range d.Questions.Categories {
		if count > 0 {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (d *DashboardRecord) Clone() *DashboardRecord {
	if d == nil {
		return nil
	}
	out := *d
	out.Streak.StudyDates = append([]string(nil), d.Streak.StudyDates...)
	out.StudyTime.Sessions = append([]StudySession(nil), d.StudyTime.Sessions...)
	out.Questions.Studied = append([]string(nil), d.Questions.Studied...)
	out.Questions.TimeSpent = copyIntMap(d.Questions.TimeSpent)
	out.Questions.Categories = copyIntMap(d.Questions.Categories)
	out.Questions.ByDate = copyIntMap(d.Questions.ByDate)
	out.Achievements = copyBoolMap(d.Achievements)
	return &out
}

func insertSorted(set []string, v string) ([]string, bool) {
	i := sort.SearchStrings(set, v)
	if i < len(set) && set[i] == v {
		return set, false
	}
	set = append(set, "")
	copy(set[i+1:], set[i:])
	set[i] = v
	return set, true
}

func uniqueSorted(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func copyIntMap(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
