package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vytor/prepportal/internal/clock"
	"github.com/vytor/prepportal/internal/gamification"
	"github.com/vytor/prepportal/internal/models"
	"github.com/vytor/prepportal/internal/portal"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	mutedStyle  = lipgloss.NewStyle().Faint(true)
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile local progress with the progress server",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ *cobra.Command, _ []string) error {
		if !a.store.RemoteReady() {
			fmt.Println(mutedStyle.Render("No remote configured; progress is local only."))
			return nil
		}
		if last := a.portal.LastSync(); !last.IsZero() {
			fmt.Printf("%s Synced at %s\n", passStyle.Render("✓"), last.Format(time.RFC3339))
			return nil
		}
		return fmt.Errorf("sync did not complete; progress is kept locally")
	}),
}

var (
	statusTrack string
	statusDays  int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show progress, streaks, achievements and goals",
	Args:  cobra.NoArgs,
	RunE: withApp(func(_ context.Context, a *app, _ *cobra.Command, _ []string) error {
		st := a.portal.Status()

		fmt.Println(headerStyle.Render("Progress"))
		fmt.Printf("  Source:          %s\n", st.Source)
		fmt.Printf("  Completed days:  %d\n", st.CompletedDays)
		fmt.Printf("  Completed tasks: %d\n", st.CompletedTasks)
		if statusDays > 0 {
			track := statusTrack
			if track == "" {
				track = a.store.DefaultTrack()
			}
			fmt.Printf("  %s: %d%% of %d days\n", track, a.portal.CompletionPercentage(track, statusDays), statusDays)
		}
		switch {
		case !st.RemoteConfigured:
			fmt.Printf("  Remote:          %s\n", mutedStyle.Render("not configured"))
		case !st.RemoteReady:
			fmt.Printf("  Remote:          %s\n", mutedStyle.Render("not signed in"))
		case st.LastSynced.IsZero():
			fmt.Printf("  Remote:          %s\n", mutedStyle.Render("not synced this session"))
		default:
			fmt.Printf("  Remote:          synced %s\n", st.LastSynced.Format(time.RFC3339))
		}

		fmt.Println(headerStyle.Render("Study"))
		fmt.Printf("  Streak:          %d (longest %d)\n", st.CurrentStreak, st.LongestStreak)
		fmt.Printf("  Questions:       %d\n", st.QuestionsStudied)
		fmt.Printf("  Study time:      %d min\n", st.StudyMinutes)

		fmt.Println(headerStyle.Render("Achievements"))
		unlocked := make(map[string]bool, len(st.Achievements))
		for _, id := range st.Achievements {
			unlocked[id] = true
		}
		for _, rule := range gamification.Rules {
			mark := mutedStyle.Render("·")
			if unlocked[rule.ID] {
				mark = passStyle.Render("✓")
			}
			fmt.Printf("  %s %-18s %s\n", mark, rule.Title, mutedStyle.Render(rule.Description))
		}

		goals := a.portal.GoalStatus()
		fmt.Println(headerStyle.Render("Goals"))
		printGoal("Daily streak", goals.DailyStreak)
		printGoal("Days this week", goals.WeeklyDays)
		printGoal("Questions today", goals.DailyQuestions)
		printGoal("Questions this week", goals.WeeklyQuestions)
		return nil
	}),
}

func printGoal(label string, g gamification.GoalProgress) {
	mark := mutedStyle.Render("·")
	if g.Met {
		mark = passStyle.Render("✓")
	}
	fmt.Printf("  %s %-20s %d/%d\n", mark, label, g.Current, g.Target)
}

var undo bool

var completeDayCmd = &cobra.Command{
	Use:   "complete-day TRACK DAY",
	Short: "Mark a curriculum day complete",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(ctx context.Context, a *app, _ *cobra.Command, args []string) error {
		day, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("day must be a number: %q", args[1])
		}
		key := models.DayKey{Track: args[0], Day: day}
		if err := a.portal.MarkDayComplete(ctx, key, !undo); err != nil {
			return err
		}
		fmt.Printf("%s %s %s\n", passStyle.Render("✓"), key, doneWord(!undo))
		return nil
	}),
}

var completeTaskCmd = &cobra.Command{
	Use:   "complete-task TRACK DAY INDEX",
	Short: "Mark one task of a curriculum day complete",
	Args:  cobra.ExactArgs(3),
	RunE: withApp(func(ctx context.Context, a *app, _ *cobra.Command, args []string) error {
		day, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("day must be a number: %q", args[1])
		}
		index, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("index must be a number: %q", args[2])
		}
		key := models.TaskKey{Track: args[0], Day: day, Index: index}
		if err := a.portal.MarkTaskComplete(ctx, key, !undo); err != nil {
			return err
		}
		fmt.Printf("%s %s %s\n", passStyle.Render("✓"), key, doneWord(!undo))
		return nil
	}),
}

func doneWord(done bool) string {
	if done {
		return "completed"
	}
	return "reopened"
}

var (
	questionCategory string
	questionMinutes  int
)

var studyQuestionCmd = &cobra.Command{
	Use:   "study-question ID",
	Short: "Record study of a question from the bank",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, _ *cobra.Command, args []string) error {
		if err := a.portal.MarkQuestionStudied(ctx, args[0], questionCategory, questionMinutes); err != nil {
			return err
		}
		fmt.Printf("%s studied %s\n", passStyle.Render("✓"), args[0])
		return nil
	}),
}

var sessionDate string

var logSessionCmd = &cobra.Command{
	Use:   "log-session MINUTES",
	Short: "Log a study session",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, _ *cobra.Command, args []string) error {
		minutes, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("minutes must be a number: %q", args[0])
		}
		date := sessionDate
		if date == "" {
			date = clock.Date(a.store.Clock().Now())
		}
		if err := a.portal.RecordStudySession(ctx, date, minutes); err != nil {
			return err
		}
		fmt.Printf("%s logged %d min on %s\n", passStyle.Render("✓"), minutes, date)
		return nil
	}),
}

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a backup of all progress as JSON",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ *cobra.Command, _ []string) error {
		data, err := a.portal.Export(ctx)
		if err != nil {
			return err
		}
		if exportOut == "" || exportOut == "-" {
			_, err = os.Stdout.Write(append(data, '\n'))
			return err
		}
		if err := os.WriteFile(exportOut, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%s exported to %s\n", passStyle.Render("✓"), exportOut)
		return nil
	}),
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace all progress with a backup",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, _ *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if err := a.portal.Import(ctx, data); err != nil {
			return fmt.Errorf("import aborted, nothing changed: %w", err)
		}
		fmt.Printf("%s imported %s\n", passStyle.Render("✓"), args[0])
		return nil
	}),
}

var resetConfirmed bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Erase all progress, streaks and achievements",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ *cobra.Command, _ []string) error {
		if !resetConfirmed {
			return fmt.Errorf("reset erases everything; run with --yes to confirm (consider 'portal export' first)")
		}
		if err := a.portal.Reset(ctx); err != nil {
			return err
		}
		fmt.Printf("%s progress reset\n", passStyle.Render("✓"))
		return nil
	}),
}

var watchSpec string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep running, syncing when stale and when the data file changes",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		scheduler := portal.NewScheduler(a.portal, watchSpec)
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
		defer scheduler.Stop()

		watcher, err := portal.NewWatcher(a.portal, a.files)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()

		fmt.Fprintf(os.Stderr, "%s watching %s (sync when older than %v)\n",
			passStyle.Render("●"), a.files.Path(), a.cfg.SyncInterval)
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, mutedStyle.Render("stopping"))
		return nil
	}),
}

func init() {
	statusCmd.Flags().StringVar(&statusTrack, "track", "", "track to report completion for (default PORTAL_DEFAULT_TRACK)")
	statusCmd.Flags().IntVar(&statusDays, "days", 0, "number of days in the track, for the completion percentage")

	completeDayCmd.Flags().BoolVar(&undo, "undo", false, "mark as not complete")
	completeTaskCmd.Flags().BoolVar(&undo, "undo", false, "mark as not complete")

	studyQuestionCmd.Flags().StringVar(&questionCategory, "category", "", "question category")
	studyQuestionCmd.Flags().IntVar(&questionMinutes, "minutes", 0, "minutes spent")

	logSessionCmd.Flags().StringVar(&sessionDate, "date", "", "session date (YYYY-MM-DD), default today")

	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")

	resetCmd.Flags().BoolVar(&resetConfirmed, "yes", false, "confirm the reset")

	watchCmd.Flags().StringVar(&watchSpec, "every", portal.DefaultCheckSpec, "cron schedule for the staleness check")

	rootCmd.AddCommand(syncCmd, statusCmd, completeDayCmd, completeTaskCmd, studyQuestionCmd,
		logSessionCmd, exportCmd, importCmd, resetCmd, watchCmd)
}
