package portal

import (
	"context"

	"github.com/vytor/prepportal/internal/events"
	"github.com/vytor/prepportal/internal/gamification"
	"github.com/vytor/prepportal/internal/logger"
	"github.com/vytor/prepportal/internal/models"
	"github.com/vytor/prepportal/internal/notice"
	"github.com/vytor/prepportal/internal/worker"
)

// checkAchievements unlocks whatever the new state qualifies for and persists
// the dashboard when anything changed.
func (p *Portal) checkAchievements(ctx context.Context, _ events.ProgressChanged) error {
	p.mu.Lock()
	d := p.dashboard.Clone()
	unlocked := gamification.CheckAchievements(p.progress, d)
	if len(unlocked) == 0 {
		p.mu.Unlock()
		return nil
	}
	err := p.store.SaveDashboard(ctx, d)
	// Unlocks stay in memory even when the write fails; the next save carries them.
	p.dashboard = d
	p.mu.Unlock()

	for _, id := range unlocked {
		title := id
		if rule, ok := gamification.RuleByID(id); ok {
			title = rule.Title
		}
		p.notifier.Notify(ctx, notice.Notice{
			Level:   notice.Info,
			Kind:    NoticeAchievement,
			Message: "Achievement unlocked: " + title,
		})
	}
	logger.FromContext(ctx).WithPrefix("portal").Info("unlocked %d achievements: %v", len(unlocked), unlocked)
	return err
}

// scheduleSync reconciles after a local mutation without blocking it. A reset
// is excluded: a reconcile right after a failed remote reset would pull the
// old remote record back in.
func (p *Portal) scheduleSync(ctx context.Context, ev events.ProgressChanged) error {
	switch ev.Kind {
	case events.KindReconciled, events.KindReset:
		return nil
	}
	if !p.store.RemoteReady() {
		return nil
	}

	run := func(ctx context.Context) error {
		if err := p.Sync(ctx); err != nil {
			p.retrySync(ctx)
			return err
		}
		return nil
	}
	if p.jobs == nil {
		return run(ctx)
	}
	return p.jobs.Submit(worker.JobFunc{JobName: "sync:" + string(ev.Kind), Fn: run})
}

// uploadStats records the dashboard summary on the remote, best effort and
// off the mutator's path when a job pool is configured.
func (p *Portal) uploadStats(ctx context.Context, ev events.ProgressChanged) error {
	if ev.Kind == events.KindReconciled || !p.store.RemoteReady() {
		return nil
	}

	run := func(ctx context.Context) error {
		p.mu.Lock()
		update := models.StatsUpdate{
			QuestionsStudied: len(p.dashboard.Questions.Studied),
			CurrentStreak:    p.dashboard.Streak.Current,
			LongestStreak:    p.dashboard.Streak.Longest,
		}
		p.mu.Unlock()

		if _, err := p.store.Remote().UpdateStats(ctx, update); err != nil {
			logger.FromContext(ctx).WithPrefix("portal").Warn("stats upload failed: %v", err)
			return err
		}
		return nil
	}
	if p.jobs == nil {
		return run(ctx)
	}
	return p.jobs.Submit(worker.JobFunc{JobName: "stats:" + string(ev.Kind), Fn: run})
}
