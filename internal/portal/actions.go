package portal

import (
	"context"
	"time"

	"github.com/vytor/prepportal/internal/clock"
	"github.com/vytor/prepportal/internal/errors"
	"github.com/vytor/prepportal/internal/events"
	"github.com/vytor/prepportal/internal/gamification"
	"github.com/vytor/prepportal/internal/logger"
	"github.com/vytor/prepportal/internal/models"
)

// MarkDayComplete sets the completion flag of a curriculum day. Completing a
// day also counts today as a study date.
func (p *Portal) MarkDayComplete(ctx context.Context, day models.DayKey, done bool) error {
	if !models.ValidTrackID(day.Track) {
		return errors.NewValidationError("track", "must be letters, digits or underscores and not start with a digit")
	}
	if day.Day < 1 {
		return errors.NewValidationError("day", "must be at least 1")
	}
	key := day.String()
	if err := p.mutateProgress(ctx, done, func(rec *models.ProgressRecord) {
		rec.CompletedDays[key] = done
	}); err != nil {
		return err
	}
	logger.FromContext(ctx).WithPrefix("portal").Info("day %s completed=%t", key, done)
	p.bus.Publish(ctx, events.ProgressChanged{Kind: events.KindDay, Key: key})
	return nil
}

// MarkTaskComplete sets the completion flag of one task of a day.
func (p *Portal) MarkTaskComplete(ctx context.Context, task models.TaskKey, done bool) error {
	if !models.ValidTrackID(task.Track) {
		return errors.NewValidationError("track", "must be letters, digits or underscores and not start with a digit")
	}
	if task.Day < 1 || task.Index < 0 {
		return errors.NewValidationError("task", "day must be at least 1 and index non-negative")
	}
	key := task.String()
	if err := p.mutateProgress(ctx, done, func(rec *models.ProgressRecord) {
		rec.Tasks[key] = done
	}); err != nil {
		return err
	}
	logger.FromContext(ctx).WithPrefix("portal").Info("task %s completed=%t", key, done)
	p.bus.Publish(ctx, events.ProgressChanged{Kind: events.KindTask, Key: key})
	return nil
}

// mutateProgress applies fn to a copy of the record and commits it. On a
// quota failure the in-memory state keeps the change so nothing is lost
// before the user frees space; the error is still returned and no event fires.
func (p *Portal) mutateProgress(ctx context.Context, studied bool, fn func(*models.ProgressRecord)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.requireStarted(); err != nil {
		return err
	}

	rec := p.progress.Clone()
	fn(rec)
	if rec.Source == models.SourceDefault {
		rec.Source = models.SourceLocal
	}
	err := p.store.Commit(ctx, rec)
	if err != nil && !errors.IsKind(err, errors.ErrCodeQuotaExceeded) {
		return err
	}
	p.progress = rec
	if err != nil {
		return err
	}

	if studied {
		d := p.dashboard.Clone()
		now := p.clock.Now()
		d.AddStudyDate(clock.Date(now))
		gamification.UpdateStreak(d, now)
		if derr := p.store.SaveDashboard(ctx, d); derr != nil {
			logger.FromContext(ctx).WithPrefix("portal").Warn("failed to save dashboard: %v", derr)
		}
		p.dashboard = d
	}
	return nil
}

// MarkQuestionStudied records study of a bank question. The category count
// and the per-day question count only move the first time a question is
// studied; the time spent always accumulates.
func (p *Portal) MarkQuestionStudied(ctx context.Context, questionID, category string, minutes int) error {
	if questionID == "" {
		return errors.NewValidationError("question", "id is required")
	}
	if minutes < 0 {
		return errors.NewValidationError("minutes", "cannot be negative")
	}

	first, err := p.mutateDashboard(ctx, func(d *models.DashboardRecord, now time.Time) bool {
		today := clock.Date(now)
		first := d.AddStudied(questionID)
		d.Questions.TimeSpent[questionID] += minutes
		if first {
			if category != "" {
				d.Questions.Categories[category]++
			}
			d.Questions.ByDate[today]++
		}
		d.AddStudyDate(today)
		return first
	})
	if err != nil {
		return err
	}
	logger.FromContext(ctx).WithPrefix("portal").Info("question %s studied (first=%t, %d min)", questionID, first, minutes)
	p.bus.Publish(ctx, events.ProgressChanged{Kind: events.KindQuestion, Key: questionID})
	return nil
}

// RecordStudySession logs minutes of study on date (YYYY-MM-DD).
func (p *Portal) RecordStudySession(ctx context.Context, date string, minutes int) error {
	if _, err := time.Parse(clock.DateLayout, date); err != nil {
		return errors.NewValidationError("date", "must be YYYY-MM-DD")
	}
	if minutes <= 0 {
		return errors.NewValidationError("minutes", "must be positive")
	}

	if _, err := p.mutateDashboard(ctx, func(d *models.DashboardRecord, _ time.Time) bool {
		d.StudyTime.Sessions = append(d.StudyTime.Sessions, models.StudySession{Date: date, Duration: minutes})
		d.StudyTime.Total += minutes
		d.AddStudyDate(date)
		return true
	}); err != nil {
		return err
	}
	logger.FromContext(ctx).WithPrefix("portal").Info("study session on %s: %d min", date, minutes)
	p.bus.Publish(ctx, events.ProgressChanged{Kind: events.KindSession, Key: date})
	return nil
}

func (p *Portal) mutateDashboard(ctx context.Context, fn func(*models.DashboardRecord, time.Time) bool) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.requireStarted(); err != nil {
		return false, err
	}

	now := p.clock.Now()
	d := p.dashboard.Clone()
	changed := fn(d, now)
	gamification.UpdateStreak(d, now)
	err := p.store.SaveDashboard(ctx, d)
	if err != nil && !errors.IsKind(err, errors.ErrCodeQuotaExceeded) {
		return false, err
	}
	p.dashboard = d
	return changed, err
}
