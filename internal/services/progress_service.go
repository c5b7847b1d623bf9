package services

import (
	"context"

	"github.com/vytor/prepportal/internal/clock"
	"github.com/vytor/prepportal/internal/errors"
	"github.com/vytor/prepportal/internal/logger"
	"github.com/vytor/prepportal/internal/models"
	"github.com/vytor/prepportal/internal/repository"
)

// ProgressService handles per-day progress business logic
type ProgressService interface {
	ListProgress(ctx context.Context, userID, trackID string) ([]models.DayProgress, error)
	UpdateProgress(ctx context.Context, userID, trackID string, day int, update models.DayUpdate) (*models.DayProgress, error)
	ResetProgress(ctx context.Context, userID string) error
}

type progressService struct {
	progressRepo repository.ProgressRepository
	statsRepo    repository.StatsRepository
	clock        clock.Clock
}

// NewProgressService creates a new ProgressService
func NewProgressService(progressRepo repository.ProgressRepository, statsRepo repository.StatsRepository, clk clock.Clock) ProgressService {
	if clk == nil {
		clk = clock.Real()
	}
	return &progressService{progressRepo: progressRepo, statsRepo: statsRepo, clock: clk}
}

func (s *progressService) ListProgress(ctx context.Context, userID, trackID string) ([]models.DayProgress, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing progress: user=%s, track=%q", userID, trackID)

	if userID == "" {
		return nil, errors.NewUnauthorizedError("missing user")
	}
	if trackID != "" && !models.ValidTrackID(trackID) {
		return nil, errors.NewValidationError("track", "must be letters, digits or underscores and not start with a digit")
	}

	rows, err := s.progressRepo.List(ctx, userID, models.ProgressFilter{TrackID: trackID})
	if err != nil {
		log.Error("failed to list progress: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return rows, nil
}

func (s *progressService) UpdateProgress(ctx context.Context, userID, trackID string, day int, update models.DayUpdate) (*models.DayProgress, error) {
	log := logger.FromContext(ctx)
	log.Debug("updating progress: user=%s, track=%s, day=%d", userID, trackID, day)

	if userID == "" {
		return nil, errors.NewUnauthorizedError("missing user")
	}
	if !models.ValidTrackID(trackID) {
		return nil, errors.NewValidationError("track", "must be letters, digits or underscores and not start with a digit")
	}
	if day < 1 {
		return nil, errors.NewValidationError("day", "must be at least 1")
	}
	if update.StudyTime < 0 {
		return nil, errors.NewValidationError("study_time", "cannot be negative")
	}

	now := s.clock.Now().UTC()
	completionDate := update.CompletionDate
	if update.Completed && completionDate == nil {
		d := clock.Date(now)
		completionDate = &d
	}
	if !update.Completed {
		completionDate = nil
	}

	stored, err := s.progressRepo.Upsert(ctx, userID, models.DayProgress{
		TrackID:        trackID,
		DayNumber:      day,
		Completed:      update.Completed,
		TasksCompleted: update.TasksCompleted,
		StudyTime:      update.StudyTime,
		CompletionDate: completionDate,
		UpdatedAt:      now.Format(models.TimestampLayout),
	})
	if err != nil {
		log.Error("failed to upsert progress: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return stored, nil
}

func (s *progressService) ResetProgress(ctx context.Context, userID string) error {
	log := logger.FromContext(ctx)
	log.Debug("resetting progress: user=%s", userID)

	if userID == "" {
		return errors.NewUnauthorizedError("missing user")
	}
	n, err := s.progressRepo.DeleteAll(ctx, userID)
	if err != nil {
		log.Error("failed to delete progress: %v", err)
		return errors.NewInternalError(err)
	}
	if err := s.statsRepo.Delete(ctx, userID); err != nil {
		log.Error("failed to delete stats: %v", err)
		return errors.NewInternalError(err)
	}
	log.Info("reset progress for user=%s (%d days removed)", userID, n)
	return nil
}
