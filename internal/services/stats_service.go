package services

import (
	"context"

	"github.com/vytor/prepportal/internal/clock"
	"github.com/vytor/prepportal/internal/errors"
	"github.com/vytor/prepportal/internal/logger"
	"github.com/vytor/prepportal/internal/models"
	"github.com/vytor/prepportal/internal/repository"
)

// StatsService handles the aggregate summary
type StatsService interface {
	GetStats(ctx context.Context, userID string) (*models.RemoteStats, error)
	UpdateStats(ctx context.Context, userID string, update models.StatsUpdate) (*models.RemoteStats, error)
}

type statsService struct {
	progressRepo repository.ProgressRepository
	statsRepo    repository.StatsRepository
	clock        clock.Clock
}

// NewStatsService creates a new StatsService
func NewStatsService(progressRepo repository.ProgressRepository, statsRepo repository.StatsRepository, clk clock.Clock) StatsService {
	if clk == nil {
		clk = clock.Real()
	}
	return &statsService{progressRepo: progressRepo, statsRepo: statsRepo, clock: clk}
}

// GetStats combines the stored day rows with the client-reported summary.
// last_activity only follows progress writes, so a stats upload never makes
// the remote look newer than the client that uploaded it.
func (s *statsService) GetStats(ctx context.Context, userID string) (*models.RemoteStats, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting stats: user=%s", userID)

	if userID == "" {
		return nil, errors.NewUnauthorizedError("missing user")
	}

	summary, err := s.progressRepo.Summary(ctx, userID)
	if err != nil {
		log.Error("failed to summarise progress: %v", err)
		return nil, errors.NewInternalError(err)
	}
	reported, err := s.statsRepo.Get(ctx, userID)
	if err != nil {
		log.Error("failed to get stats: %v", err)
		return nil, errors.NewInternalError(err)
	}

	out := &models.RemoteStats{
		TotalStudyTime: summary.TotalStudyTime,
		LastActivity:   summary.LastActivity,
	}
	if reported != nil {
		out.QuestionsStudied = reported.QuestionsStudied
		out.CurrentStreak = reported.CurrentStreak
		out.LongestStreak = reported.LongestStreak
	}
	return out, nil
}

func (s *statsService) UpdateStats(ctx context.Context, userID string, update models.StatsUpdate) (*models.RemoteStats, error) {
	log := logger.FromContext(ctx)
	log.Debug("updating stats: user=%s", userID)

	if userID == "" {
		return nil, errors.NewUnauthorizedError("missing user")
	}
	switch {
	case update.QuestionsStudied < 0:
		return nil, errors.NewValidationError("questions_studied", "cannot be negative")
	case update.CurrentStreak < 0:
		return nil, errors.NewValidationError("current_streak", "cannot be negative")
	case update.LongestStreak < 0:
		return nil, errors.NewValidationError("longest_streak", "cannot be negative")
	}

	err := s.statsRepo.Upsert(ctx, userID, models.UserStats{
		QuestionsStudied: update.QuestionsStudied,
		CurrentStreak:    update.CurrentStreak,
		LongestStreak:    update.LongestStreak,
		UpdatedAt:        s.clock.Now().UTC().Format(models.TimestampLayout),
	})
	if err != nil {
		log.Error("failed to upsert stats: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return s.GetStats(ctx, userID)
}
