package repository

import (
	"context"

	"github.com/vytor/prepportal/internal/models"
)

// ProgressRepository handles per-day progress rows. Every call is scoped to one user.
type ProgressRepository interface {
	List(ctx context.Context, userID string, filter models.ProgressFilter) ([]models.DayProgress, error)
	Get(ctx context.Context, userID, trackID string, day int) (*models.DayProgress, error)
	// Upsert inserts or replaces a row and returns it as stored.
	Upsert(ctx context.Context, userID string, p models.DayProgress) (*models.DayProgress, error)
	DeleteAll(ctx context.Context, userID string) (int64, error)
	Summary(ctx context.Context, userID string) (*models.ProgressSummary, error)
}

// StatsRepository handles the client-reported summary.
type StatsRepository interface {
	Get(ctx context.Context, userID string) (*models.UserStats, error)
	Upsert(ctx context.Context, userID string, s models.UserStats) error
	Delete(ctx context.Context, userID string) error
}
