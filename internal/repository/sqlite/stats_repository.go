package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/prepportal/internal/logger"
	"github.com/vytor/prepportal/internal/models"
	"github.com/vytor/prepportal/internal/repository"
)

type statsRepository struct {
	db *sql.DB
}

// NewStatsRepository creates a new StatsRepository implementation
func NewStatsRepository(db *sql.DB) repository.StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) Get(ctx context.Context, userID string) (*models.UserStats, error) {
	log := logger.FromContext(ctx).WithPrefix("stats_repo")
	log.Debug("getting stats: user=%s", userID)

	sqlStr, args, err := sqlBuilder.Select("questions_studied", "current_streak", "longest_streak", "updated_at").
		From("user_stats").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var s models.UserStats
	err = r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&s.QuestionsStudied, &s.CurrentStreak, &s.LongestStreak, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("no stats for user=%s", userID)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get stats: %v", err)
		return nil, err
	}
	return &s, nil
}

func (r *statsRepository) Upsert(ctx context.Context, userID string, s models.UserStats) error {
	log := logger.FromContext(ctx).WithPrefix("stats_repo")
	log.Debug("upserting stats: user=%s, questions=%d, streak=%d/%d", userID, s.QuestionsStudied, s.CurrentStreak, s.LongestStreak)

	sqlStr, args, err := sqlBuilder.Insert("user_stats").
		Columns("user_id", "questions_studied", "current_streak", "longest_streak", "updated_at").
		Values(userID, s.QuestionsStudied, s.CurrentStreak, s.LongestStreak, s.UpdatedAt).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
    questions_studied = excluded.questions_studied,
    current_streak = excluded.current_streak,
    longest_streak = MAX(user_stats.longest_streak, excluded.longest_streak),
    updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		log.Error("failed to upsert stats: %v", err)
		return err
	}
	return nil
}

func (r *statsRepository) Delete(ctx context.Context, userID string) error {
	log := logger.FromContext(ctx).WithPrefix("stats_repo")
	log.Debug("deleting stats: user=%s", userID)

	sqlStr, args, err := sqlBuilder.Delete("user_stats").Where(squirrel.Eq{"user_id": userID}).ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		log.Error("failed to delete stats: %v", err)
		return err
	}
	return nil
}
