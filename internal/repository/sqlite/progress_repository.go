package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/prepportal/internal/logger"
	"github.com/vytor/prepportal/internal/models"
	"github.com/vytor/prepportal/internal/repository"
)

var progressColumns = []string{
	"track_id", "day_number", "completed", "tasks_completed", "study_time", "completion_date", "updated_at",
}

type progressRepository struct {
	db *sql.DB
}

// NewProgressRepository creates a new ProgressRepository implementation
func NewProgressRepository(db *sql.DB) repository.ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) List(ctx context.Context, userID string, filter models.ProgressFilter) ([]models.DayProgress, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_repo")
	log.Debug("listing progress: user=%s, track=%q", userID, filter.TrackID)

	query := sqlBuilder.Select(progressColumns...).
		From("day_progress").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("track_id", "day_number")
	if filter.TrackID != "" {
		query = query.Where(squirrel.Eq{"track_id": filter.TrackID})
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to query progress: %v", err)
		return nil, err
	}
	defer rows.Close()

	out := []models.DayProgress{}
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			log.Error("failed to scan progress row: %v", err)
			return nil, err
		}
		out = append(out, *p)
	}
	log.Debug("found %d progress rows", len(out))
	return out, rows.Err()
}

func (r *progressRepository) Get(ctx context.Context, userID, trackID string, day int) (*models.DayProgress, error) {
	return getProgress(ctx, r.db, userID, trackID, day)
}

func getProgress(ctx context.Context, q queryer, userID, trackID string, day int) (*models.DayProgress, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_repo")

	sqlStr, args, err := sqlBuilder.Select(progressColumns...).
		From("day_progress").
		Where(squirrel.Eq{"user_id": userID, "track_id": trackID, "day_number": day}).
		ToSql()
	if err != nil {
		return nil, err
	}
	p, err := scanProgress(q.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("progress not found: track=%s day=%d", trackID, day)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get progress: %v", err)
		return nil, err
	}
	return p, nil
}

// Upsert keeps the first completion date while a day stays completed and
// clears it when the day is un-completed. A zero study time keeps the stored one.
func (r *progressRepository) Upsert(ctx context.Context, userID string, p models.DayProgress) (*models.DayProgress, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_repo")
	log.Debug("upserting progress: user=%s, track=%s, day=%d, completed=%t", userID, p.TrackID, p.DayNumber, p.Completed)

	tasks := p.TasksCompleted
	if tasks == nil {
		tasks = models.TaskFlags{}
	}
	tasksJSON, err := json.Marshal(tasks)
	if err != nil {
		return nil, err
	}

	sqlStr, args, err := sqlBuilder.Insert("day_progress").
		Columns("user_id", "track_id", "day_number", "completed", "tasks_completed", "study_time", "completion_date", "updated_at").
		Values(userID, p.TrackID, p.DayNumber, p.Completed, string(tasksJSON), p.StudyTime, p.CompletionDate, p.UpdatedAt).
		Suffix(`ON CONFLICT (user_id, track_id, day_number) DO UPDATE SET
    completed = excluded.completed,
    tasks_completed = excluded.tasks_completed,
    study_time = CASE WHEN excluded.study_time > 0 THEN excluded.study_time ELSE day_progress.study_time END,
    completion_date = CASE WHEN excluded.completed THEN COALESCE(day_progress.completion_date, excluded.completion_date) ELSE NULL END,
    updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		log.Error("failed to build upsert: %v", err)
		return nil, err
	}

	var stored *models.DayProgress
	err = tx(ctx, r.db, func(t *sql.Tx) error {
		if _, err := t.ExecContext(ctx, sqlStr, args...); err != nil {
			return err
		}
		var gerr error
		stored, gerr = getProgress(ctx, t, userID, p.TrackID, p.DayNumber)
		return gerr
	})
	if err != nil {
		log.Error("failed to upsert progress: %v", err)
		return nil, err
	}
	return stored, nil
}

func (r *progressRepository) DeleteAll(ctx context.Context, userID string) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_repo")
	log.Debug("deleting all progress: user=%s", userID)

	sqlStr, args, err := sqlBuilder.Delete("day_progress").Where(squirrel.Eq{"user_id": userID}).ToSql()
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to delete progress: %v", err)
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	log.Debug("deleted %d progress rows", n)
	return n, nil
}

func (r *progressRepository) Summary(ctx context.Context, userID string) (*models.ProgressSummary, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_repo")
	log.Debug("summarising progress: user=%s", userID)

	sqlStr, args, err := sqlBuilder.Select(
		"COUNT(*)",
		"COALESCE(SUM(completed), 0)",
		"COALESCE(SUM(study_time), 0)",
		"MAX(updated_at)",
	).From("day_progress").Where(squirrel.Eq{"user_id": userID}).ToSql()
	if err != nil {
		return nil, err
	}

	var s models.ProgressSummary
	var last sql.NullString
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&s.Days, &s.CompletedDays, &s.TotalStudyTime, &last); err != nil {
		log.Error("failed to summarise progress: %v", err)
		return nil, err
	}
	if last.Valid {
		s.LastActivity = &last.String
	}
	return &s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgress(row rowScanner) (*models.DayProgress, error) {
	var p models.DayProgress
	var tasks string
	var completionDate sql.NullString
	if err := row.Scan(&p.TrackID, &p.DayNumber, &p.Completed, &tasks, &p.StudyTime, &completionDate, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.TasksCompleted = models.TaskFlags{}
	if tasks != "" {
		if err := json.Unmarshal([]byte(tasks), &p.TasksCompleted); err != nil {
			return nil, err
		}
	}
	if completionDate.Valid {
		p.CompletionDate = &completionDate.String
	}
	return &p, nil
}
