package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/prepportal/internal/clock"
	"github.com/vytor/prepportal/internal/errors"
	"github.com/vytor/prepportal/internal/models"
	"github.com/vytor/prepportal/internal/services"
	"github.com/vytor/prepportal/internal/testutil/mocks"
)

func newStatsService() (services.StatsService, *mocks.MockProgressRepository, *mocks.MockStatsRepository) {
	progressRepo := new(mocks.MockProgressRepository)
	statsRepo := new(mocks.MockStatsRepository)
	return services.NewStatsService(progressRepo, statsRepo, clock.NewFixed(fixedNow)), progressRepo, statsRepo
}

func TestGetStats_CombinesSummaryAndReported(t *testing.T) {
	svc, progressRepo, statsRepo := newStatsService()
	ctx := context.Background()
	last := "2024-01-02T08:00:00.000Z"

	progressRepo.On("Summary", ctx, "u1").Return(&models.ProgressSummary{Days: 2, TotalStudyTime: 90, LastActivity: &last}, nil)
	statsRepo.On("Get", ctx, "u1").Return(&models.UserStats{QuestionsStudied: 12, CurrentStreak: 2, LongestStreak: 5}, nil)

	got, err := svc.GetStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, &models.RemoteStats{
		TotalStudyTime:   90,
		QuestionsStudied: 12,
		CurrentStreak:    2,
		LongestStreak:    5,
		LastActivity:     &last,
	}, got)
}

func TestGetStats_NothingStored(t *testing.T) {
	svc, progressRepo, statsRepo := newStatsService()
	ctx := context.Background()
	progressRepo.On("Summary", ctx, "u1").Return(&models.ProgressSummary{}, nil)
	statsRepo.On("Get", ctx, "u1").Return(nil, nil)

	got, err := svc.GetStats(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got.LastActivity)
	assert.True(t, got.LastActivityTime().IsZero())
}

func TestUpdateStats(t *testing.T) {
	svc, progressRepo, statsRepo := newStatsService()
	ctx := context.Background()

	statsRepo.On("Upsert", ctx, "u1", models.UserStats{
		QuestionsStudied: 4,
		CurrentStreak:    1,
		LongestStreak:    3,
		UpdatedAt:        "2024-01-03T12:30:00.000Z",
	}).Return(nil)
	progressRepo.On("Summary", ctx, "u1").Return(&models.ProgressSummary{}, nil)
	statsRepo.On("Get", ctx, "u1").Return(&models.UserStats{QuestionsStudied: 4, CurrentStreak: 1, LongestStreak: 3}, nil)

	got, err := svc.UpdateStats(ctx, "u1", models.StatsUpdate{QuestionsStudied: 4, CurrentStreak: 1, LongestStreak: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, got.QuestionsStudied)
	statsRepo.AssertExpectations(t)
}

func TestUpdateStats_RejectsNegative(t *testing.T) {
	svc, _, statsRepo := newStatsService()

	_, err := svc.UpdateStats(context.Background(), "u1", models.StatsUpdate{LongestStreak: -2})
	assert.True(t, errors.IsKind(err, errors.ErrCodeValidation))
	statsRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
}
