package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/prepportal/internal/models"
)

// MockProgressRepository is a mock implementation of repository.ProgressRepository
type MockProgressRepository struct {
	mock.Mock
}

func (m *MockProgressRepository) List(ctx context.Context, userID string, filter models.ProgressFilter) ([]models.DayProgress, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DayProgress), args.Error(1)
}

func (m *MockProgressRepository) Get(ctx context.Context, userID, trackID string, day int) (*models.DayProgress, error) {
	args := m.Called(ctx, userID, trackID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DayProgress), args.Error(1)
}

func (m *MockProgressRepository) Upsert(ctx context.Context, userID string, p models.DayProgress) (*models.DayProgress, error) {
	args := m.Called(ctx, userID, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DayProgress), args.Error(1)
}

func (m *MockProgressRepository) DeleteAll(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProgressRepository) Summary(ctx context.Context, userID string) (*models.ProgressSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProgressSummary), args.Error(1)
}
