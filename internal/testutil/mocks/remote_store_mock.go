package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/prepportal/internal/models"
)

// MockRemoteStore is a mock implementation of remote.Store
type MockRemoteStore struct {
	mock.Mock
}

func (m *MockRemoteStore) Authenticated() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockRemoteStore) FetchProgress(ctx context.Context, track string) ([]models.DayProgress, error) {
	args := m.Called(ctx, track)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DayProgress), args.Error(1)
}

func (m *MockRemoteStore) FetchStats(ctx context.Context) (*models.RemoteStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RemoteStats), args.Error(1)
}

func (m *MockRemoteStore) UpdateProgress(ctx context.Context, track string, day int, update models.DayUpdate) (*models.DayProgress, error) {
	args := m.Called(ctx, track, day, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DayProgress), args.Error(1)
}

func (m *MockRemoteStore) UpdateStats(ctx context.Context, update models.StatsUpdate) (*models.RemoteStats, error) {
	args := m.Called(ctx, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RemoteStats), args.Error(1)
}

func (m *MockRemoteStore) ResetProgress(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
