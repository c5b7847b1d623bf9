package remote

import (
	"context"

	"github.com/vytor/prepportal/internal/models"
)

// Store is the remote progress store contract.
type Store interface {
	// Authenticated reports whether calls can be made on behalf of a user.
	Authenticated() bool
	FetchProgress(ctx context.Context, track string) ([]models.DayProgress, error)
	FetchStats(ctx context.Context) (*models.RemoteStats, error)
	UpdateProgress(ctx context.Context, track string, day int, update models.DayUpdate) (*models.DayProgress, error)
	UpdateStats(ctx context.Context, update models.StatsUpdate) (*models.RemoteStats, error)
	ResetProgress(ctx context.Context) error
}

var _ Store = (*Client)(nil)
