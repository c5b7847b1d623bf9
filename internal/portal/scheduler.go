package portal

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/vytor/prepportal/internal/logger"
)

// DefaultCheckSpec is how often the scheduler asks whether a sync is due.
const DefaultCheckSpec = "@every 1m"

// Scheduler runs the staleness check on a cron schedule, standing in for the
// page becoming visible again.
type Scheduler struct {
	cron   *cron.Cron
	portal *Portal
	spec   string
}

func NewScheduler(p *Portal, spec string) *Scheduler {
	if spec == "" {
		spec = DefaultCheckSpec
	}
	return &Scheduler{cron: cron.New(), portal: p, spec: spec}
}

// Start registers the check and starts the cron. Checks run with ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	log := logger.FromContext(ctx).WithPrefix("scheduler")
	_, err := s.cron.AddFunc(s.spec, func() {
		synced, err := s.portal.OnVisible(ctx)
		if err != nil {
			log.Warn("scheduled sync failed: %v", err)
			return
		}
		if synced {
			log.Debug("scheduled sync ran")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	log.Info("sync check scheduled: %s", s.spec)
	return nil
}

// Stop stops the cron and waits for a running check to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
