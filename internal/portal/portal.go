// Package portal is the client application core. It holds the in-memory
// progress and dashboard records, applies user actions to them, and keeps
// them reconciled with the remote store.
package portal

import (
	"context"
	"sync"
	"time"

	"github.com/vytor/prepportal/internal/clock"
	"github.com/vytor/prepportal/internal/errors"
	"github.com/vytor/prepportal/internal/events"
	"github.com/vytor/prepportal/internal/logger"
	"github.com/vytor/prepportal/internal/models"
	"github.com/vytor/prepportal/internal/notice"
	"github.com/vytor/prepportal/internal/progress"
	"github.com/vytor/prepportal/internal/reconcile"
	"github.com/vytor/prepportal/internal/retry"
)

// DefaultSyncInterval is how stale the last sync must be before OnVisible reconciles again.
const DefaultSyncInterval = 5 * time.Minute

// Retry operation names.
const (
	opSync = "sync"
)

// NoticeAchievement tags the toast raised when an achievement unlocks.
const NoticeAchievement = "achievement"

// Portal owns the session state. All methods are safe for concurrent use.
type Portal struct {
	store        *progress.Store
	reconciler   *reconcile.Reconciler
	bus          *events.Bus
	jobs         retry.Submitter
	retries      *retry.Queue
	notifier     notice.Notifier
	clock        clock.Clock
	syncInterval time.Duration

	mu        sync.Mutex
	progress  *models.ProgressRecord
	dashboard *models.DashboardRecord
	settings  models.Settings
	lastSync  time.Time
	started   bool
}

type Option func(*Portal)

// WithJobs runs the fire-and-forget sync on a worker pool. Without one the
// sync after a mutation runs inline.
func WithJobs(s retry.Submitter) Option {
	return func(p *Portal) { p.jobs = s }
}

// WithRetries sends failed syncs to a retry queue.
func WithRetries(q *retry.Queue) Option {
	return func(p *Portal) { p.retries = q }
}

func WithNotifier(n notice.Notifier) Option {
	return func(p *Portal) {
		if n != nil {
			p.notifier = n
		}
	}
}

func WithSyncInterval(d time.Duration) Option {
	return func(p *Portal) {
		if d > 0 {
			p.syncInterval = d
		}
	}
}

// New builds a portal around store. The clock is the store's clock.
func New(store *progress.Store, opts ...Option) *Portal {
	p := &Portal{
		store:        store,
		reconciler:   reconcile.New(store),
		bus:          events.NewBus(),
		notifier:     notice.Discard,
		clock:        store.Clock(),
		syncInterval: DefaultSyncInterval,
		progress:     models.NewProgressRecord(),
		dashboard:    models.NewDashboardRecord(),
		settings:     models.Settings{},
	}
	for _, opt := range opts {
		opt(p)
	}

	p.bus.Subscribe("achievements", p.checkAchievements)
	p.bus.Subscribe("sync", p.scheduleSync)
	p.bus.Subscribe("stats", p.uploadStats)
	return p
}

// Events exposes the bus so front ends can subscribe to refresh their views.
func (p *Portal) Events() *events.Bus {
	return p.bus
}

// Start loads local state and reconciles it once. On a device with no local
// data it takes the remote record as is. Reconciliation failures are soft.
func (p *Portal) Start(ctx context.Context) error {
	log := logger.FromContext(ctx).WithPrefix("portal")

	p.mu.Lock()
	firstRun := !p.store.HasLocal(ctx) && p.store.RemoteReady()
	var rec *models.ProgressRecord
	if firstRun {
		rec = p.store.Load(ctx)
	} else {
		rec = p.store.LoadLocal(ctx)
	}

	pulled := firstRun && rec.Source == models.SourceDatabase
	if pulled {
		if err := p.store.SaveLocal(ctx, rec); err != nil {
			log.Warn("failed to keep remote progress locally: %v", err)
		}
		p.lastSync = p.clock.Now()
	}
	p.progress = rec
	p.dashboard = p.store.LoadDashboard(ctx)
	p.settings = p.store.LoadSettings(ctx)
	p.started = true
	p.mu.Unlock()

	log.Info("started: source=%s days=%d tasks=%d", rec.Source, len(rec.CompletedDays), len(rec.Tasks))

	if !pulled {
		if err := p.Sync(ctx); err != nil {
			log.Warn("startup sync failed: %v", err)
			p.retrySync(ctx)
		}
	}
	_ = p.checkAchievements(ctx, events.ProgressChanged{Kind: events.KindReconciled})
	return nil
}

// Reload re-reads the local records, for when another process has written them.
func (p *Portal) Reload(ctx context.Context) {
	p.mu.Lock()
	p.progress = p.store.LoadLocal(ctx)
	p.dashboard = p.store.LoadDashboard(ctx)
	p.settings = p.store.LoadSettings(ctx)
	p.mu.Unlock()
	logger.FromContext(ctx).WithPrefix("portal").Debug("reloaded local state")
}

// Sync reconciles the in-memory record with the remote store. It is a no-op
// when no remote is configured. The session lock is held for the whole cycle
// so a pull can never overwrite a mutation made while it was in flight.
func (p *Portal) Sync(ctx context.Context) error {
	p.mu.Lock()
	if !p.store.RemoteReady() {
		p.mu.Unlock()
		return nil
	}
	res, err := p.reconciler.Reconcile(ctx, p.progress)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	p.progress = res.Record
	p.lastSync = p.clock.Now()
	p.mu.Unlock()

	logger.FromContext(ctx).WithPrefix("portal").Debug("sync finished: strategy=%s", res.Strategy)
	p.bus.Publish(ctx, events.ProgressChanged{Kind: events.KindReconciled, Key: string(res.Strategy)})
	return nil
}

// OnVisible reconciles when the last sync is older than the sync interval. It
// reports whether a sync was attempted.
func (p *Portal) OnVisible(ctx context.Context) (bool, error) {
	p.mu.Lock()
	stale := p.lastSync.IsZero() || p.clock.Now().Sub(p.lastSync) >= p.syncInterval
	p.mu.Unlock()
	if !stale {
		return false, nil
	}
	if err := p.Sync(ctx); err != nil {
		logger.FromContext(ctx).WithPrefix("portal").Warn("sync on visibility failed: %v", err)
		p.retrySync(ctx)
		return true, err
	}
	return true, nil
}

// PushFailed is the store's push-failure hook. A failed best-effort push is
// retried as a full reconcile so a stale record is never pushed blindly.
func (p *Portal) PushFailed(ctx context.Context, err error) {
	logger.FromContext(ctx).WithPrefix("portal").Debug("push failed, scheduling retry: %v", err)
	p.retrySync(ctx)
}

func (p *Portal) retrySync(ctx context.Context) {
	if p.retries == nil || !p.store.RemoteReady() {
		return
	}
	if err := p.retries.Enqueue(opSync, p.Sync); err != nil {
		logger.FromContext(ctx).WithPrefix("portal").Warn("could not queue sync retry: %v", err)
	}
}

// LastSync is when the session last reconciled successfully.
func (p *Portal) LastSync() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSync
}

// Progress returns a copy of the current progress record.
func (p *Portal) Progress() *models.ProgressRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress.Clone()
}

// Dashboard returns a copy of the current dashboard record.
func (p *Portal) Dashboard() *models.DashboardRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dashboard.Clone()
}

func (p *Portal) requireStarted() error {
	if !p.started {
		return errors.NewBadRequestError("portal not started")
	}
	return nil
}
