package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/vytor/prepportal/internal/config"
	"github.com/vytor/prepportal/internal/kv"
	"github.com/vytor/prepportal/internal/logger"
	"github.com/vytor/prepportal/internal/notice"
	"github.com/vytor/prepportal/internal/portal"
	"github.com/vytor/prepportal/internal/progress"
	"github.com/vytor/prepportal/internal/remote"
	"github.com/vytor/prepportal/internal/retry"
	"github.com/vytor/prepportal/internal/worker"
)

const dataFileName = "portal.json"

// drainTimeout bounds how long a one-shot command waits for background syncs.
const drainTimeout = 15 * time.Second

var rootCmd = &cobra.Command{
	Use:   "portal",
	Short: "Interview preparation progress tracker",
	Long: `Track curriculum days, tasks, studied questions and study sessions.

Progress is kept in a local data file and, when PORTAL_REMOTE_URL and
PORTAL_USER are set, reconciled with the progress server on every command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// app is the wiring shared by every command.
type app struct {
	cfg    config.PortalConfig
	log    *logger.Logger
	center *notice.Center
	files  *kv.FileStore
	store  *progress.Store
	pool   *worker.Pool
	portal *portal.Portal
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.LoadPortal()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.New(
		logger.WithOutput(os.Stderr),
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
		logger.WithRotatingFile(cfg.LogFile, 5, 3),
	)
	logger.SetDefault(log)
	log.Debug("data_dir=%s remote=%q user_set=%t", cfg.DataDir, cfg.RemoteURL, cfg.User != "")

	files, err := kv.NewFileStore(filepath.Join(cfg.DataDir, dataFileName), cfg.StorageQuota)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}

	a := &app{
		cfg:    cfg,
		log:    log,
		center: notice.NewCenter(notice.NewConsole(os.Stderr)),
		files:  files,
		pool:   worker.NewPool(cfg.WorkerCount, cfg.QueueSize),
	}

	storeOpts := []progress.Option{
		progress.WithNotifier(a.center),
		progress.WithDefaultTrack(cfg.DefaultTrack),
		progress.WithPushFailure(func(ctx context.Context, err error) {
			if a.portal != nil {
				a.portal.PushFailed(ctx, err)
			}
		}),
	}
	if cfg.RemoteEnabled() {
		storeOpts = append(storeOpts, progress.WithRemote(remote.New(cfg.RemoteURL, cfg.User)))
	}
	a.store = progress.NewStore(files, storeOpts...)

	retries := retry.New(a.pool, a.center,
		retry.WithAttempts(cfg.RetryAttempts),
		retry.WithBackoff(cfg.RetryBackoff),
	)
	a.portal = portal.New(a.store,
		portal.WithJobs(a.pool),
		portal.WithRetries(retries),
		portal.WithNotifier(a.center),
		portal.WithSyncInterval(cfg.SyncInterval),
	)

	a.pool.Start(ctx)
	if err := a.portal.Start(ctx); err != nil {
		a.pool.Stop()
		return nil, err
	}
	return a, nil
}

// close waits a bounded time for queued syncs, stops the pool and prints any
// banner that is still up.
func (a *app) close() {
	done := make(chan struct{})
	go func() {
		a.pool.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(drainTimeout):
		a.log.Warn("background sync still running after %v, stopping", drainTimeout)
	}
	a.pool.Stop()

	for _, b := range a.center.Banners() {
		fmt.Fprintln(os.Stderr, notice.Render(b))
	}
}

// withApp runs fn against a started app and always closes it.
func withApp(fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		return fn(ctx, a, cmd, args)
	}
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
