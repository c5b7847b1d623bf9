package portal

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vytor/prepportal/internal/logger"
)

// DefaultDebounce collapses the burst of events a single atomic rewrite produces.
const DefaultDebounce = 250 * time.Millisecond

// Reloader re-reads the backing file of a local store.
type Reloader interface {
	Path() string
	Reload() error
}

// Watcher reloads local state when the data file is written by another
// process, then runs the staleness check. It watches the directory, not the
// file, because the file is replaced by rename on every write.
type Watcher struct {
	watcher  *fsnotify.Watcher
	store    Reloader
	portal   *Portal
	debounce time.Duration

	wg   sync.WaitGroup
	done chan struct{}
	once sync.Once
}

func NewWatcher(p *Portal, store Reloader) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &Watcher{
		watcher:  fw,
		store:    store,
		portal:   p,
		debounce: DefaultDebounce,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching the directory of the store file.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.store.Path())
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logger.FromContext(ctx).WithPrefix("watcher").Info("watching %s", dir)

	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	log := logger.FromContext(ctx).WithPrefix("watcher")
	name := filepath.Base(w.store.Path())

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.apply(ctx, log)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("watch error: %v", err)
		}
	}
}

func (w *Watcher) apply(ctx context.Context, log *logger.Logger) {
	if err := w.store.Reload(); err != nil {
		log.Warn("failed to reload %s: %v", w.store.Path(), err)
		return
	}
	w.portal.Reload(ctx)
	if _, err := w.portal.OnVisible(ctx); err != nil {
		log.Debug("sync after reload failed: %v", err)
	}
}

// Stop ends the watch and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}
