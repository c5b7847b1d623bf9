// Package progress owns the progress and dashboard records: it validates them
// on load, persists them locally on every save and pushes progress to the
// remote store on a best-effort basis.
package progress

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vytor/prepportal/internal/clock"
	"github.com/vytor/prepportal/internal/errors"
	"github.com/vytor/prepportal/internal/kv"
	"github.com/vytor/prepportal/internal/logger"
	"github.com/vytor/prepportal/internal/models"
	"github.com/vytor/prepportal/internal/notice"
	"github.com/vytor/prepportal/internal/remote"
)

// Storage keys.
const (
	KeyProgress  = "prepportal.progress"
	KeyDashboard = "prepportal.dashboard"
	KeySettings  = "prepportal.settings"
)

// Size thresholds above which a save warns that storage is filling up.
const (
	ProgressWarnBytes  = 4 << 20
	DashboardWarnBytes = 2 << 20
)

// Notice kinds raised by the store.
const (
	NoticeCorruptData   = "corrupt_data"
	NoticeStorageLarge  = "storage_large"
	NoticeQuotaExceeded = "quota_exceeded"
	NoticeOffline       = "offline"
)

const remediationExportReset = "Export your progress to a file, then reset to free space."

// PushFailureFunc is told about a push that failed after the local save succeeded.
type PushFailureFunc func(ctx context.Context, err error)

// Store is the single source of truth for the progress and dashboard records.
type Store struct {
	kv           kv.Store
	remote       remote.Store
	clock        clock.Clock
	notifier     notice.Notifier
	defaultTrack string
	onPushFail   PushFailureFunc
}

type Option func(*Store)

// WithRemote enables remote loads and pushes. A nil store disables them.
func WithRemote(r remote.Store) Option {
	return func(s *Store) { s.remote = r }
}

func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

func WithNotifier(n notice.Notifier) Option {
	return func(s *Store) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithDefaultTrack sets the track legacy numeric keys are migrated into.
func WithDefaultTrack(track string) Option {
	return func(s *Store) {
		if track != "" {
			s.defaultTrack = track
		}
	}
}

// WithPushFailure registers a callback for failed best-effort pushes.
func WithPushFailure(fn PushFailureFunc) Option {
	return func(s *Store) { s.onPushFail = fn }
}

func NewStore(store kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:           store,
		clock:        clock.Real(),
		notifier:     notice.Discard,
		defaultTrack: "standard",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Remote returns the configured remote store, or nil.
func (s *Store) Remote() remote.Store {
	return s.remote
}

// RemoteReady reports whether a remote is configured and authenticated.
func (s *Store) RemoteReady() bool {
	return s.remote != nil && s.remote.Authenticated()
}

// DefaultTrack is the track used for legacy key migration.
func (s *Store) DefaultTrack() string {
	return s.defaultTrack
}

// Clock returns the store's clock.
func (s *Store) Clock() clock.Clock {
	return s.clock
}

// HasLocal reports whether a progress record has ever been saved locally.
func (s *Store) HasLocal(ctx context.Context) bool {
	_, ok, err := s.kv.Get(ctx, KeyProgress)
	return err == nil && ok
}

// Load returns the remote record when the remote is ready and reachable, and
// the local one otherwise. It never fails: unreadable local data yields a
// default record and a warning.
func (s *Store) Load(ctx context.Context) *models.ProgressRecord {
	log := logger.FromContext(ctx).WithPrefix("progress_store")

	if s.RemoteReady() {
		snap, err := remote.FetchSnapshot(ctx, s.remote, "")
		if err == nil {
			log.Debug("loaded %d days from remote", len(snap.Days))
			return snap.Record()
		}
		log.Warn("remote load failed, falling back to local: %v", err)
		s.offline(ctx)
	}
	return s.LoadLocal(ctx)
}

// LoadLocal reads the local record, migrating legacy numeric keys. Absent data
// yields a default record; corrupt data yields a default record and a warning.
func (s *Store) LoadLocal(ctx context.Context) *models.ProgressRecord {
	log := logger.FromContext(ctx).WithPrefix("progress_store")

	if r, ok := s.kv.(kv.Recoverer); ok {
		if backup := r.TakeRecovered(); backup != "" {
			log.Warn("local data file was unreadable and moved to %s", backup)
			s.notifier.Notify(ctx, notice.Notice{
				Level:       notice.Warning,
				Kind:        NoticeCorruptData,
				Message:     "Saved data was unreadable and has been reset. The old file was kept at " + backup + ".",
				Remediation: "Import a previous export to restore your progress.",
			})
		}
	}

	raw, ok, err := s.kv.Get(ctx, KeyProgress)
	if err != nil {
		log.Error("failed to read local progress: %v", err)
		s.notifier.Notify(ctx, notice.Notice{
			Level:       notice.Warning,
			Kind:        NoticeCorruptData,
			Message:     "Saved progress could not be read; starting from a blank record.",
			Remediation: "Import a previous export to restore your progress.",
		})
		return models.NewProgressRecord()
	}
	if !ok {
		log.Debug("no local progress, using defaults")
		return models.NewProgressRecord()
	}

	rec, err := ParseProgress([]byte(raw))
	if err != nil {
		log.Warn("local progress is corrupt, replacing with defaults: %v", err)
		s.notifier.Notify(ctx, notice.Notice{
			Level:       notice.Warning,
			Kind:        NoticeCorruptData,
			Message:     "Saved progress was corrupt and has been reset.",
			Remediation: "Import a previous export to restore your progress.",
		})
		return models.NewProgressRecord()
	}

	if n := s.migrate(rec); n > 0 {
		log.Info("migrated %d legacy keys into track %s", n, s.defaultTrack)
	}
	rec.Source = models.SourceLocal
	log.Debug("loaded local progress: %d days, %d tasks", len(rec.CompletedDays), len(rec.Tasks))
	return rec
}

// migrate rewrites legacy keys in place. A canonical key wins over a legacy
// key that migrates onto it.
func (s *Store) migrate(rec *models.ProgressRecord) int {
	n := 0
	for _, m := range []map[string]bool{rec.CompletedDays, rec.Tasks} {
		for key, done := range m {
			newKey, ok := models.MigrateLegacyKey(key, s.defaultTrack)
			if !ok {
				continue
			}
			delete(m, key)
			if _, exists := m[newKey]; !exists {
				m[newKey] = done
			}
			n++
		}
	}
	return n
}

// Save validates rec, stamps LastSynced, writes it locally and, unless rec is a
// default record, pushes it to the remote. A failed push does not fail the save.
func (s *Store) Save(ctx context.Context, rec *models.ProgressRecord) error {
	log := logger.FromContext(ctx).WithPrefix("progress_store")

	if err := s.Commit(ctx, rec); err != nil {
		return err
	}

	if rec.Source == models.SourceDefault || !s.RemoteReady() {
		return nil
	}
	if _, err := s.Push(ctx, rec); err != nil {
		log.Warn("push failed, progress kept locally: %v", err)
		s.offline(ctx)
		if s.onPushFail != nil {
			s.onPushFail(ctx, err)
		}
	}
	return nil
}

// Commit validates rec, stamps LastSynced and writes it locally. It does not push.
func (s *Store) Commit(ctx context.Context, rec *models.ProgressRecord) error {
	if err := Validate(rec); err != nil {
		logger.FromContext(ctx).WithPrefix("progress_store").Warn("refusing to save invalid progress: %v", err)
		return err
	}
	now := s.clock.Now().UTC()
	rec.LastSynced = &now
	return s.SaveLocal(ctx, rec)
}

// Push sends rec to the remote and, on success, restamps LastSynced with the
// server time of the write and saves locally again. It returns the new stamp.
func (s *Store) Push(ctx context.Context, rec *models.ProgressRecord) (time.Time, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_store")

	if !s.RemoteReady() {
		return time.Time{}, errors.NewRemoteUnavailableError("push", errors.New("remote not configured"))
	}
	if _, skipped := remote.Entries(rec); len(skipped) > 0 {
		log.Debug("not pushing %d keys outside the canonical scheme", len(skipped))
	}
	stamp, err := remote.PushRecord(ctx, s.remote, rec)
	if err != nil {
		return time.Time{}, err
	}
	if stamp.IsZero() {
		stamp = s.clock.Now().UTC()
	}
	rec.LastSynced = &stamp
	if err := s.SaveLocal(ctx, rec); err != nil {
		return time.Time{}, err
	}
	log.Debug("pushed progress, synced at %s", stamp.Format(models.TimestampLayout))
	return stamp, nil
}

// SaveLocal validates and writes rec locally without stamping or pushing.
func (s *Store) SaveLocal(ctx context.Context, rec *models.ProgressRecord) error {
	if err := Validate(rec); err != nil {
		return err
	}
	return s.write(ctx, KeyProgress, rec, ProgressWarnBytes)
}

// write serializes v, warns when it passes warnAt bytes and stores it. A quota
// failure raises a warning notice and is returned.
func (s *Store) write(ctx context.Context, key string, v any, warnAt int) error {
	log := logger.FromContext(ctx).WithPrefix("progress_store").WithField("key", key)

	data, err := json.Marshal(v)
	if err != nil {
		log.Error("failed to encode: %v", err)
		return errors.NewInternalError(err)
	}
	if len(data) > warnAt {
		log.Warn("stored data is large: %d bytes", len(data))
		s.notifier.Notify(ctx, notice.Notice{
			Level:       notice.Warning,
			Kind:        NoticeStorageLarge,
			Message:     "Your saved data is getting large and may soon stop saving.",
			Remediation: remediationExportReset,
		})
	}
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		log.Error("failed to write: %v", err)
		if errors.IsKind(err, errors.ErrCodeQuotaExceeded) {
			s.notifier.Notify(ctx, notice.Notice{
				Level:       notice.Warning,
				Kind:        NoticeQuotaExceeded,
				Message:     "Storage is full; your latest changes are not saved yet.",
				Remediation: remediationExportReset,
			})
		}
		return err
	}
	return nil
}

func (s *Store) offline(ctx context.Context) {
	s.notifier.Notify(ctx, notice.Notice{
		ID:      NoticeOffline,
		Level:   notice.Info,
		Kind:    NoticeOffline,
		Message: "Working offline; progress is saved on this device.",
	})
}
