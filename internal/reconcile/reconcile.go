// Package reconcile resolves divergence between the local progress record and
// the remote store by comparing their timestamps.
package reconcile

import (
	"context"
	"time"

	"github.com/vytor/prepportal/internal/errors"
	"github.com/vytor/prepportal/internal/logger"
	"github.com/vytor/prepportal/internal/models"
	"github.com/vytor/prepportal/internal/progress"
	"github.com/vytor/prepportal/internal/remote"
)

// Strategy is the action taken for one reconciliation.
type Strategy string

const (
	StrategyPush  Strategy = "push"
	StrategyPull  Strategy = "pull"
	StrategyMerge Strategy = "merge"
)

// Choose picks the strategy: the newer side wins, and equal timestamps
// (both zero included) are merged.
func Choose(local, remote time.Time) Strategy {
	switch {
	case local.After(remote):
		return StrategyPush
	case remote.After(local):
		return StrategyPull
	default:
		return StrategyMerge
	}
}

// Merge is the right-biased union of local and remote: every key of either
// side is kept and remote values win on collision. Analytics are combined the
// same way. The result is tagged merged and keeps local's LastSynced.
func Merge(local, remote *models.ProgressRecord) *models.ProgressRecord {
	out := local.Clone()
	if out.CompletedDays == nil {
		out.CompletedDays = make(map[string]bool)
	}
	if out.Tasks == nil {
		out.Tasks = make(map[string]bool)
	}
	for k, v := range remote.CompletedDays {
		out.CompletedDays[k] = v
	}
	for k, v := range remote.Tasks {
		out.Tasks[k] = v
	}
	if len(remote.Analytics) > 0 {
		if out.Analytics == nil {
			out.Analytics = make(map[string]int, len(remote.Analytics))
		}
		for k, v := range remote.Analytics {
			out.Analytics[k] = v
		}
	}
	out.Source = models.SourceMerged
	return out
}

// Result describes a completed reconciliation.
type Result struct {
	Strategy Strategy
	// Record is the resolved record that is now persisted locally.
	Record *models.ProgressRecord
	// Previous is the local record before a pull. It is not persisted.
	Previous *models.ProgressRecord
}

type Reconciler struct {
	store *progress.Store
}

func New(store *progress.Store) *Reconciler {
	return &Reconciler{store: store}
}

// Reconcile fetches the remote snapshot and applies the chosen strategy to a
// copy of local. Any failure aborts the cycle with a RECONCILIATION_ABORT error
// and leaves both local and the persisted record as they were. A merge that
// would not change the remote is saved locally and not pushed.
func (r *Reconciler) Reconcile(ctx context.Context, local *models.ProgressRecord) (*Result, error) {
	log := logger.FromContext(ctx).WithPrefix("reconciler")

	if err := progress.Validate(local); err != nil {
		return nil, errors.NewReconciliationAbortError(err)
	}
	if !r.store.RemoteReady() {
		return nil, errors.NewReconciliationAbortError(errors.New("remote not configured or not authenticated"))
	}

	snap, err := remote.FetchSnapshot(ctx, r.store.Remote(), "")
	if err != nil {
		log.Warn("fetch failed, keeping local state: %v", err)
		return nil, errors.NewReconciliationAbortError(err)
	}
	remoteRec := snap.Record()

	localTS, remoteTS := local.Timestamp(), snap.Timestamp()
	strategy := Choose(localTS, remoteTS)
	log.Debug("local=%s remote=%s strategy=%s", stamp(localTS), stamp(remoteTS), strategy)

	switch strategy {
	case StrategyPush:
		work := local.Clone()
		work.Analytics = remoteRec.Analytics
		if _, err := r.store.Push(ctx, work); err != nil {
			log.Warn("push failed: %v", err)
			return nil, errors.NewReconciliationAbortError(err)
		}
		log.Info("pushed %d days", len(work.CompletedDays))
		return &Result{Strategy: strategy, Record: work}, nil

	case StrategyPull:
		if err := r.store.SaveLocal(ctx, remoteRec); err != nil {
			log.Warn("failed to persist pulled progress: %v", err)
			return nil, errors.NewReconciliationAbortError(err)
		}
		log.Info("pulled %d days from remote", len(remoteRec.CompletedDays))
		return &Result{Strategy: strategy, Record: remoteRec, Previous: local.Clone()}, nil

	default:
		merged := Merge(local, remoteRec)
		if remote.InSync(merged, remoteRec) {
			// Nothing to send; adopt the remote stamp so the next cycle compares equal again.
			merged.LastSynced = nil
			if !remoteTS.IsZero() {
				merged.LastSynced = &remoteTS
			}
			if err := r.store.SaveLocal(ctx, merged); err != nil {
				log.Warn("failed to persist merged progress: %v", err)
				return nil, errors.NewReconciliationAbortError(err)
			}
			log.Debug("already in sync, nothing pushed")
			return &Result{Strategy: strategy, Record: merged}, nil
		}
		if err := r.store.Save(ctx, merged); err != nil {
			log.Warn("failed to persist merged progress: %v", err)
			return nil, errors.NewReconciliationAbortError(err)
		}
		log.Info("merged to %d days", len(merged.CompletedDays))
		return &Result{Strategy: strategy, Record: merged}, nil
	}
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.UTC().Format(models.TimestampLayout)
}
