// Package events carries ProgressChanged notifications from the mutators to
// the listeners that react to them.
package events

import (
	"context"
	"sync"

	"github.com/vytor/prepportal/internal/logger"
)

// Kind says what changed.
type Kind string

const (
	KindDay        Kind = "day"
	KindTask       Kind = "task"
	KindQuestion   Kind = "question"
	KindSession    Kind = "session"
	KindReconciled Kind = "reconciled"
	KindImported   Kind = "imported"
	KindReset      Kind = "reset"
)

// ProgressChanged is published after a mutation has been persisted locally.
type ProgressChanged struct {
	Kind Kind
	// Key is the day, task or question key for single-item mutations.
	Key string
}

// Listener reacts to a ProgressChanged. Errors are logged and never stop dispatch.
type Listener func(ctx context.Context, ev ProgressChanged) error

type subscription struct {
	name string
	fn   Listener
}

// Bus dispatches events synchronously to subscribers in subscription order.
type Bus struct {
	mu   sync.RWMutex
	subs []subscription
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn under name. The name is used in log lines only.
func (b *Bus) Subscribe(name string, fn Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{name: name, fn: fn})
}

// Publish runs every listener in order and returns how many failed.
func (b *Bus) Publish(ctx context.Context, ev ProgressChanged) int {
	b.mu.RLock()
	subs := append([]subscription(nil), b.subs...)
	b.mu.RUnlock()

	log := logger.FromContext(ctx).WithPrefix("events")
	log.Debug("publishing %s key=%q to %d listeners", ev.Kind, ev.Key, len(subs))

	failed := 0
	for _, s := range subs {
		if err := s.fn(ctx, ev); err != nil {
			failed++
			log.Warn("listener %s failed on %s: %v", s.name, ev.Kind, err)
		}
	}
	return failed
}

// Len reports the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
