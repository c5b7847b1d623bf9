// Package notice carries user-visible messages ("toasts" and banners) from the
// portal core to whatever front end is rendering it.
package notice

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level is the severity of a notice.
type Level int

const (
	// Info is transient and dismissible ("working offline").
	Info Level = iota
	// Warning signals a data-loss risk and carries remediation ("export, then reset").
	Warning
	// Error is used for the persistent banner raised after retries are exhausted.
	Error
)

func (l Level) String() string {
	switch l {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Notice is one message for the user.
type Notice struct {
	ID          string
	Level       Level
	Kind        string
	Message     string
	Remediation string
	// Persistent notices stay until dismissed; others are shown once.
	Persistent bool
	CreatedAt  time.Time
}

// Notifier receives notices.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Discard drops every notice.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(context.Context, Notice) {}

// Center keeps the notices raised during a session so a front end can drain
// transient ones and show persistent ones until they are dismissed.
type Center struct {
	mu      sync.Mutex
	pending []Notice
	banners map[string]Notice
	order   []string
	forward Notifier
}

// NewCenter returns an empty Center. forward, if non-nil, also receives every notice as it arrives.
func NewCenter(forward Notifier) *Center {
	return &Center{banners: make(map[string]Notice), forward: forward}
}

func (c *Center) Notify(ctx context.Context, n Notice) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	c.mu.Lock()
	if n.Persistent {
		if _, ok := c.banners[n.ID]; !ok {
			c.order = append(c.order, n.ID)
		}
		c.banners[n.ID] = n
	} else {
		c.pending = append(c.pending, n)
	}
	c.mu.Unlock()

	if c.forward != nil {
		c.forward.Notify(ctx, n)
	}
}

// Drain returns and clears the transient notices raised so far.
func (c *Center) Drain() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.pending
	c.pending = nil
	return out
}

// Banners returns the persistent notices that have not been dismissed, oldest first.
func (c *Center) Banners() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notice, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.banners[id])
	}
	return out
}

// Dismiss removes a persistent notice. It reports whether the notice existed.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.banners[id]; !ok {
		return false
	}
	delete(c.banners, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}
