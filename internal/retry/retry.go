// Package retry re-runs failed best-effort operations in the background with
// a linear backoff and raises a persistent banner once they give up.
package retry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vytor/prepportal/internal/logger"
	"github.com/vytor/prepportal/internal/notice"
	"github.com/vytor/prepportal/internal/worker"
)

const (
	DefaultAttempts = 3
	DefaultBackoff  = 2 * time.Second

	// NoticeKind tags the banner raised after an operation exhausts its attempts.
	NoticeKind = "retry_exhausted"
)

// Op is a retryable operation.
type Op func(ctx context.Context) error

// Submitter is the part of worker.Pool the queue needs.
type Submitter interface {
	Submit(job worker.Job) error
}

// Queue schedules retries onto a worker pool.
type Queue struct {
	pool     Submitter
	notifier notice.Notifier
	attempts int
	backoff  time.Duration
	sleep    func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	exhausted map[string]int
}

type Option func(*Queue)

// WithAttempts sets the total number of tries, the first one included.
func WithAttempts(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.attempts = n
		}
	}
}

// WithBackoff sets the base delay. The wait after try i is i*backoff.
func WithBackoff(d time.Duration) Option {
	return func(q *Queue) {
		if d >= 0 {
			q.backoff = d
		}
	}
}

// WithSleep replaces the delay function, for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(q *Queue) { q.sleep = fn }
}

func New(pool Submitter, notifier notice.Notifier, opts ...Option) *Queue {
	if notifier == nil {
		notifier = notice.Discard
	}
	q := &Queue{
		pool:      pool,
		notifier:  notifier,
		attempts:  DefaultAttempts,
		backoff:   DefaultBackoff,
		sleep:     sleepCtx,
		exhausted: make(map[string]int),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Enqueue submits op to the pool. The op is tried up to the configured number
// of attempts; when it still fails a persistent error notice is raised.
func (q *Queue) Enqueue(name string, op Op) error {
	return q.pool.Submit(worker.JobFunc{
		JobName: "retry:" + name,
		Fn: func(ctx context.Context) error {
			return q.Run(ctx, name, op)
		},
	})
}

// Run retries op inline. It returns the last error, or nil once op succeeds.
func (q *Queue) Run(ctx context.Context, name string, op Op) error {
	log := logger.FromContext(ctx).WithPrefix("retry").WithField("op", name)

	var err error
	for attempt := 1; attempt <= q.attempts; attempt++ {
		if err = op(ctx); err == nil {
			if attempt > 1 {
				log.Info("succeeded on attempt %d", attempt)
			}
			return nil
		}
		log.Debug("attempt %d/%d failed: %v", attempt, q.attempts, err)
		if attempt == q.attempts {
			break
		}
		if serr := q.sleep(ctx, time.Duration(attempt)*q.backoff); serr != nil {
			log.Debug("retry cancelled: %v", serr)
			return err
		}
	}

	q.mu.Lock()
	q.exhausted[name]++
	q.mu.Unlock()

	log.Warn("giving up after %d attempts: %v", q.attempts, err)
	q.notifier.Notify(ctx, notice.Notice{
		ID:          NoticeKind + ":" + name,
		Level:       notice.Error,
		Kind:        NoticeKind,
		Message:     fmt.Sprintf("%s keeps failing: %v", name, err),
		Remediation: "Check your connection. Your progress is still saved on this device.",
		Persistent:  true,
	})
	return err
}

// Exhausted reports how many times name has run out of attempts.
func (q *Queue) Exhausted(name string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.exhausted[name]
}
