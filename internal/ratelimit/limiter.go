// Package ratelimit provides a sliding-window rate limiter for the external
// market-data budget. The limiter is an owned, injectable object rather than
// global state, and it takes its clock as a dependency so the dispatch
// schedule is unit-testable without real sleeps.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Clock abstracts time for the limiter.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock returns a Clock backed by the system clock.
func RealClock() Clock { return realClock{} }

// Config sets the request budget: at most MaxRequests dispatches inside any
// rolling Window, with consecutive dispatches spaced at least
// Window/MaxRequests apart so bursts are smoothed instead of fired all at
// once and then stalled.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// Validate checks the limiter configuration.
func (c Config) Validate() error {
	if c.MaxRequests <= 0 {
		return fmt.Errorf("rate limit max_requests must be > 0, got %d", c.MaxRequests)
	}
	if c.Window <= 0 {
		return fmt.Errorf("rate limit window must be > 0, got %v", c.Window)
	}
	return nil
}

// Limiter reserves dispatch slots under a single mutex, so the global budget
// holds even when multiple analysis runs share one limiter. Slots are handed
// out in lock-acquisition order, which preserves FIFO dispatch.
type Limiter struct {
	mu    sync.Mutex
	cfg   Config
	clock Clock
	// scheduled holds the last MaxRequests reserved dispatch times; the
	// oldest of them anchors the rolling-window constraint.
	scheduled []time.Time
	last      time.Time
}

// State is an observability snapshot of the limiter.
type State struct {
	WindowStart  time.Time `json:"window_start"`
	InWindow     int       `json:"in_window"`
	LastDispatch time.Time `json:"last_dispatch"`
}

// New creates a Limiter. A nil clock means the system clock.
func New(cfg Config, clock Clock) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = realClock{}
	}
	return &Limiter{cfg: cfg, clock: clock}, nil
}

// Wait blocks until the caller may dispatch one external request, or until
// ctx is done. The slot is reserved up front; a canceled waiter leaves its
// slot consumed, which errs on the side of staying under the budget.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	at := l.reserve(l.clock.Now())
	delay := at.Sub(l.clock.Now())
	if delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.clock.After(delay):
		return nil
	}
}

// reserve assigns the next dispatch time: no earlier than now, at least
// spacing after the previous reservation, and at least Window after the
// reservation MaxRequests back.
func (l *Limiter) reserve(now time.Time) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	at := now
	spacing := l.cfg.Window / time.Duration(l.cfg.MaxRequests)
	if !l.last.IsZero() {
		if earliest := l.last.Add(spacing); earliest.After(at) {
			at = earliest
		}
	}
	if len(l.scheduled) >= l.cfg.MaxRequests {
		anchor := l.scheduled[len(l.scheduled)-l.cfg.MaxRequests]
		if earliest := anchor.Add(l.cfg.Window); earliest.After(at) {
			at = earliest
		}
	}

	l.scheduled = append(l.scheduled, at)
	if excess := len(l.scheduled) - l.cfg.MaxRequests; excess > 0 {
		l.scheduled = l.scheduled[excess:]
	}
	l.last = at
	return at
}

// Budget returns the per-window request budget.
func (l *Limiter) Budget() int {
	return l.cfg.MaxRequests
}

// Spacing returns the minimum gap between consecutive dispatches.
func (l *Limiter) Spacing() time.Duration {
	return l.cfg.Window / time.Duration(l.cfg.MaxRequests)
}

// Snapshot returns the current limiter state.
func (l *Limiter) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := State{LastDispatch: l.last, InWindow: len(l.scheduled)}
	if len(l.scheduled) > 0 {
		s.WindowStart = l.scheduled[0]
	}
	return s
}
