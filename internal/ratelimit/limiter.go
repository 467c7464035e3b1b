// Package ratelimit provides fixed-window request limiters keyed by an
// arbitrary string, typically client identity plus route.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether one more request for key fits in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// FixedWindow is a process-local fixed-window counter. Counts are not
// shared between instances, so a multi-instance deployment lets through
// up to limit requests per instance per window; use Redis for exact limits.
type FixedWindow struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	counters  map[string]*counter
	lastSweep time.Time
}

type counter struct {
	start time.Time
	count int
}

// NewFixedWindow allows limit requests per key per window.
func NewFixedWindow(limit int, window time.Duration) *FixedWindow {
	return &FixedWindow{
		limit:    limit,
		window:   window,
		now:      time.Now,
		counters: make(map[string]*counter),
	}
}

var _ Limiter = (*FixedWindow)(nil)

// Allow counts the request and reports whether it is within the limit.
func (f *FixedWindow) Allow(_ context.Context, key string) (bool, error) {
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	f.sweep(now)

	c, ok := f.counters[key]
	if !ok || now.Sub(c.start) >= f.window {
		c = &counter{start: now}
		f.counters[key] = c
	}
	c.count++
	return c.count <= f.limit, nil
}

// sweep drops expired windows at most once per window.
func (f *FixedWindow) sweep(now time.Time) {
	if now.Sub(f.lastSweep) < f.window {
		return
	}
	for k, c := range f.counters {
		if now.Sub(c.start) >= f.window {
			delete(f.counters, k)
		}
	}
	f.lastSweep = now
}
