package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Rule is a per-scope budget: Limit calls per Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type Config struct {
	// SweepEvery triggers a stale-bucket sweep every N calls.
	SweepEvery int
	// MaxBuckets triggers a sweep when exceeded; if the sweep is not enough,
	// arbitrary buckets are evicted until the map fits.
	MaxBuckets int
	Now        func() time.Time
}

func (c Config) withDefaults() Config {
	if c.SweepEvery <= 0 {
		c.SweepEvery = 500
	}
	if c.MaxBuckets <= 0 {
		c.MaxBuckets = 10000
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

type bucket struct {
	count       int
	windowStart time.Time
	window      time.Duration
}

// Limiter is an in-memory fixed-window counter keyed by scope, user and
// window length. Construct one per process and share it.
type Limiter struct {
	mu      sync.Mutex
	cfg     Config
	buckets map[string]*bucket
	calls   int
}

func New(cfg Config) *Limiter {
	return &Limiter{cfg: cfg.withDefaults(), buckets: make(map[string]*bucket)}
}

func Key(scope string, userID uuid.UUID, window time.Duration) string {
	return fmt.Sprintf("%s:%s:%d", scope, userID, window.Milliseconds())
}

func (l *Limiter) Allow(scope string, userID uuid.UUID, rule Rule) Decision {
	if rule.Limit <= 0 || rule.Window <= 0 {
		return Decision{Allowed: true}
	}
	key := Key(scope, userID, rule.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.cfg.Now()
	l.calls++
	if l.calls%l.cfg.SweepEvery == 0 || len(l.buckets) > l.cfg.MaxBuckets {
		l.sweepLocked(now)
	}

	b, ok := l.buckets[key]
	if !ok || !now.Before(b.windowStart.Add(b.window)) {
		l.buckets[key] = &bucket{count: 1, windowStart: now, window: rule.Window}
		return Decision{Allowed: true, Remaining: rule.Limit - 1}
	}
	if b.count < rule.Limit {
		b.count++
		return Decision{Allowed: true, Remaining: rule.Limit - b.count}
	}
	return Decision{Allowed: false, RetryAfter: b.windowStart.Add(b.window).Sub(now)}
}

// sweepLocked drops elapsed windows, then evicts in map iteration order
// while the ceiling is still exceeded.
func (l *Limiter) sweepLocked(now time.Time) {
	for k, b := range l.buckets {
		if !now.Before(b.windowStart.Add(b.window)) {
			delete(l.buckets, k)
		}
	}
	for k := range l.buckets {
		if len(l.buckets) <= l.cfg.MaxBuckets {
			break
		}
		delete(l.buckets, k)
	}
}

// Len reports the number of live buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
