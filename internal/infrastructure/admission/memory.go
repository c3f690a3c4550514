package admission

import (
	"context"
	"sync"
	"time"
)

// window is a fixed counting window for one tier.
type window struct {
	count   int
	resetAt time.Time
}

type visitorWindows struct {
	burst window
	daily window
}

// MemoryLimiter is the in-process fallback limiter. It counts in fixed
// windows, which can admit up to twice the configured rate across a window
// boundary. The durable limiter is the authority; this one only covers
// outages, and its state is lost on restart.
type MemoryLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitorWindows
	limits   Limits
	now      func() time.Time
}

// NewMemoryLimiter creates a fixed-window in-process limiter.
func NewMemoryLimiter(limits Limits) *MemoryLimiter {
	return &MemoryLimiter{
		visitors: make(map[string]*visitorWindows),
		limits:   limits,
		now:      time.Now,
	}
}

// Check applies the burst ceiling, then the daily ceiling. Allowance is only
// consumed when the visitor passes both.
func (l *MemoryLimiter) Check(_ context.Context, visitorKey string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[visitorKey]
	if !ok {
		v = &visitorWindows{}
		l.visitors[visitorKey] = v
	}

	if now.After(v.burst.resetAt) {
		v.burst = window{resetAt: now.Add(l.limits.BurstWindow)}
	}
	if now.After(v.daily.resetAt) {
		v.daily = window{resetAt: now.Add(l.limits.DailyWindow)}
	}

	if v.burst.count >= l.limits.BurstLimit {
		return Result{Tier: TierBurst, RetryAfter: v.burst.resetAt.Sub(now)}, nil
	}
	if v.daily.count >= l.limits.DailyLimit {
		return Result{Tier: TierDaily, RetryAfter: v.daily.resetAt.Sub(now)}, nil
	}

	v.burst.count++
	v.daily.count++
	return Result{Allowed: true}, nil
}

// SweepExpired drops visitor records whose daily window has lapsed. Returns
// the number of records removed. Called by the cleanup worker.
func (l *MemoryLimiter) SweepExpired(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, v := range l.visitors {
		if now.After(v.daily.resetAt) && now.After(v.burst.resetAt) {
			delete(l.visitors, key)
			removed++
		}
	}
	return removed
}

// VisitorCount reports how many visitor records are currently held.
func (l *MemoryLimiter) VisitorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}
