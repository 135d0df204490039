package memory

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a rolling-window limiter kept in process memory.
type RateLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return NewRateLimiterWithClock(limit, window, time.Now)
}

// NewRateLimiterWithClock lets tests move time forward.
func NewRateLimiterWithClock(limit int, window time.Duration, clock func() time.Time) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		clock:  clock,
		hits:   make(map[string][]time.Time),
	}
}

// Allow admits the call when fewer than limit calls for key landed in the last window.
// Rejected calls do not count against the window.
func (l *RateLimiter) Allow(_ context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	now := l.clock()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.hits[key][:0]
	for _, at := range l.hits[key] {
		if at.After(cutoff) {
			recent = append(recent, at)
		}
	}
	if len(recent) >= l.limit {
		l.hits[key] = recent
		return false, nil
	}
	l.hits[key] = append(recent, now)
	return true, nil
}
