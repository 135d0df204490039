package memory

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterRollingWindow(t *testing.T) {
	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiterWithClock(3, time.Minute, func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if ok, _ := limiter.Allow(ctx, "u1"); !ok {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
		now = now.Add(5 * time.Second)
	}
	if ok, _ := limiter.Allow(ctx, "u1"); ok {
		t.Fatalf("fourth attempt inside the window should be rejected")
	}
	if ok, _ := limiter.Allow(ctx, "u2"); !ok {
		t.Fatalf("other users have their own budget")
	}

	now = now.Add(46 * time.Second)
	if ok, _ := limiter.Allow(ctx, "u1"); !ok {
		t.Fatalf("oldest attempt left the window, expected allow")
	}
}
