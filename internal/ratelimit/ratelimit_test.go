package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a controllable time source for deterministic tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newTestLimiter creates a Limiter wired to the given fake clock.
func newTestLimiter(rate int, window time.Duration, clock *fakeClock) *Limiter {
	l := New(rate, window)
	l.now = clock.Now
	return l
}

func TestAllowBasic(t *testing.T) {
	clock := newFakeClock(time.Now())
	l := newTestLimiter(3, time.Minute, clock)

	for i := 0; i < 3; i++ {
		if !l.Allow("operator:op-1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("operator:op-1") {
		t.Fatal("4th request should be denied")
	}
}

func TestAllowSeparateBucketsPerPrincipal(t *testing.T) {
	clock := newFakeClock(time.Now())
	l := newTestLimiter(1, time.Minute, clock)

	if !l.Allow("operator:a") {
		t.Fatal("first request for a should be allowed")
	}
	if l.Allow("operator:a") {
		t.Fatal("second request for a should be denied")
	}
	if !l.Allow("admin") {
		t.Fatal("different principal should have its own bucket")
	}
}

func TestTokenRefill(t *testing.T) {
	clock := newFakeClock(time.Now())
	// 60 tokens per minute = 1 token per second.
	l := newTestLimiter(60, time.Minute, clock)

	for i := 0; i < 60; i++ {
		l.Allow("k")
	}
	if l.Allow("k") {
		t.Fatal("should be denied after exhausting tokens")
	}

	clock.Advance(2 * time.Second)
	if !l.Allow("k") {
		t.Fatal("should be allowed after refill")
	}
	if !l.Allow("k") {
		t.Fatal("second refilled token should be available")
	}
	if l.Allow("k") {
		t.Fatal("third request should be denied, only 2 tokens refilled")
	}
}

func TestStatus(t *testing.T) {
	clock := newFakeClock(time.Now())
	l := newTestLimiter(10, time.Minute, clock)

	limit, remaining, _ := l.Status("k")
	if limit != 10 || remaining != 10 {
		t.Fatalf("fresh bucket: limit=%d remaining=%d", limit, remaining)
	}

	l.Allow("k")
	l.Allow("k")
	_, remaining, resetAt := l.Status("k")
	if remaining != 8 {
		t.Errorf("remaining = %d, want 8", remaining)
	}
	if !resetAt.After(clock.Now()) {
		t.Error("resetAt should be in the future for a drained bucket")
	}
}
