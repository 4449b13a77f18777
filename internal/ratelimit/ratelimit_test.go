package ratelimit

import (
	"context"
	"testing"
	"time"
)

// fakeClock drives a Limiter without real sleeping. Sleeps advance the
// clock and are recorded for assertions.
type fakeClock struct {
	current time.Time
	sleeps  []time.Duration
}

func newFakeLimiter(rpm int) (*Limiter, *fakeClock) {
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := NewLimiter(rpm)
	l.now = func() time.Time { return clock.current }
	l.sleep = func(_ context.Context, d time.Duration) error {
		clock.sleeps = append(clock.sleeps, d)
		clock.current = clock.current.Add(d)
		return nil
	}
	return l, clock
}

func TestFirstRequestDoesNotWait(t *testing.T) {
	l, clock := newFakeLimiter(20)

	if err := l.WaitIfNeeded(context.Background(), "example.com", time.Second); err != nil {
		t.Fatalf("WaitIfNeeded failed: %v", err)
	}
	if len(clock.sleeps) != 0 {
		t.Errorf("Expected no sleep on first request, got %v", clock.sleeps)
	}
}

func TestBaseDelayBetweenRequests(t *testing.T) {
	l, clock := newFakeLimiter(20)
	ctx := context.Background()

	if err := l.WaitIfNeeded(ctx, "example.com", time.Second); err != nil {
		t.Fatal(err)
	}
	if err := l.WaitIfNeeded(ctx, "example.com", time.Second); err != nil {
		t.Fatal(err)
	}

	if len(clock.sleeps) != 1 {
		t.Fatalf("Expected 1 sleep, got %d", len(clock.sleeps))
	}
	got := clock.sleeps[0].Seconds()
	if got < 0.8 || got > 1.2 {
		t.Errorf("Expected jittered wait in [0.8, 1.2]s, got %.2fs", got)
	}
}

func TestSlidingWindowCapsAtTenSeconds(t *testing.T) {
	l, clock := newFakeLimiter(2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.WaitIfNeeded(ctx, "example.com", 0); err != nil {
			t.Fatal(err)
		}
	}
	// Window is now full; the computed wait is ~60s but the sleep must
	// be clamped.
	if err := l.WaitIfNeeded(ctx, "example.com", 0); err != nil {
		t.Fatal(err)
	}

	if len(clock.sleeps) == 0 {
		t.Fatal("Expected a sleep once the window filled")
	}
	last := clock.sleeps[len(clock.sleeps)-1]
	if last != 10*time.Second {
		t.Errorf("Expected 10s cap, got %v", last)
	}
}

func TestWindowDrainsAfterSixtySeconds(t *testing.T) {
	l, clock := newFakeLimiter(2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.WaitIfNeeded(ctx, "example.com", 0); err != nil {
			t.Fatal(err)
		}
	}
	clock.current = clock.current.Add(61 * time.Second)
	clock.sleeps = nil

	if err := l.WaitIfNeeded(ctx, "example.com", 0); err != nil {
		t.Fatal(err)
	}
	if len(clock.sleeps) != 0 {
		t.Errorf("Expected no sleep after window drained, got %v", clock.sleeps)
	}
}

func TestFailureBackoff(t *testing.T) {
	l, clock := newFakeLimiter(20)
	ctx := context.Background()

	if err := l.WaitIfNeeded(ctx, "example.com", time.Second); err != nil {
		t.Fatal(err)
	}
	l.RecordFailure("example.com")
	l.RecordFailure("example.com")

	if err := l.WaitIfNeeded(ctx, "example.com", time.Second); err != nil {
		t.Fatal(err)
	}

	// Backoff 1.5^2 = 2.25s, adaptive multiplier 1.44, jitter 0.8-1.2.
	if len(clock.sleeps) != 1 {
		t.Fatalf("Expected 1 sleep, got %d", len(clock.sleeps))
	}
	got := clock.sleeps[0].Seconds()
	if got < 2.25*1.44*0.8-0.01 || got > 2.25*1.44*1.2+0.01 {
		t.Errorf("Expected backoff-scaled wait, got %.2fs", got)
	}
}

func TestFailureCountResetOnSuccess(t *testing.T) {
	l, _ := newFakeLimiter(20)

	l.RecordFailure("example.com")
	if got := l.Failures("example.com"); got != 1 {
		t.Errorf("Expected 1 failure, got %d", got)
	}
	l.RecordSuccess("example.com")
	if got := l.Failures("example.com"); got != 0 {
		t.Errorf("Expected failures reset to 0, got %d", got)
	}
}

func TestAdaptiveMultiplierAdjusts(t *testing.T) {
	l, _ := newFakeLimiter(20)

	l.RecordFailure("example.com")
	stats := l.GetStats()
	if stats.AverageAdaptiveMultiplier < 1.19 || stats.AverageAdaptiveMultiplier > 1.21 {
		t.Errorf("Expected multiplier 1.2 after failure, got %f", stats.AverageAdaptiveMultiplier)
	}

	// A full success streak relaxes the multiplier one step.
	for i := 0; i < 5; i++ {
		l.RecordSuccess("example.com")
	}
	stats = l.GetStats()
	if stats.AverageAdaptiveMultiplier < 1.07 || stats.AverageAdaptiveMultiplier > 1.09 {
		t.Errorf("Expected multiplier 1.08 after streak, got %f", stats.AverageAdaptiveMultiplier)
	}
}

func TestWaitCancelledContext(t *testing.T) {
	l, _ := newFakeLimiter(20)
	l.sleep = sleepContext

	ctx, cancel := context.WithCancel(context.Background())
	if err := l.WaitIfNeeded(ctx, "example.com", time.Second); err != nil {
		t.Fatal(err)
	}
	cancel()

	if err := l.WaitIfNeeded(ctx, "example.com", time.Second); err == nil {
		t.Error("Expected context error for cancelled wait")
	}
}

func TestGetStats(t *testing.T) {
	l, _ := newFakeLimiter(20)

	stats := l.GetStats()
	if stats.DomainsTracked != 0 || stats.AverageAdaptiveMultiplier != 1.0 {
		t.Errorf("Expected empty stats with neutral multiplier, got %+v", stats)
	}

	l.RecordFailure("a.com")
	l.RecordSuccess("b.com")
	stats = l.GetStats()
	if stats.DomainsTracked != 2 {
		t.Errorf("Expected 2 domains, got %d", stats.DomainsTracked)
	}
	if stats.TotalFailures != 1 || stats.DomainsWithFailures != 1 {
		t.Errorf("Expected 1 failing domain, got %+v", stats)
	}
}
