package clock

import (
	"context"
	"testing"
	"time"
)

func TestUncappedBudgetNeverBlocks(t *testing.T) {
	b := New(0)
	b.BeginFrame()
	start := time.Now()
	_, elapsed := b.Adapt(context.Background())
	if time.Since(start) > 5*time.Millisecond {
		t.Fatalf("expected an uncapped budget's Adapt to return immediately, took %v", time.Since(start))
	}
	if elapsed < 0 {
		t.Fatalf("expected non-negative elapsed, got %v", elapsed)
	}
}

func TestAdaptDegradeHintOnSlowFrame(t *testing.T) {
	b := New(1000) // targetInterval 1ms
	b.BeginFrame()
	time.Sleep(5 * time.Millisecond)
	hint, _ := b.Adapt(context.Background())
	if hint != -1 {
		t.Fatalf("expected a degrade hint (-1) for a frame far over budget, got %d", hint)
	}
}

func TestAdaptUpgradeHintOnFastFrame(t *testing.T) {
	b := New(100) // targetInterval 10ms
	for i := 0; i < 3; i++ {
		b.BeginFrame()
		time.Sleep(time.Millisecond)
		b.Adapt(context.Background())
	}
	if b.LastHint() != 1 {
		t.Fatalf("expected an upgrade hint (1) once the EMA settles well under budget, got %d", b.LastHint())
	}
}

func TestPausableClockFreezesTimeWhilePaused(t *testing.T) {
	c := NewPausableClock()
	c.Pause()
	if !c.IsPaused() {
		t.Fatal("expected IsPaused true after Pause")
	}

	frozen := c.Now()
	time.Sleep(5 * time.Millisecond)
	if !c.Now().Equal(frozen) {
		t.Fatalf("expected Now() to stay frozen while paused, got %v then %v", frozen, c.Now())
	}

	var resumedAfter time.Duration
	done := make(chan struct{})
	c.OnResume(func(d time.Duration) {
		resumedAfter = d
		close(done)
	})
	c.Resume()
	<-done

	if c.IsPaused() {
		t.Fatal("expected IsPaused false after Resume")
	}
	if resumedAfter <= 0 {
		t.Fatalf("expected a positive paused duration reported to OnResume, got %v", resumedAfter)
	}
}

func TestPausableClockElapsedExcludesPausedTime(t *testing.T) {
	c := NewPausableClock()
	time.Sleep(5 * time.Millisecond)
	c.Pause()
	time.Sleep(20 * time.Millisecond)
	c.Resume()

	if elapsed := c.Elapsed(); elapsed >= 20*time.Millisecond {
		t.Fatalf("expected Elapsed to exclude the paused interval, got %v", elapsed)
	}
}
