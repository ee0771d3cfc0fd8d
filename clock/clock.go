// Package clock implements frame timing, target-FPS pacing, and
// hysteresis-smoothed adaptive budget hints. Pausable-clock time tracking
// is adapted from this codebase's own pause/resume discipline; pacing is
// delegated to golang.org/x/time/rate rather than a hand-rolled sleep
// remainder.
package clock

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Budget is per-frame timing plus a 16-sample EMA-smoothed signal used to
// emit degrade/upgrade hints without oscillating on single-frame spikes.
type Budget struct {
	mu sync.Mutex

	targetFPS       int
	targetInterval  time.Duration
	limiter         *rate.Limiter
	frameStart      time.Time

	ema        float64
	emaInit    bool
	lastHint   int // -1 degrade, 0 steady, +1 upgrade; the orchestrator maps these onto framecontext.BudgetHint
}

const emaAlpha = 2.0 / (16.0 + 1.0) // 16-sample EMA smoothing factor

// New constructs a Budget targeting targetFPS frames per second. A
// targetFPS of 0 disables pacing entirely: frames run as fast as
// possible, matching the "uncapped when target_fps == 0" boundary
// behavior.
func New(targetFPS int) *Budget {
	b := &Budget{targetFPS: targetFPS}
	if targetFPS > 0 {
		b.targetInterval = time.Second / time.Duration(targetFPS)
		b.limiter = rate.NewLimiter(rate.Limit(targetFPS), 1)
	}
	return b
}

// BeginFrame records the frame's start timestamp.
func (b *Budget) BeginFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frameStart = time.Now()
}

// Adapt computes this frame's elapsed time, folds it into the EMA, and
// returns a degrade/upgrade/steady hint (-1/+1/0) along with the elapsed
// duration. If the frame finished under target_interval, it sleeps the
// remainder via the rate limiter (a no-op when target_fps == 0).
func (b *Budget) Adapt(ctx context.Context) (hint int, elapsed time.Duration) {
	b.mu.Lock()
	elapsed = time.Since(b.frameStart)
	if !b.emaInit {
		b.ema = float64(elapsed)
		b.emaInit = true
	} else {
		b.ema = emaAlpha*float64(elapsed) + (1-emaAlpha)*b.ema
	}

	switch {
	case b.targetInterval > 0 && b.ema > float64(b.targetInterval)*1.1:
		hint = -1 // degrade
	case b.targetInterval > 0 && b.ema < float64(b.targetInterval)*0.7:
		hint = 1 // upgrade
	default:
		hint = 0
	}
	b.lastHint = hint
	limiter := b.limiter
	b.mu.Unlock()

	if limiter != nil {
		// Over-budget frames never sleep: Wait only blocks when the
		// limiter's token bucket is ahead of elapsed wall-clock time.
		_ = limiter.Wait(ctx)
	}
	return hint, elapsed
}

// LastHint returns the most recent degrade/upgrade/steady decision.
func (b *Budget) LastHint() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastHint
}
