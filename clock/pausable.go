package clock

import (
	"sync"
	"sync/atomic"
	"time"
)

// ResumeCallback is invoked when a PausableClock resumes, receiving the
// duration just spent paused.
type ResumeCallback func(pauseDuration time.Duration)

// PausableClock tracks wall-clock time with the ability to pause and
// resume, exposing both real time and a pause-adjusted "game time". The
// orchestrator holds one per run: Pause/Resume gate frame advancement, and
// Elapsed reports run time net of any paused duration.
type PausableClock struct {
	mu sync.RWMutex

	realStart time.Time
	gameStart time.Time

	isPaused        atomic.Bool
	pauseStart      time.Time
	totalPaused     time.Duration
	resumeCallbacks []ResumeCallback
}

// NewPausableClock constructs a clock starting now.
func NewPausableClock() *PausableClock {
	now := time.Now()
	return &PausableClock{realStart: now, gameStart: now}
}

// Now returns the current game time, frozen at the pause point while
// paused.
func (c *PausableClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.isPaused.Load() {
		return c.gameStart.Add(c.pauseStart.Sub(c.realStart) - c.totalPaused)
	}
	elapsed := time.Since(c.realStart) - c.totalPaused
	return c.gameStart.Add(elapsed)
}

// RealTime returns actual wall-clock time, unaffected by pause.
func (c *PausableClock) RealTime() time.Time { return time.Now() }

// Elapsed returns game time elapsed since construction, net of any time
// spent paused.
func (c *PausableClock) Elapsed() time.Duration { return c.Now().Sub(c.gameStart) }

// Pause stops game time advancement. Idempotent.
func (c *PausableClock) Pause() {
	if c.isPaused.CompareAndSwap(false, true) {
		c.mu.Lock()
		c.pauseStart = time.Now()
		c.mu.Unlock()
	}
}

// Resume continues game time advancement and fires resume callbacks
// outside the lock. Idempotent.
func (c *PausableClock) Resume() {
	if !c.isPaused.CompareAndSwap(true, false) {
		return
	}
	c.mu.Lock()
	if c.pauseStart.IsZero() {
		c.mu.Unlock()
		return
	}
	duration := time.Since(c.pauseStart)
	c.totalPaused += duration
	c.pauseStart = time.Time{}
	callbacks := make([]ResumeCallback, len(c.resumeCallbacks))
	copy(callbacks, c.resumeCallbacks)
	c.mu.Unlock()

	for _, cb := range callbacks {
		cb(duration)
	}
}

// OnResume registers a callback fired on every Resume.
func (c *PausableClock) OnResume(cb ResumeCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resumeCallbacks = append(c.resumeCallbacks, cb)
}

// IsPaused reports the current pause state.
func (c *PausableClock) IsPaused() bool { return c.isPaused.Load() }
