package constant

import "time"

// Frame pacing & scheduler timing
const (
	// DefaultFrameInterval is the nominal frame interval at 60 frames per
	// second, rounded down to whole milliseconds. Pacing itself
	// (clock.Budget) derives its interval from the configured target FPS.
	DefaultFrameInterval = 16 * time.Millisecond

	// EventLoopInterval is the interval at which the paused frame loop
	// re-checks whether it has been resumed or stopped.
	EventLoopInterval = 1 * time.Millisecond

	// EventLoopBackoffMax is the number of intervals a failed lock
	// acquisition is tolerated before escalating to a blocking acquire.
	EventLoopBackoffMax = 8
)

// Resource & queue limits
const (
	// EventQueueSize is the fixed capacity of every event.Queue ring
	// buffer.
	EventQueueSize = 2048

	// EventBufferMask is the bitmask for fast modulo against EventQueueSize
	// (EventQueueSize - 1; EventQueueSize must stay a power of two).
	EventBufferMask = EventQueueSize - 1
)

// SafetyDelay is the fixed number of frames a DeferredReclaimer withholds a
// retired resource handle, accounting for in-flight GPU/async work that may
// still reference it. Configurable at construction, but this is the design
// default applied when no override is supplied.
const SafetyDelay = 2

// AsyncPerTickCap bounds how many AsyncPipelineTracker jobs are polled for
// completion in a single frame, preventing a long-tail of stale multi-frame
// jobs from starving the current tick.
const AsyncPerTickCap = 64
