// Package reclaim implements the fence-gated resource retirement queue: a
// resource submitted in frame F is only eligible for destruction once
// enough frames have completed that any in-flight GPU/async work
// referencing it is guaranteed done.
package reclaim

import "sync"

// Entry is a single pending retirement: a resource handle submitted in a
// given frame, kept alive for diagnostics via a debug name.
type Entry struct {
	ResourceHandle uint64
	SubmittedFrame uint64
	DebugName      string
}

// Reclaimer holds a mutex-protected vector of pending Entries. Entries are
// retired in monotonic order of SubmittedFrame per handle.
type Reclaimer struct {
	mu      sync.Mutex
	pending []Entry
}

// New constructs an empty Reclaimer.
func New() *Reclaimer {
	return &Reclaimer{}
}

// Schedule enqueues a resource for retirement once a ProcessCompletedFrame
// call reports a completed frame >= SubmittedFrame; with the caller's
// completed = current - safety_delay model, that is no earlier than frame
// SubmittedFrame + safety_delay.
func (r *Reclaimer) Schedule(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, e)
}

// ProcessCompletedFrame removes and returns every entry with
// SubmittedFrame <= completed; the caller is responsible for destroying
// the underlying resources. Entries are returned in the order they were
// scheduled, preserving the monotonic-per-handle retirement invariant.
func (r *Reclaimer) ProcessCompletedFrame(completed uint64) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var retired []Entry
	remaining := r.pending[:0]
	for _, e := range r.pending {
		if e.SubmittedFrame <= completed {
			retired = append(retired, e)
		} else {
			remaining = append(remaining, e)
		}
	}
	r.pending = remaining
	return retired
}

// Pending returns the number of entries still awaiting retirement — a
// resource-reclamation-lag signal callers may expose as a metric.
func (r *Reclaimer) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
