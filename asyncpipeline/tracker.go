// Package asyncpipeline registers and polls Category-C multi-frame async
// jobs: long-running GPU or I/O work that spans more than one frame and
// integrates its result once ready, subject to generation-based
// stale-completion detection.
package asyncpipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// State is the lifecycle state of an async job, owned by the job's
// producer; the tracker only observes it.
type State int

const (
	Missing State = iota
	Loading
	Ready
	Failed
)

// Job is a multi-frame async job record. Transitions between states are
// owned by the producer goroutine; the tracker polls Ready and, when set,
// validates Generation against the resource handle's current generation
// before integrating.
type Job struct {
	ID                string
	Name              string
	SubmitFrame       uint64
	RemainingWork     int
	Generation        uint64
	CancellationToken context.Context

	state   atomic.Int32
	err     atomic.Value // error
	cancel  context.CancelFunc
	onReady func() (any, error)
}

// NewJob constructs a Job bound to the producer's readiness callback.
// onReady is invoked at most once, when the tracker integrates a Ready job
// whose generation still matches, to pull the final result; it is never
// invoked for a stale, failed, or cancelled job. It must not block.
func NewJob(name string, submitFrame uint64, generation uint64, onReady func() (any, error)) *Job {
	ctx, cancel := context.WithCancel(context.Background())
	return &Job{
		ID:                uuid.NewString(),
		Name:              name,
		SubmitFrame:       submitFrame,
		Generation:        generation,
		CancellationToken: ctx,
		cancel:            cancel,
		onReady:           onReady,
	}
}

// MarkReady transitions the job to Ready. Called by the producer.
func (j *Job) MarkReady() { j.state.Store(int32(Ready)) }

// MarkFailed transitions the job to Failed with the given error.
func (j *Job) MarkFailed(err error) {
	j.err.Store(err)
	j.state.Store(int32(Failed))
}

// Cancel requests the job's producer to stop; a cancelled job never
// publishes a result.
func (j *Job) Cancel() { j.cancel() }

// State returns the job's current lifecycle state.
func (j *Job) State() State { return State(j.state.Load()) }

// GenerationLookup resolves the current generation of the resource handle
// a job's Generation must match for its result to be integrated.
type GenerationLookup func(resourceName string) (current uint64, ok bool)

// IntegrationResult describes what happened to one job during a poll
// pass, for the orchestrator's diagnostics.
type IntegrationResult struct {
	Job        *Job
	Integrated bool
	Stale      bool
	Err        error
}

// Tracker holds the set of in-flight jobs and integrates completions
// during AsyncPoll, bounded to at most PerTickCap completions per call to
// cap per-frame cost.
type Tracker struct {
	mu        sync.Mutex
	jobs      map[string]*Job
	PerTickCap int
}

// NewTracker constructs a Tracker with the given per-tick completion cap.
func NewTracker(perTickCap int) *Tracker {
	if perTickCap <= 0 {
		perTickCap = 64
	}
	return &Tracker{jobs: make(map[string]*Job), PerTickCap: perTickCap}
}

// Register adds a newly submitted job to the tracker.
func (t *Tracker) Register(j *Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[j.ID] = j
}

// Len returns the number of in-flight jobs.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

// Poll integrates up to PerTickCap ready or failed jobs. Category C job
// integration order (by readiness vs. registration) is intentionally left
// unspecified beyond the per-tick cap — callers must not depend on it.
func (t *Tracker) Poll(lookup GenerationLookup) []IntegrationResult {
	t.mu.Lock()
	candidates := make([]*Job, 0, len(t.jobs))
	for _, j := range t.jobs {
		if j.State() == Ready || j.State() == Failed {
			candidates = append(candidates, j)
		}
		if len(candidates) >= t.PerTickCap {
			break
		}
	}
	t.mu.Unlock()

	results := make([]IntegrationResult, 0, len(candidates))
	for _, j := range candidates {
		results = append(results, t.integrate(j, lookup))
	}
	return results
}

func (t *Tracker) integrate(j *Job, lookup GenerationLookup) IntegrationResult {
	t.mu.Lock()
	delete(t.jobs, j.ID)
	t.mu.Unlock()

	if j.CancellationToken != nil && j.CancellationToken.Err() != nil {
		return IntegrationResult{Job: j}
	}

	if j.State() == Failed {
		var err error
		if v := j.err.Load(); v != nil {
			err = v.(error)
		}
		return IntegrationResult{Job: j, Err: err}
	}

	if lookup != nil {
		current, ok := lookup(j.Name)
		if !ok || current != j.Generation {
			return IntegrationResult{Job: j, Stale: true}
		}
	}

	if j.onReady != nil {
		if _, err := j.onReady(); err != nil {
			return IntegrationResult{Job: j, Err: err}
		}
	}
	return IntegrationResult{Job: j, Integrated: true}
}
