// Package registry implements the monotonic handle allocator:
// debug-named resource entries keyed by an ever-increasing handle value.
// Grounded on the same sparse-set-over-mutex shape used throughout this
// codebase for shared, mutator-heavy containers.
package registry

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Handle is an opaque, monotonically allocated resource identifier.
type Handle uint64

// Entry is a registered resource: its debug name and current generation
// (bumped whenever the handle is recycled for a new underlying resource,
// enabling stale-completion detection in AsyncPipelineTracker).
type Entry struct {
	Handle     Handle
	DebugName  string
	DebugUUID  string
	Generation uint64
}

// Registry allocates Handles monotonically and tracks one Entry per
// live handle.
type Registry struct {
	next atomic.Uint64

	mu      sync.RWMutex
	entries map[Handle]*Entry
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[Handle]*Entry)}
}

// Allocate reserves a new Handle and registers it with debugName.
func (r *Registry) Allocate(debugName string) Handle {
	h := Handle(r.next.Add(1))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[h] = &Entry{Handle: h, DebugName: debugName, DebugUUID: uuid.NewString(), Generation: 1}
	return h
}

// Lookup returns the Entry for h, if live.
func (r *Registry) Lookup(h Handle) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[h]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// GenerationByName returns the current generation of the live entry whose
// DebugName matches name, used by AsyncPipelineTracker's generation lookup
// when jobs are addressed by name rather than Handle.
func (r *Registry) GenerationByName(name string) (uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.DebugName == name {
			return e.Generation, true
		}
	}
	return 0, false
}

// Generation returns the current generation of h, and whether h is live —
// the handle-keyed counterpart of GenerationByName.
func (r *Registry) Generation(h Handle) (uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[h]
	if !ok {
		return 0, false
	}
	return e.Generation, true
}

// Recycle bumps h's generation, signaling that its underlying resource has
// been replaced; any in-flight async work tagged with the prior
// generation will be detected as stale.
func (r *Registry) Recycle(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[h]; ok {
		e.Generation++
	}
}

// Release removes h from the registry entirely.
func (r *Registry) Release(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, h)
}

// Count returns the number of live handles.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
