// Package descriptor implements lock-free slot allocation with versioned
// publication: allocation is a monotonic bump of a slot counter; a
// separate publish step records the version at which all prior
// allocations become visible to readers (the GPU, in the system this
// models).
package descriptor

import "sync/atomic"

// Slot is an allocated descriptor slot index.
type Slot uint64

// Table allocates Slots lock-free and tracks a monotonic publication
// version. Readers consult PublishedVersion to know which allocations are
// safe to consume; allocations made after the last publish are not yet
// visible.
type Table struct {
	nextSlot atomic.Uint64
	version  atomic.Uint64
}

// New constructs an empty Table.
func New() *Table {
	return &Table{}
}

// Allocate reserves the next Slot. Lock-free monotonic bump; safe for
// concurrent callers.
func (t *Table) Allocate() Slot {
	return Slot(t.nextSlot.Add(1) - 1)
}

// Publish records the current state as visible, bumping the monotonic
// publication version. Only the ordered DescriptorPublication sub-phase
// (modeled here as part of FrameGraph) may call this.
func (t *Table) Publish() uint64 {
	return t.version.Add(1)
}

// PublishedVersion returns the version at which all prior allocations were
// last made visible. A reader observing version V is guaranteed the full
// allocation set present at the time version V was published.
func (t *Table) PublishedVersion() uint64 {
	return t.version.Load()
}

// AllocatedCount returns the number of slots allocated so far (including
// any not yet published).
func (t *Table) AllocatedCount() uint64 {
	return t.nextSlot.Load()
}
