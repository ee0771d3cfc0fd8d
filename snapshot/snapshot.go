// Package snapshot implements the double-buffered, atomically published
// per-frame view consumed by parallel work: a heavy GameStateSnapshot plus
// a lightweight FrameSnapshot cursor into it.
package snapshot

import "sync/atomic"

// GameStateSnapshot is a heavy, shared, immutable container owning copies
// (or shared views) of game-state arrays for one frame. Its lifetime can
// exceed the frame it was built for if a parallel worker still holds it —
// callers must not assume the prior slot is reusable the instant
// visible_index flips.
type GameStateSnapshot struct {
	FrameIndex uint64
	Epoch      uint64
	Values     map[string]any
}

// FrameSnapshot is a lightweight, cheap-to-copy cursor into a
// GameStateSnapshot, passed by value to parallel tasks.
type FrameSnapshot struct {
	FrameIndex uint64
	Epoch      uint64
	Game       *GameStateSnapshot
}

// Get reads a named value from the underlying GameStateSnapshot.
func (f FrameSnapshot) Get(key string) (any, bool) {
	if f.Game == nil {
		return nil, false
	}
	v, ok := f.Game.Values[key]
	return v, ok
}

// Buffer is the two-slot double buffer with an atomic visible_index. The
// publisher is the single writer; parallel tasks are concurrent readers.
// Publication is a single atomic store (release); readers acquire-load.
type Buffer struct {
	slots        [2]*FrameSnapshot
	visibleIndex atomic.Int32
}

// NewBuffer constructs an empty Buffer. Slot 0 is visible until the first
// publication.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Visible returns the currently published FrameSnapshot. Readers must
// cache the returned pointer at capture time rather than re-reading
// Visible() mid-use, per the publication invariant: once published, a
// slot's contents are immutable until the next publication reclaims it.
func (b *Buffer) Visible() *FrameSnapshot {
	idx := b.visibleIndex.Load()
	return b.slots[idx]
}

// InactiveSlot returns the index of the slot not currently visible, for
// the publisher to populate before swapping.
func (b *Buffer) InactiveSlot() int {
	return int(1 - b.visibleIndex.Load())
}

// Publish writes snap into the inactive slot and atomically swaps
// visible_index (release store). Only the SnapshotPublisher, during the
// Snapshot phase, may call this.
func (b *Buffer) Publish(snap *FrameSnapshot) {
	inactive := b.InactiveSlot()
	b.slots[inactive] = snap
	b.visibleIndex.Store(int32(inactive))
}
