// Package event provides a lock-free MPSC ring buffer used as the
// publication mechanism wherever the orchestrator needs many producers and
// a single consumer to exchange fixed-capacity records without blocking;
// the network-reconciliation inbox builds on Queue.
package event

import (
	"sync/atomic"

	"github.com/lixenwraith/frameorc/constant"
)

// Queue is a lock-free MPSC ring buffer.
//
// Thread-safety:
//   - Push: lock-free CAS, multiple producers OK.
//   - Consume: single consumer only.
//   - Published flags prevent a consumer from reading a partially written
//     slot.
//
// Overflow: once the buffer is full, the oldest unread entry is dropped to
// make room for the newest (push never blocks).
type Queue[T any] struct {
	events    [constant.EventQueueSize]T
	published [constant.EventQueueSize]atomic.Bool
	head      atomic.Uint64
	tail      atomic.Uint64
}

// NewQueue constructs an empty Queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push adds an entry using a lock-free CAS with published-flags pattern.
// Safe for concurrent producers; O(1) amortized.
func (q *Queue[T]) Push(entry T) {
	for {
		currentTail := q.tail.Load()
		nextTail := currentTail + 1

		if q.tail.CompareAndSwap(currentTail, nextTail) {
			idx := currentTail & constant.EventBufferMask

			q.events[idx] = entry
			q.published[idx].Store(true) // must follow the write

			currentHead := q.head.Load()
			if nextTail-currentHead > constant.EventQueueSize {
				q.head.CompareAndSwap(currentHead, nextTail-constant.EventQueueSize)
			}
			return
		}
	}
}

// Consume returns all pending entries in FIFO order and advances head.
// Single-consumer design. Checks published flags for safety against a
// producer that has reserved a slot but not yet written it.
func (q *Queue[T]) Consume() []T {
	for {
		currentHead := q.head.Load()
		currentTail := q.tail.Load()

		if currentTail == currentHead {
			return nil
		}

		maxAvailable := currentTail - currentHead
		if maxAvailable > constant.EventQueueSize {
			maxAvailable = constant.EventQueueSize
			currentHead = currentTail - constant.EventQueueSize
		}

		result := make([]T, 0, maxAvailable)
		for i := uint64(0); i < maxAvailable; i++ {
			idx := (currentHead + i) & constant.EventBufferMask

			if !q.published[idx].Load() {
				break // writer still in flight
			}

			result = append(result, q.events[idx])
			q.published[idx].Store(false)
		}

		newHead := currentHead + uint64(len(result))
		if q.head.CompareAndSwap(currentHead, newHead) {
			if len(result) == 0 {
				return nil
			}
			return result
		}
	}
}

// Len returns an approximate pending-entry count. Lock-free; intended for
// pre-lock heuristics and metrics, not exact accounting.
func (q *Queue[T]) Len() int {
	head := q.head.Load()
	tail := q.tail.Load()
	if tail <= head {
		return 0
	}
	diff := int(tail - head)
	if diff > constant.EventQueueSize {
		return constant.EventQueueSize
	}
	return diff
}
