// ring.go — Fixed-capacity ring buffer for per-tab debugger events.
// FIFO eviction at capacity; reads return an ordered copy so callers can
// hold the result without touching the buffer's lock again.
package cache

import "sync"

// Ring is a generic fixed-capacity circular buffer.
type Ring[T any] struct {
	mu         sync.RWMutex
	entries    []T
	capacity   int
	head       int   // index where the next write goes once full
	totalAdded int64 // monotonic count of everything ever appended
}

// NewRing creates a ring buffer holding at most capacity entries.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{entries: make([]T, 0, capacity), capacity: capacity}
}

// Append adds one entry, evicting the oldest when full.
func (r *Ring[T]) Append(entry T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) < r.capacity {
		r.entries = append(r.entries, entry)
	} else {
		r.entries[r.head] = entry
		r.head = (r.head + 1) % r.capacity
	}
	r.totalAdded++
}

// Items returns the buffered entries oldest-first.
func (r *Ring[T]) Items() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]T, 0, len(r.entries))
	if len(r.entries) < r.capacity {
		return append(out, r.entries...)
	}
	out = append(out, r.entries[r.head:]...)
	return append(out, r.entries[:r.head]...)
}

// Len reports the number of buffered entries.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// TotalAdded reports how many entries were ever appended, including evicted
// ones.
func (r *Ring[T]) TotalAdded() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.totalAdded
}
