// Package buffers provides the fixed-capacity ring buffer that holds a session's live events.
package buffers

// DefaultCapacity is the number of live events kept when no capacity is configured.
const DefaultCapacity = 2000

// RingBuffer is a fixed-capacity circular buffer. Once full, each Push overwrites the oldest
// entry. The backing array is allocated once; Push never allocates.
// RingBuffer is not safe for concurrent use; the owner serialises access.
type RingBuffer[T any] struct {
	entries []T
	head    int // index of the oldest entry
	size    int
}

// NewRingBuffer returns a ring buffer holding at most capacity entries.
// A non-positive capacity falls back to DefaultCapacity.
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RingBuffer[T]{entries: make([]T, capacity)}
}

// Push appends item, evicting the oldest entry when full.
func (rb *RingBuffer[T]) Push(item T) {
	capacity := len(rb.entries)
	if rb.size < capacity {
		rb.entries[(rb.head+rb.size)%capacity] = item
		rb.size++
		return
	}
	rb.entries[rb.head] = item
	rb.head = (rb.head + 1) % capacity
}

// PushMany pushes items in order.
func (rb *RingBuffer[T]) PushMany(items []T) {
	for i := range items {
		rb.Push(items[i])
	}
}

// All returns every entry, oldest first. The result is a copy.
func (rb *RingBuffer[T]) All() []T {
	return rb.Recent(rb.size)
}

// Recent returns the last min(n, Len()) entries, oldest first. The result is a copy.
func (rb *RingBuffer[T]) Recent(n int) []T {
	if n > rb.size {
		n = rb.size
	}
	if n <= 0 {
		return []T{}
	}
	capacity := len(rb.entries)
	out := make([]T, n)
	start := rb.head + rb.size - n
	for i := 0; i < n; i++ {
		out[i] = rb.entries[(start+i)%capacity]
	}
	return out
}

// Clear empties the buffer without releasing the backing array.
func (rb *RingBuffer[T]) Clear() {
	var zero T
	for i := range rb.entries {
		rb.entries[i] = zero
	}
	rb.head = 0
	rb.size = 0
}

// Len returns the number of entries held.
func (rb *RingBuffer[T]) Len() int { return rb.size }

// Cap returns the buffer capacity.
func (rb *RingBuffer[T]) Cap() int { return len(rb.entries) }
