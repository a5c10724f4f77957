// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package livebuffer keeps a bounded window of the most recent telemetry
// samples for real-time charting.
//
// Samples are ordered by arrival, not by their own timestamps. A sample that
// arrives late (for example across a reconnect) is appended where it lands.
package livebuffer

import "sync"

// DefaultSize is the number of samples kept when no size is given.
const DefaultSize = 20

// Buffer is a fixed-capacity FIFO window. Pushing onto a full buffer evicts
// the oldest sample. All methods are safe for concurrent use.
type Buffer[T any] struct {
	mu       sync.Mutex
	data     []T
	capacity int
	start    int // index of the oldest element
	count    int
	pushed   uint64
}

// New creates a buffer holding at most size samples. A size below 1 selects
// DefaultSize.
func New[T any](size int) *Buffer[T] {
	if size < 1 {
		size = DefaultSize
	}
	return &Buffer[T]{
		data:     make([]T, size),
		capacity: size,
	}
}

// Push appends v, evicting the oldest sample once the buffer is full.
func (b *Buffer[T]) Push(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	end := (b.start + b.count) % b.capacity
	b.data[end] = v
	if b.count < b.capacity {
		b.count++
	} else {
		b.start = (b.start + 1) % b.capacity
	}
	b.pushed++
}

// Snapshot returns a copy of the current window, oldest first. The result
// does not change when more samples are pushed.
func (b *Buffer[T]) Snapshot() []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]T, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.data[(b.start+i)%b.capacity]
	}
	return out
}

// Latest returns the most recently pushed sample.
func (b *Buffer[T]) Latest() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero T
	if b.count == 0 {
		return zero, false
	}
	return b.data[(b.start+b.count-1)%b.capacity], true
}

// Len returns the number of samples currently held.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Cap returns the maximum number of samples held.
func (b *Buffer[T]) Cap() int {
	return b.capacity
}

// Pushed returns the total number of samples ever pushed.
func (b *Buffer[T]) Pushed() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pushed
}

// Reset drops all samples.
func (b *Buffer[T]) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero T
	for i := range b.data {
		b.data[i] = zero
	}
	b.start = 0
	b.count = 0
}
