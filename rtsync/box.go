package rtsync

import "go.uber.org/atomic"

// Box hands a whole value from a non-real-time writer to the real-time
// reader by swapping a pointer. A value already being read keeps its old
// pointer, so an in-flight tick is never disturbed by a swap.
type Box[T any] struct {
	ptr atomic.Pointer[T]
}

// Set installs v as the value returned by future Gets. Non-real-time
// context; wait-free relative to concurrent Gets.
func (b *Box[T]) Set(v *T) {
	b.ptr.Store(v)
}

// Get returns the most recently Set value, or nil before the first Set.
// Wait-free and O(1); safe to call once per tick from the real-time context.
func (b *Box[T]) Get() *T {
	return b.ptr.Load()
}
