// Package rtsync provides the non-blocking handoff primitives used between
// the real-time control path and non-real-time consumers. Neither side ever
// holds a mutex: writers are wait-free and readers retry on contention.
package rtsync

import "go.uber.org/atomic"

// Seqlock coordinates a single writer with any number of concurrent readers
// over a block of atomic cells. The writer bumps the sequence to an odd
// value, stores the cells and bumps it again; a reader retries whenever it
// observes an odd sequence or a sequence that changed underneath it. The
// sequence makes a multi-cell copy consistent; the cells themselves must be
// read and written atomically (see Float64s) so that concurrent passes stay
// within the memory model. The writer never blocks, whatever the readers are
// doing.
type Seqlock struct {
	seq atomic.Uint64
}

// Write runs fn with the sequence held odd. fn must store through atomic
// cells only. There must be at most one writer at a time.
func (l *Seqlock) Write(fn func()) {
	l.seq.Add(1)
	fn()
	l.seq.Add(1)
}

// Read runs fn until a full pass completes under a stable even sequence.
// fn must load through atomic cells only; it may observe torn data on
// retried passes and must only copy, never act.
func (l *Seqlock) Read(fn func()) {
	for {
		s := l.seq.Load()
		if s&1 != 0 {
			continue
		}
		fn()
		if l.seq.Load() == s {
			return
		}
	}
}
