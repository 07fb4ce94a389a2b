package rtsync

import "go.uber.org/atomic"

// Float64s is a fixed-length block of atomic float64 cells, the storage form
// for multi-word state guarded by a Seqlock. Each cell is individually
// race-free; the Seqlock on top makes a whole-block copy consistent.
type Float64s []atomic.Float64

// NewFloat64s returns a zeroed block of n cells.
func NewFloat64s(n int) Float64s { return make(Float64s, n) }

// StoreSlice writes src into the cells, one atomic store per cell.
func (f Float64s) StoreSlice(src []float64) {
	for i := range f {
		f[i].Store(src[i])
	}
}

// LoadSlice reads the cells into dst, one atomic load per cell.
func (f Float64s) LoadSlice(dst []float64) {
	for i := range f {
		dst[i] = f[i].Load()
	}
}

// Zero clears every cell.
func (f Float64s) Zero() {
	for i := range f {
		f[i].Store(0)
	}
}
