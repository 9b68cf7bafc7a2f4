package tfgrid

import "sync/atomic"

// Shared is a reference-counted handle to a Grid that several polarisations
// read from. The last Release drops the grid so its buffer can be collected.
type Shared struct {
	grid *Grid
	refs atomic.Int32
}

// NewShared wraps g with a reference count of one.
func NewShared(g *Grid) *Shared {
	s := &Shared{grid: g}
	s.refs.Store(1)
	return s
}

// Acquire adds a reference and returns s for chaining.
func (s *Shared) Acquire() *Shared {
	s.refs.Add(1)
	return s
}

// Release drops a reference. It reports true when this was the last one.
func (s *Shared) Release() bool {
	if s.refs.Add(-1) == 0 {
		s.grid = nil
		return true
	}
	return false
}

// Refs returns the current reference count.
func (s *Shared) Refs() int { return int(s.refs.Load()) }

// Grid returns the wrapped grid, or nil after the last Release. Callers must
// not mutate it while other holders exist.
func (s *Shared) Grid() *Grid { return s.grid }
