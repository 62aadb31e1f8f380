package rowset

import (
	"iter"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Set is a set of row indices backed by a 64-bit Roaring Bitmap.
// It wraps the official roaring implementation.
// Used for row selection (mask and predicate filtering).
type Set struct {
	rb *roaring64.Bitmap
}

// setPool is a sync.Pool for reusing Set instances.
// This reduces allocations when selections are built row by row.
var setPool = sync.Pool{
	New: func() any {
		return &Set{
			rb: roaring64.New(),
		}
	},
}

// New creates a new empty row set.
func New() *Set {
	return &Set{
		rb: roaring64.New(),
	}
}

// Get gets a row set from the pool. Call Put when done.
func Get() *Set {
	s := setPool.Get().(*Set)
	s.rb.Clear()
	return s
}

// Put returns a row set to the pool.
func Put(s *Set) {
	if s == nil {
		return
	}
	// Clear before returning to pool to release container memory.
	s.rb.Clear()
	setPool.Put(s)
}

// Add adds a row index to the set.
func (s *Set) Add(row uint64) {
	s.rb.Add(row)
}

// Contains checks if a row index is in the set.
func (s *Set) Contains(row uint64) bool {
	return s.rb.Contains(row)
}

// IsEmpty returns true if the set is empty.
func (s *Set) IsEmpty() bool {
	return s.rb.IsEmpty()
}

// Cardinality returns the number of rows in the set.
func (s *Set) Cardinality() uint64 {
	return s.rb.GetCardinality()
}

// All returns an iterator over the set in ascending row order.
func (s *Set) All() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		it := s.rb.Iterator()
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}
}

// Clear removes all rows from the set.
func (s *Set) Clear() {
	s.rb.Clear()
}
