// Package dset provides a handle-addressed, column-oriented, in-memory
// dataset engine.
//
// A dataset is an ordered collection of uniquely keyed columns sharing one
// row count: scalar columns hold one fixed-width element per row, array
// columns hold one fixed-shape row-major array per row, and string columns
// hold variable-length values in a per-column pool. Datasets are owned by a
// Registry and addressed through opaque uint64 handles, so storage can be
// passed across subsystem boundaries without sharing Go pointers.
//
// # Quick Start
//
//	reg := dset.NewRegistry()
//	h := reg.New()
//	defer reg.Delete(h)
//
//	reg.AddScalarColumn(h, "uid", dtype.U64)
//	reg.AddArrayColumn(h, "coords", dtype.F32, []int{3})
//	reg.AddScalarColumn(h, "name", dtype.Str)
//	reg.AddRows(h, 1000)
//
//	v, _ := reg.View(h, "coords")
//	coords, _ := v.Float32s() // zero-copy, 3000 elements
//	coords[0] = 1.5
//
//	reg.SetString(h, "name", 0, "particle-0")
//
// Programs that want a process-wide table can skip the explicit registry:
// the package-level functions (New, AddRows, ViewColumn, ...) forward to
// Default().
//
// # Views and Invalidation
//
// View returns zero-copy typed slices over a column's live buffer. Row
// growth, compaction, column drops and deletion may relocate or release
// that buffer; views taken earlier turn stale, and every accessor then
// fails with ErrStaleView instead of touching moved memory.
//
// # Growth and Compaction
//
// AddRows over-allocates capacity geometrically so repeated growth is
// amortized, and replacing strings leaves holes in the column's pool.
// Defrag compacts string pools in place and, with shrink enabled, rebuilds
// every buffer at tight capacity. TotalSize reports allocated capacity,
// not logically used bytes.
//
// # Concurrency
//
// The Registry is safe for concurrent use. Each dataset follows a
// single-writer model: structural mutations of one dataset must be
// serialized by the caller; read-only operations may run concurrently with
// each other.
//
// # Memory Budget
//
// WithMemoryLimit sets a hard budget shared by all datasets of a registry.
// Operations whose allocations would exceed it fail with ErrAllocation and
// roll back, leaving the dataset unchanged.
//
// # Snapshots
//
// The snapshot subpackage serializes datasets to a compressed, checksummed
// stream and restores them under fresh handles.
package dset
