// Package mem provides memory allocation utilities.
package mem

import (
	"unsafe"
)

// Alignment is the byte alignment of every column buffer (64 bytes), so
// zero-copy consumers can run SIMD kernels over them without realignment.
const Alignment = 64

// AllocAligned allocates a byte slice of the given size with 64-byte alignment.
// The returned slice is guaranteed to start at a memory address divisible by 64
// and is zero-filled.
//
// Note: This function allocates slightly more memory than requested to ensure
// alignment. The underlying array is kept alive by the returned slice.
func AllocAligned(size int) []byte {
	if size <= 0 {
		return nil
	}

	// Allocate size + alignment to ensure we can find an aligned offset.
	totalSize := size + Alignment
	buf := make([]byte, totalSize)

	// Calculate the offset to the first aligned byte.
	ptr := unsafe.Pointer(&buf[0]) //nolint:gosec // unsafe is required for memory alignment
	addr := uintptr(ptr)
	offset := (Alignment - (addr & (Alignment - 1))) & (Alignment - 1)

	return buf[offset : offset+uintptr(size)]
}

// Reinterpret returns b viewed as a slice of E without copying. Trailing
// bytes that do not fill a whole element are dropped.
//
// The caller must ensure &b[0] satisfies E's alignment; buffers from
// AllocAligned always do.
func Reinterpret[E any](b []byte) []E {
	if len(b) == 0 {
		return nil
	}
	var zero E
	esz := int(unsafe.Sizeof(zero))
	n := len(b) / esz
	if n == 0 {
		return nil
	}
	ptr := unsafe.Pointer(&b[0])      //nolint:gosec // zero-copy view over an aligned buffer
	return unsafe.Slice((*E)(ptr), n) //nolint:gosec // zero-copy view over an aligned buffer
}
