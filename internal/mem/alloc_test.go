package mem

import (
	"fmt"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestAllocAligned(t *testing.T) {
	sizes := []int{1, 10, 63, 64, 65, 100, 1024}

	for _, size := range sizes {
		buf := AllocAligned(size)
		assert.Len(t, buf, size)

		ptr := unsafe.Pointer(&buf[0])
		addr := uintptr(ptr)
		assert.Equal(t, uintptr(0), addr%Alignment, "Address %d should be aligned to %d for size %d", addr, Alignment, size)

		for i, b := range buf {
			if b != 0 {
				t.Fatalf("byte %d not zero for size %d", i, size)
			}
		}
	}

	assert.Nil(t, AllocAligned(0))
	assert.Nil(t, AllocAligned(-1))
}

func TestReinterpret(t *testing.T) {
	buf := AllocAligned(32)

	f := Reinterpret[float64](buf)
	assert.Len(t, f, 4)
	f[2] = 3.5

	u := Reinterpret[uint64](buf)
	assert.Len(t, u, 4)
	assert.NotZero(t, u[2])
	assert.Zero(t, u[0])

	c := Reinterpret[complex128](buf)
	assert.Len(t, c, 2)

	assert.Nil(t, Reinterpret[float64](nil))
	assert.Nil(t, Reinterpret[complex128](buf[:8]))
}

func BenchmarkAllocAligned(b *testing.B) {
	sizes := []int{64, 256, 1024, 4096}
	for _, size := range sizes {
		b.Run(fmt.Sprintf("size=%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = AllocAligned(size)
			}
		})
	}
}
