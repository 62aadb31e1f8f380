package dset

import (
	"math"
	"slices"

	"github.com/hupe1980/dset/dtype"
	"github.com/hupe1980/dset/internal/mem"
	"github.com/hupe1980/dset/resource"
)

// allocBuf reserves n bytes against the budget and allocates an aligned,
// zero-filled buffer. n <= 0 yields a nil buffer and no reservation.
func allocBuf(ctrl *resource.Controller, op string, n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	if err := ctrl.TryAcquireMemory(int64(n)); err != nil {
		return nil, allocFailed(op, int64(n))
	}
	return mem.AllocAligned(n), nil
}

// freeBuf returns a buffer's reservation to the budget.
func freeBuf(ctrl *resource.Controller, b []byte) {
	ctrl.ReleaseMemory(int64(len(b)))
}

// mulRows computes rows*stride in bytes, reporting overflow.
func mulRows(rows uint64, stride int) (int, bool) {
	if rows == 0 || stride == 0 {
		return 0, true
	}
	n := rows * uint64(stride)
	if n/rows != uint64(stride) || n > uint64(math.MaxInt) {
		return 0, false
	}
	return int(n), true
}

// nextCapacity picks the new buffer size for a growth to need bytes:
// geometric from the current capacity, rounded up to a whole stride, never
// below need.
func nextCapacity(cur, need, stride int, factor float64) int {
	grown := need
	if f := float64(cur) * factor; f > float64(need) && f < float64(math.MaxInt) {
		grown = int(f)
		if rem := grown % stride; rem != 0 {
			grown += stride - rem
		}
	}
	return grown
}

// column is one named, typed storage unit of a dataset: a scalar column, a
// fixed-shape array column stored row-major in a flat buffer, or a string
// column whose buffer holds per-row pool offsets.
type column struct {
	key    string
	typ    dtype.T
	shape  []int // nil for scalar and string columns
	stride int   // bytes per row

	// data spans the full allocated capacity. Bytes beyond the dataset's
	// live region are zero, so growth within capacity needs no zeroing.
	data []byte
	pool strPool // string columns only
}

// shapeStride validates an array shape and returns the per-row byte stride.
func shapeStride(t dtype.T, shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, ErrInvalidShape
	}
	stride := t.Size()
	for _, dim := range shape {
		if dim < 1 {
			return 0, ErrInvalidShape
		}
		next := stride * dim
		if next/dim != stride || next > math.MaxInt32 {
			return 0, ErrInvalidShape
		}
		stride = next
	}
	return stride, nil
}

// newColumn allocates a column sized exactly to the current row count.
func newColumn(ctrl *resource.Controller, key string, t dtype.T, shape []int, stride int, rows uint64) (*column, error) {
	c := &column{key: key, typ: t, shape: shape, stride: stride}
	if rows > 0 {
		need, ok := mulRows(rows, stride)
		if !ok {
			return nil, allocFailed("column "+key, math.MaxInt64)
		}
		buf, err := allocBuf(ctrl, "column "+key, need)
		if err != nil {
			return nil, err
		}
		c.data = buf
	}
	return c, nil
}

func (c *column) isString() bool {
	return c.typ.IsString()
}

// rank returns the array rank: 0 for scalar and string columns.
func (c *column) rank() int {
	return len(c.shape)
}

// sizeBytes returns the column's allocated capacity, pool included.
func (c *column) sizeBytes() int64 {
	return int64(len(c.data)) + c.pool.size()
}

// live returns the buffer region covering the first rows row-slots.
func (c *column) live(rows uint64) []byte {
	n, _ := mulRows(rows, c.stride)
	return c.data[:n]
}

// offsets returns the pool offset slots of a string column's live region.
func (c *column) offsets(rows uint64) []uint64 {
	return mem.Reinterpret[uint64](c.data)[:rows]
}

// stageGrow prepares the column for growth to newRows. It returns a fully
// populated replacement buffer, or nil when the current capacity already
// suffices. The column itself is not touched, so a failure elsewhere in the
// same operation leaves it intact.
func (c *column) stageGrow(ctrl *resource.Controller, curRows, newRows uint64, factor float64) ([]byte, error) {
	need, ok := mulRows(newRows, c.stride)
	if !ok {
		return nil, allocFailed("column "+c.key, math.MaxInt64)
	}
	if need <= len(c.data) {
		return nil, nil
	}
	target := nextCapacity(len(c.data), need, c.stride, factor)
	nb, err := allocBuf(ctrl, "column "+c.key, target)
	if err != nil {
		return nil, err
	}
	copy(nb, c.live(curRows))
	return nb, nil
}

// commitGrow installs a staged buffer from stageGrow.
func (c *column) commitGrow(ctrl *resource.Controller, staged []byte) {
	if staged == nil {
		return
	}
	freeBuf(ctrl, c.data)
	c.data = staged
}

// clone deep-copies the first rows row-slots into a tight new column.
// String pools are packed: only live entries are carried over.
func (c *column) clone(ctrl *resource.Controller, rows uint64) (*column, error) {
	nc := &column{key: c.key, typ: c.typ, shape: slices.Clone(c.shape), stride: c.stride}
	need, _ := mulRows(rows, c.stride)
	if need == 0 {
		return nc, nil
	}

	nb, err := allocBuf(ctrl, "column "+c.key, need)
	if err != nil {
		return nil, err
	}
	nc.data = nb

	if c.isString() {
		np, newOffsets, err := c.pool.packed(ctrl, c.offsets(rows))
		if err != nil {
			freeBuf(ctrl, nc.data)
			return nil, err
		}
		nc.pool = np
		copy(nc.offsets(rows), newOffsets)
	} else {
		copy(nb, c.live(rows))
	}
	return nc, nil
}

// release returns all the column's reservations.
func (c *column) release(ctrl *resource.Controller) {
	freeBuf(ctrl, c.data)
	c.data = nil
	c.pool.release(ctrl)
}
