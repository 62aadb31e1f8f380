package dset

import (
	"slices"

	"github.com/hupe1980/dset/dtype"
	"github.com/hupe1980/dset/internal/mem"
)

// View is a typed, dimensioned, non-owning reference to a column's live
// buffer region, exposed for zero-copy bulk access.
//
// A view is valid until the next structural mutation of its dataset (row
// growth, compaction, column drop/rename, deletion). Every accessor
// revalidates against the dataset's mutation generation and returns
// ErrStaleView once the view has been invalidated, instead of touching
// possibly relocated memory.
type View struct {
	ds     *Dataset
	key    string
	typ    dtype.T
	shape  []int
	stride int
	rows   uint64
	data   []byte
	gen    uint64
}

// View returns a zero-copy view over the named scalar or array column.
// String columns have no flat value buffer and report ErrColumnKindMismatch.
func (d *Dataset) View(key string) (*View, error) {
	if err := d.guard(); err != nil {
		return nil, err
	}
	c, err := d.col(key)
	if err != nil {
		return nil, err
	}
	if c.isString() {
		return nil, kindMismatch("view", key, c.typ)
	}
	return &View{
		ds:     d,
		key:    key,
		typ:    c.typ,
		shape:  c.shape,
		stride: c.stride,
		rows:   d.rows,
		data:   c.live(d.rows),
		gen:    d.gen.Load(),
	}, nil
}

func (v *View) check() error {
	if v.ds.gen.Load() != v.gen {
		return ErrStaleView
	}
	return nil
}

// Valid reports whether the view still references live storage.
func (v *View) Valid() bool {
	return v.check() == nil
}

// Key returns the column key the view was taken from.
func (v *View) Key() string {
	return v.key
}

// Type returns the element type.
func (v *View) Type() dtype.T {
	return v.typ
}

// Shape returns a copy of the per-row shape vector, nil for scalar columns.
func (v *View) Shape() []int {
	return slices.Clone(v.shape)
}

// Rank returns the per-row array rank, 0 for scalar columns.
func (v *View) Rank() int {
	return len(v.shape)
}

// Rows returns the row count the view covers.
func (v *View) Rows() uint64 {
	return v.rows
}

// Stride returns the bytes per row.
func (v *View) Stride() int {
	return v.stride
}

// Bytes returns the raw live region: Rows()*Stride() bytes, row-major.
func (v *View) Bytes() ([]byte, error) {
	if err := v.check(); err != nil {
		return nil, err
	}
	return v.data, nil
}

// Row returns the byte region of one row.
func (v *View) Row(row uint64) ([]byte, error) {
	if err := v.check(); err != nil {
		return nil, err
	}
	if row >= v.rows {
		return nil, rowOutOfRange(row, v.rows)
	}
	start := int(row) * v.stride
	return v.data[start : start+v.stride], nil
}

func (v *View) typed(op string, want dtype.T) error {
	if err := v.check(); err != nil {
		return err
	}
	if v.typ != want {
		return kindMismatch(op, v.key, v.typ)
	}
	return nil
}

// Float32s reinterprets the live region as float32 elements. For array
// columns the slice is flat: Rows() times the per-row element count.
func (v *View) Float32s() ([]float32, error) {
	if err := v.typed("float32s", dtype.F32); err != nil {
		return nil, err
	}
	return mem.Reinterpret[float32](v.data), nil
}

// Float64s reinterprets the live region as float64 elements.
func (v *View) Float64s() ([]float64, error) {
	if err := v.typed("float64s", dtype.F64); err != nil {
		return nil, err
	}
	return mem.Reinterpret[float64](v.data), nil
}

// Complex64s reinterprets the live region as complex64 elements.
func (v *View) Complex64s() ([]complex64, error) {
	if err := v.typed("complex64s", dtype.C64); err != nil {
		return nil, err
	}
	return mem.Reinterpret[complex64](v.data), nil
}

// Complex128s reinterprets the live region as complex128 elements.
func (v *View) Complex128s() ([]complex128, error) {
	if err := v.typed("complex128s", dtype.C128); err != nil {
		return nil, err
	}
	return mem.Reinterpret[complex128](v.data), nil
}

// Int8s reinterprets the live region as int8 elements.
func (v *View) Int8s() ([]int8, error) {
	if err := v.typed("int8s", dtype.I8); err != nil {
		return nil, err
	}
	return mem.Reinterpret[int8](v.data), nil
}

// Int16s reinterprets the live region as int16 elements.
func (v *View) Int16s() ([]int16, error) {
	if err := v.typed("int16s", dtype.I16); err != nil {
		return nil, err
	}
	return mem.Reinterpret[int16](v.data), nil
}

// Int32s reinterprets the live region as int32 elements.
func (v *View) Int32s() ([]int32, error) {
	if err := v.typed("int32s", dtype.I32); err != nil {
		return nil, err
	}
	return mem.Reinterpret[int32](v.data), nil
}

// Int64s reinterprets the live region as int64 elements.
func (v *View) Int64s() ([]int64, error) {
	if err := v.typed("int64s", dtype.I64); err != nil {
		return nil, err
	}
	return mem.Reinterpret[int64](v.data), nil
}

// Uint8s reinterprets the live region as uint8 elements.
func (v *View) Uint8s() ([]uint8, error) {
	if err := v.typed("uint8s", dtype.U8); err != nil {
		return nil, err
	}
	return v.data, nil
}

// Uint16s reinterprets the live region as uint16 elements.
func (v *View) Uint16s() ([]uint16, error) {
	if err := v.typed("uint16s", dtype.U16); err != nil {
		return nil, err
	}
	return mem.Reinterpret[uint16](v.data), nil
}

// Uint32s reinterprets the live region as uint32 elements.
func (v *View) Uint32s() ([]uint32, error) {
	if err := v.typed("uint32s", dtype.U32); err != nil {
		return nil, err
	}
	return mem.Reinterpret[uint32](v.data), nil
}

// Uint64s reinterprets the live region as uint64 elements.
func (v *View) Uint64s() ([]uint64, error) {
	if err := v.typed("uint64s", dtype.U64); err != nil {
		return nil, err
	}
	return mem.Reinterpret[uint64](v.data), nil
}
