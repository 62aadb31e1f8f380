package dset

import (
	"iter"

	"github.com/hupe1980/dset/dtype"
	"github.com/hupe1980/dset/internal/mem"
)

// Row is a positional cursor over one dataset row. It addresses the row by
// index, not by pointer, so it stays usable across reallocating mutations
// such as AddRows or Defrag; accessors revalidate the index on every call.
//
// Scalar getters widen within the type family: Float64 reads f32 and f64
// columns, Int64 reads i8 through i64, Uint64 reads u8 through u64 and
// Complex128 reads c64 and c128. Setters narrow the same way.
type Row struct {
	ds  *Dataset
	idx uint64
}

// Row returns a cursor for one row.
func (d *Dataset) Row(row uint64) (Row, error) {
	if err := d.guard(); err != nil {
		return Row{}, err
	}
	if row >= d.rows {
		return Row{}, rowOutOfRange(row, d.rows)
	}
	return Row{ds: d, idx: row}, nil
}

// Rows iterates cursors over all rows in row order.
func (d *Dataset) Rows() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for i := uint64(0); i < d.rows; i++ {
			if !yield(Row{ds: d, idx: i}) {
				return
			}
		}
	}
}

// Index returns the row index the cursor addresses.
func (r Row) Index() uint64 {
	return r.idx
}

// cell resolves the cursor against the column's current buffer. The region
// is only valid until the next mutation, so it never escapes this file.
func (r Row) cell(op, key string) (*column, []byte, error) {
	if err := r.ds.guard(); err != nil {
		return nil, nil, err
	}
	c, err := r.ds.col(key)
	if err != nil {
		return nil, nil, err
	}
	if r.idx >= r.ds.rows {
		return nil, nil, rowOutOfRange(r.idx, r.ds.rows)
	}
	if c.isString() {
		return nil, nil, kindMismatch(op, key, c.typ)
	}
	start := int(r.idx) * c.stride
	return c, c.data[start : start+c.stride], nil
}

func (r Row) scalarCell(op, key string) (*column, []byte, error) {
	c, b, err := r.cell(op, key)
	if err != nil {
		return nil, nil, err
	}
	if c.rank() > 0 {
		return nil, nil, arrayMismatch(op, key)
	}
	return c, b, nil
}

// Bytes returns a copy of the row's raw cell region, Stride bytes. It works
// for scalar and array columns alike.
func (r Row) Bytes(key string) ([]byte, error) {
	_, b, err := r.cell("bytes", key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// Float64 reads a scalar float cell.
func (r Row) Float64(key string) (float64, error) {
	c, b, err := r.scalarCell("float64", key)
	if err != nil {
		return 0, err
	}
	switch c.typ {
	case dtype.F32:
		return float64(mem.Reinterpret[float32](b)[0]), nil
	case dtype.F64:
		return mem.Reinterpret[float64](b)[0], nil
	default:
		return 0, kindMismatch("float64", key, c.typ)
	}
}

// Int64 reads a scalar signed integer cell.
func (r Row) Int64(key string) (int64, error) {
	c, b, err := r.scalarCell("int64", key)
	if err != nil {
		return 0, err
	}
	switch c.typ {
	case dtype.I8:
		return int64(mem.Reinterpret[int8](b)[0]), nil
	case dtype.I16:
		return int64(mem.Reinterpret[int16](b)[0]), nil
	case dtype.I32:
		return int64(mem.Reinterpret[int32](b)[0]), nil
	case dtype.I64:
		return mem.Reinterpret[int64](b)[0], nil
	default:
		return 0, kindMismatch("int64", key, c.typ)
	}
}

// Uint64 reads a scalar unsigned integer cell.
func (r Row) Uint64(key string) (uint64, error) {
	c, b, err := r.scalarCell("uint64", key)
	if err != nil {
		return 0, err
	}
	switch c.typ {
	case dtype.U8:
		return uint64(b[0]), nil
	case dtype.U16:
		return uint64(mem.Reinterpret[uint16](b)[0]), nil
	case dtype.U32:
		return uint64(mem.Reinterpret[uint32](b)[0]), nil
	case dtype.U64:
		return mem.Reinterpret[uint64](b)[0], nil
	default:
		return 0, kindMismatch("uint64", key, c.typ)
	}
}

// Complex128 reads a scalar complex cell.
func (r Row) Complex128(key string) (complex128, error) {
	c, b, err := r.scalarCell("complex128", key)
	if err != nil {
		return 0, err
	}
	switch c.typ {
	case dtype.C64:
		return complex128(mem.Reinterpret[complex64](b)[0]), nil
	case dtype.C128:
		return mem.Reinterpret[complex128](b)[0], nil
	default:
		return 0, kindMismatch("complex128", key, c.typ)
	}
}

// String reads a string cell.
func (r Row) String(key string) (string, error) {
	return r.ds.GetString(key, r.idx)
}

// SetFloat64 writes a scalar float cell, narrowing to f32 where needed.
func (r Row) SetFloat64(key string, val float64) error {
	c, b, err := r.scalarCell("set float64", key)
	if err != nil {
		return err
	}
	switch c.typ {
	case dtype.F32:
		mem.Reinterpret[float32](b)[0] = float32(val)
	case dtype.F64:
		mem.Reinterpret[float64](b)[0] = val
	default:
		return kindMismatch("set float64", key, c.typ)
	}
	return nil
}

// SetInt64 writes a scalar signed integer cell, narrowing where needed.
func (r Row) SetInt64(key string, val int64) error {
	c, b, err := r.scalarCell("set int64", key)
	if err != nil {
		return err
	}
	switch c.typ {
	case dtype.I8:
		mem.Reinterpret[int8](b)[0] = int8(val)
	case dtype.I16:
		mem.Reinterpret[int16](b)[0] = int16(val)
	case dtype.I32:
		mem.Reinterpret[int32](b)[0] = int32(val)
	case dtype.I64:
		mem.Reinterpret[int64](b)[0] = val
	default:
		return kindMismatch("set int64", key, c.typ)
	}
	return nil
}

// SetUint64 writes a scalar unsigned integer cell, narrowing where needed.
func (r Row) SetUint64(key string, val uint64) error {
	c, b, err := r.scalarCell("set uint64", key)
	if err != nil {
		return err
	}
	switch c.typ {
	case dtype.U8:
		b[0] = uint8(val)
	case dtype.U16:
		mem.Reinterpret[uint16](b)[0] = uint16(val)
	case dtype.U32:
		mem.Reinterpret[uint32](b)[0] = uint32(val)
	case dtype.U64:
		mem.Reinterpret[uint64](b)[0] = val
	default:
		return kindMismatch("set uint64", key, c.typ)
	}
	return nil
}

// SetComplex128 writes a scalar complex cell, narrowing to c64 where needed.
func (r Row) SetComplex128(key string, val complex128) error {
	c, b, err := r.scalarCell("set complex128", key)
	if err != nil {
		return err
	}
	switch c.typ {
	case dtype.C64:
		mem.Reinterpret[complex64](b)[0] = complex64(val)
	case dtype.C128:
		mem.Reinterpret[complex128](b)[0] = val
	default:
		return kindMismatch("set complex128", key, c.typ)
	}
	return nil
}

// SetString writes a string cell.
func (r Row) SetString(key, val string) error {
	return r.ds.SetString(key, r.idx, val)
}
