package dset

import (
	"fmt"
	"iter"
	"slices"

	"github.com/hupe1980/dset/internal/rowset"
)

// materialize builds a new dataset with this dataset's schema and the rows
// the sequence yields, in yield order. The sequence must be re-iterable and
// yield exactly n in-range indices; it is walked once per column.
func (d *Dataset) materialize(rows iter.Seq[uint64], n uint64) (*Dataset, error) {
	nd := newDataset(d.ctrl, d.growth)
	for _, c := range d.cols {
		nc, err := newColumn(d.ctrl, c.key, c.typ, slices.Clone(c.shape), c.stride, n)
		if err != nil {
			nd.release()
			return nil, err
		}
		nd.install(nc)
	}
	nd.rows = n
	for ci, c := range d.cols {
		nc := nd.cols[ci]
		if c.isString() {
			src := c.offsets(d.rows)
			dst := nc.offsets(n)
			i := 0
			var fail error
			for row := range rows {
				off, err := nc.pool.append(d.ctrl, c.pool.get(src[row]))
				if err != nil {
					fail = err
					break
				}
				dst[i] = off
				i++
			}
			if fail != nil {
				nd.release()
				return nil, fail
			}
			continue
		}
		stride := c.stride
		i := 0
		for row := range rows {
			copy(nc.data[i*stride:(i+1)*stride], c.data[int(row)*stride:])
			i++
		}
	}
	return nd, nil
}

// Mask returns a new independent dataset holding the rows whose mask entry
// is true, in row order. The mask needs exactly one entry per row.
func (d *Dataset) Mask(mask []bool) (*Dataset, error) {
	if err := d.guard(); err != nil {
		return nil, err
	}
	if uint64(len(mask)) != d.rows {
		return nil, fmt.Errorf("%w: mask length %d for %d rows", ErrIndexOutOfRange, len(mask), d.rows)
	}
	set := rowset.Get()
	defer rowset.Put(set)
	for i, keep := range mask {
		if keep {
			set.Add(uint64(i))
		}
	}
	return d.materialize(set.All(), set.Cardinality())
}

// Filter returns a new independent dataset holding the rows the predicate
// accepts. The predicate runs once per row, in row order.
func (d *Dataset) Filter(pred func(Row) bool) (*Dataset, error) {
	if err := d.guard(); err != nil {
		return nil, err
	}
	set := rowset.Get()
	defer rowset.Put(set)
	for i := uint64(0); i < d.rows; i++ {
		if pred(Row{ds: d, idx: i}) {
			set.Add(i)
		}
	}
	return d.materialize(set.All(), set.Cardinality())
}

// Subset returns a new independent dataset holding exactly the given rows,
// in the given order. Indices may repeat.
func (d *Dataset) Subset(rows []uint64) (*Dataset, error) {
	if err := d.guard(); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row >= d.rows {
			return nil, rowOutOfRange(row, d.rows)
		}
	}
	return d.materialize(slices.Values(rows), uint64(len(rows)))
}

// Slice returns a new independent dataset holding rows [start, stop). The
// stop bound is clamped to the row count; start past stop is an error.
func (d *Dataset) Slice(start, stop uint64) (*Dataset, error) {
	if err := d.guard(); err != nil {
		return nil, err
	}
	if stop > d.rows {
		stop = d.rows
	}
	if start > stop {
		return nil, fmt.Errorf("%w: slice start %d past stop %d", ErrIndexOutOfRange, start, stop)
	}
	seq := func(yield func(uint64) bool) {
		for i := start; i < stop; i++ {
			if !yield(i) {
				return
			}
		}
	}
	return d.materialize(seq, stop-start)
}
