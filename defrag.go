package dset

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// stagedCol holds one column's staged replacements during a shrinking
// Defrag. redata and repool distinguish "replace" from "keep current".
type stagedCol struct {
	redata  bool
	data    []byte
	repool  bool
	pool    strPool
	offsets []uint64
}

// tightPool reports whether a pool is hole-free and at minimal capacity.
func tightPool(p *strPool) bool {
	if p.holes != 0 {
		return false
	}
	if len(p.buf) == 0 {
		return true
	}
	return p.used == len(p.buf)
}

// stageTight prepares a column's tight replacement buffers without touching
// the live ones.
func (d *Dataset) stageTight(c *column) (stagedCol, error) {
	var st stagedCol
	tight, _ := mulRows(d.rows, c.stride)
	if len(c.data) != tight {
		nb, err := allocBuf(d.ctrl, "defrag", tight)
		if err != nil {
			return stagedCol{}, err
		}
		copy(nb, c.data[:tight])
		st.redata = true
		st.data = nb
	}
	if !c.isString() || tightPool(&c.pool) {
		return st, nil
	}
	np, offs, err := c.pool.packed(d.ctrl, c.offsets(d.rows))
	if err != nil {
		if st.redata {
			freeBuf(d.ctrl, st.data)
		}
		return stagedCol{}, err
	}
	st.repool = true
	st.pool = np
	st.offsets = offs
	return st, nil
}

// Defrag compacts dataset storage and reports the allocated bytes released.
//
// With shrink false only string pools are compacted, in place: entries
// orphaned by SetString are squeezed out and row offsets rewritten. No
// buffers move, the call cannot fail, and over-allocated capacity is kept
// for future growth, so the reported count is zero.
//
// With shrink true every column buffer and string pool is rebuilt at tight
// capacity, exactly covering the row count. Replacements are fully staged
// before any column is touched; a failed allocation leaves the dataset
// unchanged.
//
// Both variants invalidate outstanding views.
func (d *Dataset) Defrag(shrink bool) (int64, error) {
	if err := d.guard(); err != nil {
		return 0, err
	}

	if !shrink {
		for _, c := range d.cols {
			if c.isString() && c.pool.fragmented() {
				c.pool.compactInPlace(c.offsets(d.rows))
			}
		}
		d.gen.Add(1)
		return 0, nil
	}

	before := d.TotalSize()

	staged := make([]stagedCol, len(d.cols))
	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, c := range d.cols {
		g.Go(func() error {
			st, err := d.stageTight(c)
			if err != nil {
				return err
			}
			staged[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for i := range staged {
			if staged[i].redata {
				freeBuf(d.ctrl, staged[i].data)
			}
			if staged[i].repool {
				staged[i].pool.release(d.ctrl)
			}
		}
		return 0, err
	}

	for i, c := range d.cols {
		st := staged[i]
		if st.redata {
			freeBuf(d.ctrl, c.data)
			c.data = st.data
		}
		if st.repool {
			c.pool.release(d.ctrl)
			c.pool = st.pool
			copy(c.offsets(d.rows), st.offsets)
		}
	}
	d.gen.Add(1)
	return int64(before - d.TotalSize()), nil
}
