package dset

import (
	"encoding/binary"
	"sort"

	"github.com/hupe1980/dset/resource"
)

// poolPad reserves offset 0 so no real entry lives there.
const poolPad = 1

// strPool is the backing storage of one string column: a byte arena holding
// [uvarint length][bytes] entries. Offset 0 always reads as the empty
// string, so zero-initialized rows are empty by construction. Replacing a
// row's string appends a new entry and orphans the old one; orphaned bytes
// are holes until compaction rewrites the pool.
type strPool struct {
	buf   []byte // len(buf) is the allocated capacity
	used  int    // append cursor; 0 while unallocated, >= poolPad afterwards
	holes int64  // orphaned entry bytes reclaimable by compaction
}

// size returns the allocated pool bytes.
func (p *strPool) size() int64 {
	return int64(len(p.buf))
}

// get returns the string stored at off. Offset 0 is the empty string.
func (p *strPool) get(off uint64) string {
	if off == 0 {
		return ""
	}
	n, w := binary.Uvarint(p.buf[off:])
	start := int(off) + w
	return string(p.buf[start : start+int(n)])
}

// entrySize returns the total bytes occupied by the entry at off.
func (p *strPool) entrySize(off uint64) int64 {
	if off == 0 {
		return 0
	}
	n, w := binary.Uvarint(p.buf[off:])
	return int64(w) + int64(n)
}

// append writes s into the pool and returns its offset, growing the pool if
// needed. The old buffer is replaced only after the new one is fully
// populated, so a failed growth leaves the pool unchanged.
func (p *strPool) append(ctrl *resource.Controller, s string) (uint64, error) {
	if len(s) == 0 {
		return 0, nil
	}

	var hdr [binary.MaxVarintLen64]byte
	w := binary.PutUvarint(hdr[:], uint64(len(s)))
	need := w + len(s)

	base := p.used
	if base == 0 {
		base = poolPad
	}
	if base+need > len(p.buf) {
		if err := p.grow(ctrl, base+need); err != nil {
			return 0, err
		}
	}

	p.used = base
	copy(p.buf[p.used:], hdr[:w])
	copy(p.buf[p.used+w:], s)
	off := uint64(p.used)
	p.used += need
	return off, nil
}

func (p *strPool) grow(ctrl *resource.Controller, need int) error {
	target := nextCapacity(len(p.buf), need, 1, defaultGrowthFactor)
	nb, err := allocBuf(ctrl, "string pool", target)
	if err != nil {
		return err
	}
	copy(nb, p.buf[:p.used])
	freeBuf(ctrl, p.buf)
	p.buf = nb
	return nil
}

// orphan accounts the entry at off as a hole.
func (p *strPool) orphan(off uint64) {
	p.holes += p.entrySize(off)
}

func (p *strPool) fragmented() bool {
	return p.holes > 0
}

// compactInPlace slides live entries down over the holes in current offset
// order and rewrites offsets accordingly. It allocates only the scratch
// index and cannot fail, so the operation is trivially all-or-nothing.
func (p *strPool) compactInPlace(offsets []uint64) {
	if p.holes == 0 {
		return
	}

	type ent struct {
		off uint64
		row int
	}
	live := make([]ent, 0, len(offsets))
	for i, off := range offsets {
		if off != 0 {
			live = append(live, ent{off: off, row: i})
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].off < live[j].off })

	oldUsed := p.used
	cursor := 0
	if len(p.buf) > 0 {
		cursor = poolPad
	}
	var prevOff, prevNew uint64
	for _, e := range live {
		if e.off == prevOff {
			// Rows sharing one entry keep sharing it after the move.
			offsets[e.row] = prevNew
			continue
		}
		sz := int(p.entrySize(e.off))
		copy(p.buf[cursor:], p.buf[e.off:int(e.off)+sz])
		prevOff = e.off
		prevNew = uint64(cursor)
		offsets[e.row] = prevNew
		cursor += sz
	}

	p.used = cursor
	p.holes = 0
	clear(p.buf[cursor:oldUsed])
}

// packed builds a tight pool containing, in row order, the entries
// referenced by offsets. newOffsets[i] is row i's offset in the new pool.
// An all-empty column yields a zero pool.
func (p *strPool) packed(ctrl *resource.Controller, offsets []uint64) (strPool, []uint64, error) {
	var liveBytes int64
	for _, off := range offsets {
		liveBytes += p.entrySize(off)
	}

	newOffsets := make([]uint64, len(offsets))
	var np strPool
	if liveBytes == 0 {
		return np, newOffsets, nil
	}

	nb, err := allocBuf(ctrl, "string pool", poolPad+int(liveBytes))
	if err != nil {
		return np, nil, err
	}
	np.buf = nb
	np.used = poolPad
	for i, off := range offsets {
		if off == 0 {
			continue
		}
		sz := int(p.entrySize(off))
		copy(np.buf[np.used:], p.buf[off:int(off)+sz])
		newOffsets[i] = uint64(np.used)
		np.used += sz
	}
	return np, newOffsets, nil
}

// release returns the pool's reservation and clears it.
func (p *strPool) release(ctrl *resource.Controller) {
	freeBuf(ctrl, p.buf)
	*p = strPool{}
}
