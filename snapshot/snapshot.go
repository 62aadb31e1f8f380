package snapshot

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/dset"
	"github.com/hupe1980/dset/dtype"
	"github.com/hupe1980/dset/resource"
)

type options struct {
	codec              Codec
	ioLimitBytesPerSec int64
}

// Option configures Write and Read.
type Option func(*options)

// WithCodec selects the block compression codec for Write. Read always
// follows the codec recorded in the stream.
func WithCodec(c Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithRateLimit bounds the snapshot stream to bytesPerSec against the
// underlying reader or writer. 0 (the default) means unlimited.
func WithRateLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioLimitBytesPerSec = bytesPerSec
	}
}

func applyOptions(optFns []Option) options {
	o := options{codec: CodecLZ4}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// Write serializes the dataset to w: header, schema, one block-compressed
// payload per column and a trailing CRC32. The dataset is not mutated; the
// caller must not mutate it concurrently.
func Write(ctx context.Context, w io.Writer, ds *dset.Dataset, optFns ...Option) error {
	opts := applyOptions(optFns)
	if !opts.codec.valid() {
		return fmt.Errorf("%w: %d", ErrInvalidCodec, uint8(opts.codec))
	}
	if ds == nil || ds.Closed() {
		return dset.ErrDatasetClosed
	}

	out := w
	if opts.ioLimitBytesPerSec > 0 {
		ctrl := resource.NewController(resource.Config{IOLimitBytesPerSec: opts.ioLimitBytesPerSec})
		out = resource.NewRateLimitedWriter(ctx, out, ctrl)
	}
	cw := newCRCWriter(out)

	rows := ds.NumRows()
	keys := ds.Keys()

	var head bytes.Buffer
	hdr := header{
		Magic:   Magic,
		Version: Version,
		Codec:   uint8(opts.codec),
		Columns: uint32(len(keys)),
		Rows:    rows,
	}
	if err := binary.Write(&head, binary.LittleEndian, hdr); err != nil {
		return err
	}
	for _, key := range keys {
		if len(key) > math.MaxUint16 {
			return fmt.Errorf("%w: %q", ErrKeyTooLong, key[:32])
		}
		t, err := ds.ColumnType(key)
		if err != nil {
			return err
		}
		shape, err := ds.ColumnShape(key)
		if err != nil {
			return err
		}
		if err := binary.Write(&head, binary.LittleEndian, uint16(len(key))); err != nil {
			return err
		}
		head.WriteString(key)
		head.WriteByte(uint8(t))
		head.WriteByte(uint8(len(shape)))
		for _, dim := range shape {
			if err := binary.Write(&head, binary.LittleEndian, uint32(dim)); err != nil {
				return err
			}
		}
	}
	if _, err := cw.Write(head.Bytes()); err != nil {
		return err
	}

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, err := ds.ColumnType(key)
		if err != nil {
			return err
		}
		if t.IsString() {
			sec, err := stringSection(ds, key, rows)
			if err != nil {
				return err
			}
			if err := writePayload(cw, opts.codec, sec); err != nil {
				return err
			}
			continue
		}
		v, err := ds.View(key)
		if err != nil {
			return err
		}
		raw, err := v.Bytes()
		if err != nil {
			return err
		}
		if err := writePayload(cw, opts.codec, raw); err != nil {
			return err
		}
	}

	var foot [4]byte
	binary.LittleEndian.PutUint32(foot[:], cw.Sum32())
	_, err := out.Write(foot[:])
	return err
}

// stringSection packs a string column's values in row order, each prefixed
// with its uint32 byte length.
func stringSection(ds *dset.Dataset, key string, rows uint64) ([]byte, error) {
	var buf bytes.Buffer
	var lenb [4]byte
	for i := uint64(0); i < rows; i++ {
		s, err := ds.GetString(key, i)
		if err != nil {
			return nil, err
		}
		if uint64(len(s)) > math.MaxUint32 {
			return nil, fmt.Errorf("%w: column %q row %d", ErrStringTooLong, key, i)
		}
		binary.LittleEndian.PutUint32(lenb[:], uint32(len(s)))
		buf.Write(lenb[:])
		buf.WriteString(s)
	}
	return buf.Bytes(), nil
}

type colSpec struct {
	key   string
	typ   dtype.T
	shape []int
}

// Read restores a snapshot from r into a fresh dataset and registers it
// under a new handle. On any failure, including a checksum mismatch,
// nothing is registered and all partial allocations are released. Declared
// header and section sizes are bounded before anything is allocated from
// them; a registry memory limit additionally caps what a restore may hold.
func Read(ctx context.Context, r io.Reader, reg *dset.Registry, optFns ...Option) (dset.Handle, error) {
	opts := applyOptions(optFns)

	in := r
	if opts.ioLimitBytesPerSec > 0 {
		ctrl := resource.NewController(resource.Config{IOLimitBytesPerSec: opts.ioLimitBytesPerSec})
		in = resource.NewRateLimitedReader(ctx, in, ctrl)
	}
	cr := newCRCReader(in)

	var hdr header
	if err := binary.Read(cr, binary.LittleEndian, &hdr); err != nil {
		return dset.InvalidHandle, fmt.Errorf("read header: %w", err)
	}
	if hdr.Magic != Magic {
		return dset.InvalidHandle, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, hdr.Magic)
	}
	if hdr.Version != Version {
		return dset.InvalidHandle, fmt.Errorf("%w: got %d", ErrInvalidVersion, hdr.Version)
	}
	codec := Codec(hdr.Codec)
	if !codec.valid() {
		return dset.InvalidHandle, fmt.Errorf("%w: %d", ErrInvalidCodec, hdr.Codec)
	}
	if hdr.Columns > maxColumns {
		return dset.InvalidHandle, fmt.Errorf("%w: %d columns", ErrCorruptSnapshot, hdr.Columns)
	}

	// The staging dataset is released on every exit that did not hand it
	// to the registry, so a failed restore strands no budget.
	ds := reg.NewDataset()
	adopted := false
	defer func() {
		if !adopted {
			ds.Release()
		}
	}()

	h, err := restore(ctx, cr, codec, &hdr, ds, reg)
	if err != nil {
		return dset.InvalidHandle, err
	}
	adopted = true
	return h, nil
}

func restore(ctx context.Context, cr *crcReader, codec Codec, hdr *header, ds *dset.Dataset, reg *dset.Registry) (dset.Handle, error) {
	// Sized by what the stream delivers, not by the declared count: a lying
	// header dies on EOF instead of provoking a giant allocation.
	specs := make([]colSpec, 0, min(hdr.Columns, 1024))
	for i := uint32(0); i < hdr.Columns; i++ {
		sp, err := readColSpec(cr)
		if err != nil {
			return dset.InvalidHandle, err
		}
		specs = append(specs, sp)
	}
	if err := checkRowStorage(specs, hdr.Rows); err != nil {
		return dset.InvalidHandle, err
	}

	for _, sp := range specs {
		var err error
		if len(sp.shape) > 0 {
			err = ds.AddArrayColumn(sp.key, sp.typ, sp.shape)
		} else {
			err = ds.AddScalarColumn(sp.key, sp.typ)
		}
		if err != nil {
			return dset.InvalidHandle, err
		}
	}
	if err := ds.AddRows(hdr.Rows); err != nil {
		return dset.InvalidHandle, err
	}

	for _, sp := range specs {
		if err := ctx.Err(); err != nil {
			return dset.InvalidHandle, err
		}
		if sp.typ.IsString() {
			if err := restoreStrings(cr, codec, ds, sp.key, hdr.Rows); err != nil {
				return dset.InvalidHandle, err
			}
			continue
		}
		v, err := ds.View(sp.key)
		if err != nil {
			return dset.InvalidHandle, err
		}
		buf, err := v.Bytes()
		if err != nil {
			return dset.InvalidHandle, err
		}
		if err := readPayloadInto(cr, codec, buf); err != nil {
			return dset.InvalidHandle, err
		}
	}

	computed := cr.Sum32()
	var foot [4]byte
	if _, err := io.ReadFull(cr.r, foot[:]); err != nil {
		return dset.InvalidHandle, fmt.Errorf("read checksum: %w", err)
	}
	if expected := binary.LittleEndian.Uint32(foot[:]); expected != computed {
		return dset.InvalidHandle, fmt.Errorf("%w: expected 0x%08x, got 0x%08x", ErrChecksumMismatch, expected, computed)
	}

	return reg.Register(ds)
}

func readColSpec(cr *crcReader) (colSpec, error) {
	var keyLen uint16
	if err := binary.Read(cr, binary.LittleEndian, &keyLen); err != nil {
		return colSpec{}, fmt.Errorf("read schema: %w", err)
	}
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(cr, key); err != nil {
		return colSpec{}, fmt.Errorf("read schema: %w", err)
	}
	var tagRank [2]byte
	if _, err := io.ReadFull(cr, tagRank[:]); err != nil {
		return colSpec{}, fmt.Errorf("read schema: %w", err)
	}
	t, err := dtype.FromTag(tagRank[0])
	if err != nil {
		return colSpec{}, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	rank := int(tagRank[1])
	if rank > 0 && !t.IsNumeric() {
		return colSpec{}, fmt.Errorf("%w: rank %d column of type %s", ErrCorruptSnapshot, rank, t)
	}
	var shape []int
	if rank > 0 {
		shape = make([]int, rank)
		for j := range shape {
			var dim uint32
			if err := binary.Read(cr, binary.LittleEndian, &dim); err != nil {
				return colSpec{}, fmt.Errorf("read schema: %w", err)
			}
			shape[j] = int(dim)
		}
	}
	return colSpec{key: string(key), typ: t, shape: shape}, nil
}

// checkRowStorage bounds the row storage the header commits the reader to.
// Columns are allocated rows times stride bytes before any payload byte
// arrives, so the declared total gets the same cap as a section instead of
// being trusted. Zero dims pass through; AddArrayColumn rejects them.
func checkRowStorage(specs []colSpec, rows uint64) error {
	var total uint64
	for _, sp := range specs {
		stride := uint64(sp.typ.Size())
		for _, dim := range sp.shape {
			d := uint64(dim)
			if d > 0 && stride > maxSectionBytes/d {
				return fmt.Errorf("%w: column %q stride overflows the section bound", ErrCorruptSnapshot, sp.key)
			}
			stride *= d
		}
		if rows > 0 && stride > maxSectionBytes/rows {
			return fmt.Errorf("%w: %d rows of %d-byte stride in column %q", ErrCorruptSnapshot, rows, stride, sp.key)
		}
		total += rows * stride
		if total > maxSectionBytes {
			return fmt.Errorf("%w: declared row storage exceeds %d bytes", ErrCorruptSnapshot, uint64(maxSectionBytes))
		}
	}
	return nil
}

func restoreStrings(cr *crcReader, codec Codec, ds *dset.Dataset, key string, rows uint64) error {
	sec, err := readPayloadAlloc(cr, codec, 4*rows, maxSectionBytes)
	if err != nil {
		return err
	}
	pos := 0
	for i := uint64(0); i < rows; i++ {
		if pos+4 > len(sec) {
			return fmt.Errorf("%w: string section truncated at row %d", ErrCorruptSnapshot, i)
		}
		n := int(binary.LittleEndian.Uint32(sec[pos:]))
		pos += 4
		if n < 0 || pos+n > len(sec) {
			return fmt.Errorf("%w: string of %d bytes at row %d overruns section", ErrCorruptSnapshot, n, i)
		}
		if n > 0 {
			if err := ds.SetString(key, i, string(sec[pos:pos+n])); err != nil {
				return err
			}
		}
		pos += n
	}
	if pos != len(sec) {
		return fmt.Errorf("%w: %d trailing bytes in string section", ErrCorruptSnapshot, len(sec)-pos)
	}
	return nil
}
