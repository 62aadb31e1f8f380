package snapshot

import (
	"errors"
	"hash"
	"hash/crc32"
	"io"
)

const (
	// Magic identifies dataset snapshot streams (ASCII "DSET").
	Magic uint32 = 0x44534554
	// Version is the current snapshot format version.
	Version uint32 = 1
)

// Bounds applied to header fields before anything is allocated, so a
// corrupt stream cannot provoke huge allocations.
const (
	maxColumns      = 1 << 24
	maxSectionBytes = 1 << 40
)

var (
	ErrInvalidMagic     = errors.New("invalid magic number")
	ErrInvalidVersion   = errors.New("unsupported snapshot version")
	ErrInvalidCodec     = errors.New("unknown compression codec")
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")
	ErrCorruptSnapshot  = errors.New("corrupt snapshot")
	ErrKeyTooLong       = errors.New("column key exceeds 65535 bytes")
	ErrStringTooLong    = errors.New("string value exceeds 4 GiB")
)

// header is the fixed-size stream header. Blank fields pad to an 8-byte
// boundary and are written as zeros.
type header struct {
	Magic   uint32
	Version uint32
	Codec   uint8
	_       [3]byte
	Columns uint32
	Rows    uint64
}

// crcTable is the IEEE polynomial table shared by writer and reader.
var crcTable = crc32.MakeTable(crc32.IEEE)

// crcWriter forwards writes and keeps a running CRC32 over them.
type crcWriter struct {
	w io.Writer
	h hash.Hash32
}

func newCRCWriter(w io.Writer) *crcWriter {
	return &crcWriter{w: w, h: crc32.New(crcTable)}
}

func (cw *crcWriter) Write(p []byte) (int, error) {
	if _, err := cw.h.Write(p); err != nil {
		return 0, err
	}
	return cw.w.Write(p)
}

func (cw *crcWriter) Sum32() uint32 {
	return cw.h.Sum32()
}

// crcReader forwards reads and keeps a running CRC32 over the bytes
// actually read. The trailing checksum itself is read from the wrapped
// reader directly so it stays outside the sum.
type crcReader struct {
	r io.Reader
	h hash.Hash32
}

func newCRCReader(r io.Reader) *crcReader {
	return &crcReader{r: r, h: crc32.New(crcTable)}
}

func (cr *crcReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		if _, herr := cr.h.Write(p[:n]); herr != nil {
			return n, herr
		}
	}
	return n, err
}

func (cr *crcReader) Sum32() uint32 {
	return cr.h.Sum32()
}
