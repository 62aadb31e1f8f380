package snapshot

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec selects the block compression algorithm of a snapshot stream.
type Codec uint8

const (
	// CodecNone stores every block raw.
	CodecNone Codec = 0
	// CodecLZ4 uses LZ4 block compression (fast, moderate ratio).
	CodecLZ4 Codec = 1
	// CodecZstd uses zstd block compression (slower, better ratio).
	CodecZstd Codec = 2
)

func (c Codec) valid() bool {
	return c <= CodecZstd
}

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// Encoder/decoder pools: zstd instances are expensive to create and safe
// to reuse via EncodeAll/DecodeAll.
var (
	zstdEncPool sync.Pool
	zstdDecPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecPool.Put(dec)
}

// blockSize is the chunk size payloads are split into before compression.
const blockSize = 256 * 1024

// blockHeaderSize covers [rawLen uint32][compLen uint32]; compLen 0 marks
// a block stored raw.
const blockHeaderSize = 8

// writeBlock compresses one block and writes it with its header. Blocks
// that do not shrink by at least 10% are stored raw; a stored compLen is
// always strictly smaller than its rawLen.
func writeBlock(w io.Writer, codec Codec, data []byte) error {
	var compressed []byte
	switch codec {
	case CodecLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return fmt.Errorf("lz4 compress: %w", err)
		}
		compressed = buf[:n]
	case CodecZstd:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		putZstdEncoder(enc)
	}

	var hdr [blockHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(len(data)))
	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		binary.LittleEndian.PutUint32(hdr[4:], 0)
		if _, err := w.Write(hdr[:]); err != nil {
			return err
		}
		_, err := w.Write(data)
		return err
	}
	binary.LittleEndian.PutUint32(hdr[4:], uint32(len(compressed)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(compressed)
	return err
}

// writePayload writes one section: its raw size followed by block-compressed
// chunks of at most blockSize bytes each.
func writePayload(w io.Writer, codec Codec, data []byte) error {
	var szb [8]byte
	binary.LittleEndian.PutUint64(szb[:], uint64(len(data)))
	if _, err := w.Write(szb[:]); err != nil {
		return err
	}
	for off := 0; off < len(data); off += blockSize {
		end := min(off+blockSize, len(data))
		if err := writeBlock(w, codec, data[off:end]); err != nil {
			return err
		}
	}
	return nil
}

// readBlock reads one block into the front of dst and returns its raw
// length. scratch is reused across calls for the compressed bytes.
func readBlock(r io.Reader, codec Codec, dst []byte, scratch *[]byte) (int, error) {
	var hdr [blockHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, err
	}
	rawLen := int(binary.LittleEndian.Uint32(hdr[0:]))
	compLen := int(binary.LittleEndian.Uint32(hdr[4:]))
	if rawLen == 0 || rawLen > len(dst) {
		return 0, fmt.Errorf("%w: block of %d raw bytes, %d expected at most", ErrCorruptSnapshot, rawLen, len(dst))
	}

	if compLen == 0 {
		if _, err := io.ReadFull(r, dst[:rawLen]); err != nil {
			return 0, err
		}
		return rawLen, nil
	}
	if compLen >= rawLen {
		return 0, fmt.Errorf("%w: compressed block larger than raw (%d >= %d)", ErrCorruptSnapshot, compLen, rawLen)
	}

	if cap(*scratch) < compLen {
		*scratch = make([]byte, compLen)
	}
	comp := (*scratch)[:compLen]
	if _, err := io.ReadFull(r, comp); err != nil {
		return 0, err
	}

	switch codec {
	case CodecLZ4:
		n, err := lz4.UncompressBlock(comp, dst[:rawLen])
		if err != nil {
			return 0, fmt.Errorf("%w: lz4: %w", ErrCorruptSnapshot, err)
		}
		if n != rawLen {
			return 0, fmt.Errorf("%w: lz4 block decoded to %d bytes, header says %d", ErrCorruptSnapshot, n, rawLen)
		}
	case CodecZstd:
		dec := getZstdDecoder()
		decoded, err := dec.DecodeAll(comp, nil)
		putZstdDecoder(dec)
		if err != nil {
			return 0, fmt.Errorf("%w: zstd: %w", ErrCorruptSnapshot, err)
		}
		if len(decoded) != rawLen {
			return 0, fmt.Errorf("%w: zstd block decoded to %d bytes, header says %d", ErrCorruptSnapshot, len(decoded), rawLen)
		}
		copy(dst, decoded)
	default:
		return 0, fmt.Errorf("%w: compressed block under codec %s", ErrCorruptSnapshot, codec)
	}
	return rawLen, nil
}

func fillBlocks(r io.Reader, codec Codec, dst []byte) error {
	pos := 0
	var scratch []byte
	for pos < len(dst) {
		n, err := readBlock(r, codec, dst[pos:], &scratch)
		if err != nil {
			return err
		}
		pos += n
	}
	return nil
}

// readPayloadInto reads a section whose raw size is known up front, e.g. a
// numeric column payload of rows*stride bytes.
func readPayloadInto(r io.Reader, codec Codec, dst []byte) error {
	var szb [8]byte
	if _, err := io.ReadFull(r, szb[:]); err != nil {
		return err
	}
	if size := binary.LittleEndian.Uint64(szb[:]); size != uint64(len(dst)) {
		return fmt.Errorf("%w: payload of %d bytes, expected %d", ErrCorruptSnapshot, size, len(dst))
	}
	return fillBlocks(r, codec, dst)
}

// readPayloadAlloc reads a variable-size section, validating the declared
// size against [minSize, maxSize]. The buffer grows with the bytes actually
// present, so a lying size field cannot force a huge allocation up front.
func readPayloadAlloc(r io.Reader, codec Codec, minSize, maxSize uint64) ([]byte, error) {
	var szb [8]byte
	if _, err := io.ReadFull(r, szb[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint64(szb[:])
	if size < minSize || size > maxSize {
		return nil, fmt.Errorf("%w: payload of %d bytes outside [%d, %d]", ErrCorruptSnapshot, size, minSize, maxSize)
	}

	dst := make([]byte, 0, min(size, blockSize))
	block := make([]byte, min(size, blockSize))
	var scratch []byte
	for remaining := size; remaining > 0; {
		window := block[:min(remaining, blockSize)]
		n, err := readBlock(r, codec, window, &scratch)
		if err != nil {
			return nil, err
		}
		dst = append(dst, window[:n]...)
		remaining -= uint64(n)
	}
	return dst, nil
}
