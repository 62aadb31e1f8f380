package snapshot

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/dset"
	"github.com/hupe1980/dset/dtype"
	"github.com/hupe1980/dset/testutil"
)

// sampleDataset fills a registry-owned dataset with every column kind the
// stream format distinguishes: scalars, per-row arrays and strings.
func sampleDataset(t *testing.T, reg *dset.Registry, rows uint64) dset.Handle {
	t.Helper()
	rng := testutil.NewRNG(4711)

	h := reg.New()
	require.NoError(t, reg.AddScalarColumn(h, "uid", dtype.U64))
	require.NoError(t, reg.AddArrayColumn(h, "vec", dtype.F32, []int{3}))
	require.NoError(t, reg.AddScalarColumn(h, "name", dtype.Str))
	require.NoError(t, reg.AddScalarColumn(h, "count", dtype.I16))
	require.NoError(t, reg.AddRows(h, rows))

	v, err := reg.View(h, "uid")
	require.NoError(t, err)
	uids, err := v.Uint64s()
	require.NoError(t, err)
	rng.FillUint64(uids)

	v, err = reg.View(h, "vec")
	require.NoError(t, err)
	vecs, err := v.Float32s()
	require.NoError(t, err)
	rng.FillUniform(vecs)

	v, err = reg.View(h, "count")
	require.NoError(t, err)
	counts, err := v.Int16s()
	require.NoError(t, err)
	for i := range counts {
		counts[i] = int16(i - 100)
	}

	names := rng.BinaryStrings(int(rows), 24)
	if len(names) > 0 {
		names[0] = "" // keep one explicitly empty row
	}
	for i, s := range names {
		require.NoError(t, reg.SetString(h, "name", uint64(i), s))
	}
	return h
}

// requireEqualDatasets compares schema and cell contents of two datasets.
func requireEqualDatasets(t *testing.T, want, got *dset.Dataset) {
	t.Helper()
	require.Equal(t, want.NumRows(), got.NumRows())
	require.Equal(t, want.Keys(), got.Keys())

	for _, key := range want.Keys() {
		wt, err := want.ColumnType(key)
		require.NoError(t, err)
		gt, err := got.ColumnType(key)
		require.NoError(t, err)
		require.Equal(t, wt, gt, "column %q", key)

		ws, err := want.ColumnShape(key)
		require.NoError(t, err)
		gs, err := got.ColumnShape(key)
		require.NoError(t, err)
		require.Equal(t, ws, gs, "column %q", key)

		if wt.IsString() {
			for i := uint64(0); i < want.NumRows(); i++ {
				w, err := want.GetString(key, i)
				require.NoError(t, err)
				g, err := got.GetString(key, i)
				require.NoError(t, err)
				require.Equal(t, w, g, "column %q row %d", key, i)
			}
			continue
		}
		wv, err := want.View(key)
		require.NoError(t, err)
		wb, err := wv.Bytes()
		require.NoError(t, err)
		gv, err := got.View(key)
		require.NoError(t, err)
		gb, err := gv.Bytes()
		require.NoError(t, err)
		require.Equal(t, wb, gb, "column %q", key)
	}
}

func writeSnapshot(t *testing.T, ds *dset.Dataset, optFns ...Option) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(context.Background(), &buf, ds, optFns...))
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	codecs := []Codec{CodecNone, CodecLZ4, CodecZstd}
	for _, codec := range codecs {
		t.Run(codec.String(), func(t *testing.T) {
			reg := dset.NewRegistry()
			defer reg.Close()

			h := sampleDataset(t, reg, 129)
			src, err := reg.Lookup(h)
			require.NoError(t, err)

			data := writeSnapshot(t, src, WithCodec(codec))

			rh, err := Read(context.Background(), bytes.NewReader(data), reg)
			require.NoError(t, err)
			require.NotEqual(t, dset.InvalidHandle, rh)
			require.NotEqual(t, h, rh)

			restored, err := reg.Lookup(rh)
			require.NoError(t, err)
			requireEqualDatasets(t, src, restored)
		})
	}
}

func TestRoundTripEmpty(t *testing.T) {
	t.Run("NoColumns", func(t *testing.T) {
		reg := dset.NewRegistry()
		defer reg.Close()

		h := reg.New()
		src, err := reg.Lookup(h)
		require.NoError(t, err)

		data := writeSnapshot(t, src)
		rh, err := Read(context.Background(), bytes.NewReader(data), reg)
		require.NoError(t, err)

		n, err := reg.NumRows(rh)
		require.NoError(t, err)
		assert.Zero(t, n)
		cols, err := reg.NumColumns(rh)
		require.NoError(t, err)
		assert.Zero(t, cols)
	})

	t.Run("SchemaOnly", func(t *testing.T) {
		reg := dset.NewRegistry()
		defer reg.Close()

		h := reg.New()
		require.NoError(t, reg.AddScalarColumn(h, "uid", dtype.U64))
		require.NoError(t, reg.AddScalarColumn(h, "name", dtype.Str))
		src, err := reg.Lookup(h)
		require.NoError(t, err)

		data := writeSnapshot(t, src)
		rh, err := Read(context.Background(), bytes.NewReader(data), reg)
		require.NoError(t, err)

		restored, err := reg.Lookup(rh)
		require.NoError(t, err)
		requireEqualDatasets(t, src, restored)
	})
}

func TestMultiBlockPayload(t *testing.T) {
	reg := dset.NewRegistry()
	defer reg.Close()

	// 600 rows x 512 bytes per row spans three blocks.
	h := reg.New()
	require.NoError(t, reg.AddArrayColumn(h, "frame", dtype.F32, []int{128}))
	require.NoError(t, reg.AddRows(h, 600))

	v, err := reg.View(h, "frame")
	require.NoError(t, err)
	frames, err := v.Float32s()
	require.NoError(t, err)
	for i := range frames {
		frames[i] = float32(i % 97)
	}

	src, err := reg.Lookup(h)
	require.NoError(t, err)
	data := writeSnapshot(t, src, WithCodec(CodecZstd))

	rh, err := Read(context.Background(), bytes.NewReader(data), reg)
	require.NoError(t, err)
	restored, err := reg.Lookup(rh)
	require.NoError(t, err)
	requireEqualDatasets(t, src, restored)
}

func TestCompressionShrinksRepetitiveData(t *testing.T) {
	reg := dset.NewRegistry()
	defer reg.Close()

	h := reg.New()
	require.NoError(t, reg.AddArrayColumn(h, "zeros", dtype.U8, []int{1024}))
	require.NoError(t, reg.AddRows(h, 128))
	src, err := reg.Lookup(h)
	require.NoError(t, err)

	compressed := writeSnapshot(t, src, WithCodec(CodecZstd))
	raw := writeSnapshot(t, src, WithCodec(CodecNone))

	assert.Less(t, len(compressed), len(raw)/4)
}

func TestIncompressibleStoredRaw(t *testing.T) {
	reg := dset.NewRegistry()
	defer reg.Close()
	rng := testutil.NewRNG(4711)

	h := reg.New()
	require.NoError(t, reg.AddScalarColumn(h, "noise", dtype.U64))
	require.NoError(t, reg.AddRows(h, 4096))
	v, err := reg.View(h, "noise")
	require.NoError(t, err)
	vals, err := v.Uint64s()
	require.NoError(t, err)
	rng.FillUint64(vals)

	src, err := reg.Lookup(h)
	require.NoError(t, err)
	data := writeSnapshot(t, src, WithCodec(CodecLZ4))

	rh, err := Read(context.Background(), bytes.NewReader(data), reg)
	require.NoError(t, err)
	restored, err := reg.Lookup(rh)
	require.NoError(t, err)
	requireEqualDatasets(t, src, restored)
}

func TestCorruptStreams(t *testing.T) {
	srcReg := dset.NewRegistry()
	defer srcReg.Close()
	h := sampleDataset(t, srcReg, 64)
	src, err := srcReg.Lookup(h)
	require.NoError(t, err)
	good := writeSnapshot(t, src, WithCodec(CodecNone))

	corrupt := func(mutate func(b []byte)) []byte {
		b := append([]byte(nil), good...)
		mutate(b)
		return b
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{
			name: "BadMagic",
			data: corrupt(func(b []byte) { b[0] ^= 0xff }),
			want: ErrInvalidMagic,
		},
		{
			name: "BadVersion",
			data: corrupt(func(b []byte) { b[4] = 0xfe }),
			want: ErrInvalidVersion,
		},
		{
			name: "BadCodec",
			data: corrupt(func(b []byte) { b[8] = 9 }),
			want: ErrInvalidCodec,
		},
		{
			name: "ColumnCountBomb",
			data: corrupt(func(b []byte) {
				binary.LittleEndian.PutUint32(b[12:], 1<<25)
			}),
			want: ErrCorruptSnapshot,
		},
		{
			name: "RowCountBomb",
			data: corrupt(func(b []byte) {
				binary.LittleEndian.PutUint64(b[16:], 1<<50)
			}),
			want: ErrCorruptSnapshot,
		},
		{
			name: "RowCountPastPayload",
			data: corrupt(func(b []byte) {
				binary.LittleEndian.PutUint64(b[16:], 65)
			}),
			want: ErrCorruptSnapshot,
		},
		{
			name: "FlippedPayloadByte",
			data: corrupt(func(b []byte) { b[len(b)-5] ^= 0x01 }),
			want: ErrChecksumMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := dset.NewRegistry()
			defer reg.Close()

			_, err := Read(context.Background(), bytes.NewReader(tt.data), reg)
			require.ErrorIs(t, err, tt.want)
			assert.Zero(t, reg.Len())
			assert.Zero(t, reg.MemoryUsage())
		})
	}

	t.Run("Truncated", func(t *testing.T) {
		reg := dset.NewRegistry()
		defer reg.Close()

		_, err := Read(context.Background(), bytes.NewReader(good[:len(good)/2]), reg)
		require.Error(t, err)
		assert.Zero(t, reg.Len())
		assert.Zero(t, reg.MemoryUsage())
	})
}

func TestWriteErrors(t *testing.T) {
	t.Run("ClosedDataset", func(t *testing.T) {
		reg := dset.NewRegistry()
		ds := reg.NewDataset()
		ds.Release()

		var buf bytes.Buffer
		assert.ErrorIs(t, Write(context.Background(), &buf, ds), dset.ErrDatasetClosed)
	})

	t.Run("InvalidCodec", func(t *testing.T) {
		reg := dset.NewRegistry()
		defer reg.Close()
		h := reg.New()
		ds, err := reg.Lookup(h)
		require.NoError(t, err)

		var buf bytes.Buffer
		assert.ErrorIs(t, Write(context.Background(), &buf, ds, WithCodec(Codec(9))), ErrInvalidCodec)
	})
}

func TestRateLimitHonorsContext(t *testing.T) {
	reg := dset.NewRegistry()
	defer reg.Close()
	h := sampleDataset(t, reg, 16)
	ds, err := reg.Lookup(h)
	require.NoError(t, err)
	good := writeSnapshot(t, ds)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	t.Run("Write", func(t *testing.T) {
		var buf bytes.Buffer
		err := Write(ctx, &buf, ds, WithRateLimit(1))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("Read", func(t *testing.T) {
		before := reg.Len()
		_, err := Read(ctx, bytes.NewReader(good), reg, WithRateLimit(1))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, before, reg.Len())
	})
}

func TestBlockCodec(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		payload := bytes.Repeat([]byte("abcdefgh"), 512)
		for _, codec := range []Codec{CodecNone, CodecLZ4, CodecZstd} {
			var buf bytes.Buffer
			require.NoError(t, writeBlock(&buf, codec, payload))

			dst := make([]byte, len(payload))
			var scratch []byte
			n, err := readBlock(&buf, codec, dst, &scratch)
			require.NoError(t, err, codec)
			assert.Equal(t, len(payload), n)
			assert.Equal(t, payload, dst)
		}
	})

	t.Run("RejectsZeroRawLen", func(t *testing.T) {
		var buf bytes.Buffer
		var hdr [blockHeaderSize]byte
		buf.Write(hdr[:])

		var scratch []byte
		_, err := readBlock(&buf, CodecLZ4, make([]byte, 16), &scratch)
		assert.ErrorIs(t, err, ErrCorruptSnapshot)
	})

	t.Run("RejectsOversizedRawLen", func(t *testing.T) {
		var buf bytes.Buffer
		var hdr [blockHeaderSize]byte
		binary.LittleEndian.PutUint32(hdr[0:], 1<<20)
		buf.Write(hdr[:])

		var scratch []byte
		_, err := readBlock(&buf, CodecLZ4, make([]byte, 16), &scratch)
		assert.ErrorIs(t, err, ErrCorruptSnapshot)
	})

	t.Run("RejectsNonShrinkingCompLen", func(t *testing.T) {
		var buf bytes.Buffer
		var hdr [blockHeaderSize]byte
		binary.LittleEndian.PutUint32(hdr[0:], 8)
		binary.LittleEndian.PutUint32(hdr[4:], 8)
		buf.Write(hdr[:])

		var scratch []byte
		_, err := readBlock(&buf, CodecZstd, make([]byte, 16), &scratch)
		assert.ErrorIs(t, err, ErrCorruptSnapshot)
	})

	t.Run("RejectsCompressedBlockUnderCodecNone", func(t *testing.T) {
		var buf bytes.Buffer
		var hdr [blockHeaderSize]byte
		binary.LittleEndian.PutUint32(hdr[0:], 8)
		binary.LittleEndian.PutUint32(hdr[4:], 4)
		buf.Write(hdr[:])
		buf.Write([]byte{1, 2, 3, 4})

		var scratch []byte
		_, err := readBlock(&buf, CodecNone, make([]byte, 16), &scratch)
		assert.ErrorIs(t, err, ErrCorruptSnapshot)
	})
}
