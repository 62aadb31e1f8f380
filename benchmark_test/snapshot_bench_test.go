package benchmark_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/hupe1980/dset"
	"github.com/hupe1980/dset/snapshot"
	"github.com/hupe1980/dset/testutil"
)

func newSnapshotDataset(b *testing.B, rows uint64) (*dset.Registry, *dset.Dataset) {
	b.Helper()

	reg, h := newBenchDataset(b, rows)
	fillIDs(b, reg, h)

	v, err := reg.View(h, "vec")
	if err != nil {
		b.Fatal(err)
	}
	fs, err := v.Float32s()
	if err != nil {
		b.Fatal(err)
	}
	rng := testutil.NewRNG(1)
	rng.FillGaussian(fs)

	names := rng.ASCIIStrings(64, 16)
	for i := uint64(0); i < rows; i++ {
		if err := reg.SetString(h, "name", i, names[i%uint64(len(names))]); err != nil {
			b.Fatal(err)
		}
	}

	ds, err := reg.Lookup(h)
	if err != nil {
		b.Fatal(err)
	}
	return reg, ds
}

func BenchmarkSnapshotWrite(b *testing.B) {
	const rows = 1 << 12
	_, ds := newSnapshotDataset(b, rows)
	ctx := context.Background()

	codecs := []struct {
		name  string
		codec snapshot.Codec
	}{
		{"None", snapshot.CodecNone},
		{"LZ4", snapshot.CodecLZ4},
		{"Zstd", snapshot.CodecZstd},
	}

	for _, tc := range codecs {
		b.Run(tc.name, func(b *testing.B) {
			var buf bytes.Buffer

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				buf.Reset()
				if err := snapshot.Write(ctx, &buf, ds, snapshot.WithCodec(tc.codec)); err != nil {
					b.Fatal(err)
				}
			}
			b.SetBytes(int64(buf.Len()))
		})
	}
}

func BenchmarkSnapshotRead(b *testing.B) {
	const rows = 1 << 12
	reg, ds := newSnapshotDataset(b, rows)
	ctx := context.Background()

	codecs := []struct {
		name  string
		codec snapshot.Codec
	}{
		{"None", snapshot.CodecNone},
		{"LZ4", snapshot.CodecLZ4},
		{"Zstd", snapshot.CodecZstd},
	}

	for _, tc := range codecs {
		b.Run(tc.name, func(b *testing.B) {
			var buf bytes.Buffer
			if err := snapshot.Write(ctx, &buf, ds, snapshot.WithCodec(tc.codec)); err != nil {
				b.Fatal(err)
			}
			data := buf.Bytes()
			b.SetBytes(int64(len(data)))

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				h, err := snapshot.Read(ctx, bytes.NewReader(data), reg)
				if err != nil {
					b.Fatal(err)
				}
				if err := reg.Delete(h); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
