// Package snapshot serializes datasets to a compact binary stream and
// restores them under fresh handles.
//
// # Stream Layout
//
//	[header]   magic, version, codec, column count, row count
//	[schema]   per column: key, element type tag, rank, dimensions
//	[payload]  per column: raw size, then block-compressed chunks
//	[footer]   CRC32 (IEEE) over header, schema and payloads
//
// Numeric column payloads are the column's live buffer, row-major. String
// column payloads hold one length-prefixed value per row, so the restored
// dataset rebuilds its pools tightly regardless of how fragmented the
// source was.
//
// # Integrity
//
// Read validates the magic number, version, codec, every block header and
// the trailing checksum. On any failure nothing is registered and partial
// allocations are released.
//
// # Throughput Control
//
// WithRateLimit bounds the bytes per second moved through the underlying
// reader or writer, for snapshotting against shared storage.
//
// # Example
//
//	var buf bytes.Buffer
//	ds, _ := reg.Lookup(h)
//	if err := snapshot.Write(ctx, &buf, ds, snapshot.WithCodec(snapshot.CodecZstd)); err != nil {
//	    return err
//	}
//	restored, err := snapshot.Read(ctx, &buf, reg)
package snapshot
