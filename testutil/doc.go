// Package testutil provides deterministic test data generators.
//
// This package is intended for use in tests and benchmarks only.
// All generators run off a single seeded source so failures reproduce.
//
// # Column Payloads
//
//	rng := testutil.NewRNG(seed)
//	vals := make([]float32, 4096)
//	rng.FillUniform(vals)     // uniform [0, 1)
//	rng.FillGaussian(vals)    // standard normal
//
// # String Values
//
//	names := rng.ASCIIStrings(1000, 24)  // printable keys
//	blobs := rng.BinaryStrings(1000, 64) // arbitrary bytes, NULs included
package testutil
