// Package dtype defines the closed set of element types a dataset column
// can hold.
//
// Tags cover signed and unsigned integers of 8/16/32/64 bits, float32/64,
// complex64/128, and a string marker. Tag values are stable across versions
// and safe to serialize.
//
// # Usage
//
//	w := dtype.F64.Size()      // 8
//	t, err := dtype.Lookup("i32")
//	t, err = dtype.FromTag(raw)
package dtype
