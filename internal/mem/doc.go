// Package mem provides memory allocation utilities.
//
// # Aligned Allocation
//
// Column buffers are allocated with 64-byte alignment so external zero-copy
// consumers can run vectorized kernels (AVX-512 friendly) directly over them,
// and typed reinterpretation of the raw bytes is always safely aligned.
package mem
