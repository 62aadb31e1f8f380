package dset

// Handle is an opaque 64-bit identifier referencing a live dataset in a
// Registry. Handles are unique among live datasets and are never reused
// while the counter that mints them has not wrapped, which at 64 bits does
// not happen in practice.
type Handle uint64

// InvalidHandle is the carved-out sentinel value. It is never minted and
// every operation on it reports ErrUnknownHandle.
const InvalidHandle Handle = 0
