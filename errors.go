package dset

import (
	"errors"
	"fmt"

	"github.com/hupe1980/dset/dtype"
	"github.com/hupe1980/dset/resource"
)

var (
	// ErrUnknownHandle is returned for any operation on a handle that was
	// never minted or has been deleted.
	ErrUnknownHandle = errors.New("unknown handle")

	// ErrDuplicateColumn is returned when adding a column whose key
	// already exists in the dataset.
	ErrDuplicateColumn = errors.New("duplicate column key")

	// ErrUnknownColumn is returned when an operation references a column
	// key that does not exist.
	ErrUnknownColumn = errors.New("unknown column key")

	// ErrColumnKindMismatch is returned when an operation addresses a
	// column of the wrong kind, e.g. string access on a numeric column or
	// a typed view accessor that does not match the element type.
	ErrColumnKindMismatch = errors.New("column kind mismatch")

	// ErrIndexOutOfRange is returned for row indices >= the row count and
	// column ordinals >= the column count.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrInvalidShape is returned for array shapes with rank zero or a
	// dimension smaller than one.
	ErrInvalidShape = errors.New("invalid shape")

	// ErrInvalidType is returned for element type tags outside the closed
	// enumeration.
	ErrInvalidType = errors.New("invalid element type")

	// ErrAllocation is returned when a memory reservation fails. The
	// failed operation rolls back; the dataset keeps its pre-call state.
	ErrAllocation = errors.New("allocation failed")

	// ErrStaleView is returned when a buffer view is dereferenced after a
	// structural mutation of its dataset invalidated it.
	ErrStaleView = errors.New("stale buffer view")

	// ErrDatasetClosed is returned when a *Dataset obtained via Lookup is
	// used after its handle was deleted.
	ErrDatasetClosed = errors.New("dataset closed")
)

// ErrKindMismatch carries the details of a column kind mismatch.
//
// errors.Is(err, ErrColumnKindMismatch) matches; the failed operation, the
// column key and its actual element type are available as fields.
type ErrKindMismatch struct {
	Op   string
	Key  string
	Type dtype.T
}

func (e *ErrKindMismatch) Error() string {
	return fmt.Sprintf("%s: column %q has element type %s", e.Op, e.Key, e.Type)
}

func (e *ErrKindMismatch) Unwrap() error { return ErrColumnKindMismatch }

func kindMismatch(op, key string, t dtype.T) error {
	return &ErrKindMismatch{Op: op, Key: key, Type: t}
}

func arrayMismatch(op, key string) error {
	return fmt.Errorf("%w: %s: column %q holds per-row arrays", ErrColumnKindMismatch, op, key)
}

func unknownHandle(h Handle) error {
	return fmt.Errorf("%w: %d", ErrUnknownHandle, uint64(h))
}

func unknownColumn(key string) error {
	return fmt.Errorf("%w: %q", ErrUnknownColumn, key)
}

func duplicateColumn(key string) error {
	return fmt.Errorf("%w: %q", ErrDuplicateColumn, key)
}

func rowOutOfRange(row, rows uint64) error {
	return fmt.Errorf("%w: row %d of %d", ErrIndexOutOfRange, row, rows)
}

// allocFailed reports a failed memory reservation. Both ErrAllocation and
// the controller's limit error are in the chain for errors.Is.
func allocFailed(op string, bytes int64) error {
	return fmt.Errorf("%w: %s needs %d bytes: %w", ErrAllocation, op, bytes, resource.ErrMemoryLimitExceeded)
}
