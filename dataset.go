package dset

import (
	"fmt"
	"math"
	"slices"
	"sync/atomic"

	"github.com/hupe1980/dset/dtype"
	"github.com/hupe1980/dset/resource"
)

// Dataset is an ordered collection of uniquely-keyed columns sharing one
// row count. It owns all column buffers and string pools.
//
// Datasets follow a single-writer model: structural mutations (AddRows,
// AddScalarColumn, AddArrayColumn, SetString, DropColumn, RenameColumn,
// Defrag) on one dataset must be serialized by the caller. Read-only
// operations may run concurrently with each other.
type Dataset struct {
	cols  []*column
	index map[string]int
	rows  uint64

	// gen counts structural mutations. Views capture it at creation and
	// revalidate on every dereference.
	gen    atomic.Uint64
	closed atomic.Bool

	ctrl   *resource.Controller
	growth float64
}

func newDataset(ctrl *resource.Controller, growth float64) *Dataset {
	return &Dataset{
		index:  make(map[string]int),
		ctrl:   ctrl,
		growth: growth,
	}
}

func (d *Dataset) guard() error {
	if d.closed.Load() {
		return ErrDatasetClosed
	}
	return nil
}

func (d *Dataset) col(key string) (*column, error) {
	i, ok := d.index[key]
	if !ok {
		return nil, unknownColumn(key)
	}
	return d.cols[i], nil
}

// NumRows returns the dataset's row count.
func (d *Dataset) NumRows() uint64 {
	return d.rows
}

// NumColumns returns the number of columns.
func (d *Dataset) NumColumns() int {
	return len(d.cols)
}

// TotalSize returns the allocated capacity in bytes across all column
// buffers and string pools. Capacity, not logically used bytes: growth
// slack counts until Defrag reclaims it.
func (d *Dataset) TotalSize() uint64 {
	var total int64
	for _, c := range d.cols {
		total += c.sizeBytes()
	}
	return uint64(total)
}

// ColumnKey returns the column key at ordinal position i in insertion order.
func (d *Dataset) ColumnKey(i int) (string, error) {
	if err := d.guard(); err != nil {
		return "", err
	}
	if i < 0 || i >= len(d.cols) {
		return "", fmt.Errorf("%w: column %d of %d", ErrIndexOutOfRange, i, len(d.cols))
	}
	return d.cols[i].key, nil
}

// ColumnType returns the element type of the named column; dtype.Str for
// string columns.
func (d *Dataset) ColumnType(key string) (dtype.T, error) {
	if err := d.guard(); err != nil {
		return dtype.Invalid, err
	}
	c, err := d.col(key)
	if err != nil {
		return dtype.Invalid, err
	}
	return c.typ, nil
}

// ColumnRank returns the array rank of the named column: 0 for scalar and
// string columns, >= 1 for array columns.
func (d *Dataset) ColumnRank(key string) (int, error) {
	if err := d.guard(); err != nil {
		return 0, err
	}
	c, err := d.col(key)
	if err != nil {
		return 0, err
	}
	return c.rank(), nil
}

// ColumnShape returns a copy of the named column's per-row shape vector,
// nil for scalar and string columns.
func (d *Dataset) ColumnShape(key string) ([]int, error) {
	if err := d.guard(); err != nil {
		return nil, err
	}
	c, err := d.col(key)
	if err != nil {
		return nil, err
	}
	return slices.Clone(c.shape), nil
}

// Keys returns all column keys in insertion order.
func (d *Dataset) Keys() []string {
	keys := make([]string, len(d.cols))
	for i, c := range d.cols {
		keys[i] = c.key
	}
	return keys
}

// HasColumn reports whether the dataset has a column with the given key.
func (d *Dataset) HasColumn(key string) bool {
	_, ok := d.index[key]
	return ok
}

// AddScalarColumn adds a column holding one fixed-width value per row.
// With dtype.Str it adds a string column. The new column spans the current
// row count, zero-initialized (empty strings).
func (d *Dataset) AddScalarColumn(key string, t dtype.T) error {
	if err := d.guard(); err != nil {
		return err
	}
	if !t.Valid() {
		return fmt.Errorf("%w: tag %d", ErrInvalidType, uint8(t))
	}
	if d.HasColumn(key) {
		return duplicateColumn(key)
	}
	c, err := newColumn(d.ctrl, key, t, nil, t.Size(), d.rows)
	if err != nil {
		return err
	}
	d.install(c)
	return nil
}

// AddArrayColumn adds a column holding one fixed-shape, row-major array per
// row. The element type must be numeric and every dimension at least one.
func (d *Dataset) AddArrayColumn(key string, t dtype.T, shape []int) error {
	if err := d.guard(); err != nil {
		return err
	}
	if !t.IsNumeric() {
		return fmt.Errorf("%w: array columns need a numeric element type, got %s", ErrInvalidType, t)
	}
	if d.HasColumn(key) {
		return duplicateColumn(key)
	}
	stride, err := shapeStride(t, shape)
	if err != nil {
		return fmt.Errorf("%w: %v", err, shape)
	}
	c, err := newColumn(d.ctrl, key, t, slices.Clone(shape), stride, d.rows)
	if err != nil {
		return err
	}
	d.install(c)
	return nil
}

func (d *Dataset) install(c *column) {
	d.index[c.key] = len(d.cols)
	d.cols = append(d.cols, c)
}

// AddRows appends num rows to every column. New scalar and array cells are
// zero, new string cells empty. The operation is all-or-nothing: every
// replacement buffer is staged before any column is touched, so a failed
// allocation leaves the dataset unchanged.
//
// Growth may relocate column buffers; outstanding views become stale.
func (d *Dataset) AddRows(num uint64) error {
	if err := d.guard(); err != nil {
		return err
	}
	if num == 0 {
		return nil
	}
	newRows := d.rows + num
	if newRows < d.rows {
		return allocFailed("addrows", math.MaxInt64)
	}

	staged := make([][]byte, len(d.cols))
	for i, c := range d.cols {
		nb, err := c.stageGrow(d.ctrl, d.rows, newRows, d.growth)
		if err != nil {
			for _, b := range staged[:i] {
				freeBuf(d.ctrl, b)
			}
			return err
		}
		staged[i] = nb
	}

	for i, c := range d.cols {
		c.commitGrow(d.ctrl, staged[i])
	}
	d.rows = newRows
	d.gen.Add(1)
	return nil
}

// Copy produces an independent deep copy: fresh buffers, packed string
// pools, no aliasing with the source. The copy is tight (capacity equals
// the row count), so its TotalSize may be smaller than the source's.
func (d *Dataset) Copy() (*Dataset, error) {
	if err := d.guard(); err != nil {
		return nil, err
	}
	nd := newDataset(d.ctrl, d.growth)
	nd.rows = d.rows
	for _, c := range d.cols {
		nc, err := c.clone(d.ctrl, d.rows)
		if err != nil {
			nd.release()
			return nil, err
		}
		nd.install(nc)
	}
	return nd, nil
}

// GetString returns the string at row of the named string column.
func (d *Dataset) GetString(key string, row uint64) (string, error) {
	if err := d.guard(); err != nil {
		return "", err
	}
	c, err := d.col(key)
	if err != nil {
		return "", err
	}
	if !c.isString() {
		return "", kindMismatch("getstr", key, c.typ)
	}
	if row >= d.rows {
		return "", rowOutOfRange(row, d.rows)
	}
	return c.pool.get(c.offsets(d.rows)[row]), nil
}

// SetString replaces the string at row of the named string column. The
// prior value's storage becomes a pool hole, reclaimed by Defrag.
func (d *Dataset) SetString(key string, row uint64, value string) error {
	if err := d.guard(); err != nil {
		return err
	}
	c, err := d.col(key)
	if err != nil {
		return err
	}
	if !c.isString() {
		return kindMismatch("setstr", key, c.typ)
	}
	if row >= d.rows {
		return rowOutOfRange(row, d.rows)
	}

	off, err := c.pool.append(d.ctrl, value)
	if err != nil {
		return err
	}
	slots := c.offsets(d.rows)
	old := slots[row]
	slots[row] = off
	c.pool.orphan(old)
	return nil
}

// DropColumn removes the named column and releases its storage.
func (d *Dataset) DropColumn(key string) error {
	if err := d.guard(); err != nil {
		return err
	}
	i, ok := d.index[key]
	if !ok {
		return unknownColumn(key)
	}

	d.cols[i].release(d.ctrl)
	d.cols = slices.Delete(d.cols, i, i+1)
	delete(d.index, key)
	for j := i; j < len(d.cols); j++ {
		d.index[d.cols[j].key] = j
	}
	d.gen.Add(1)
	return nil
}

// RenameColumn renames a column, keeping its ordinal position and contents.
func (d *Dataset) RenameColumn(oldKey, newKey string) error {
	if err := d.guard(); err != nil {
		return err
	}
	i, ok := d.index[oldKey]
	if !ok {
		return unknownColumn(oldKey)
	}
	if oldKey == newKey {
		return nil
	}
	if d.HasColumn(newKey) {
		return duplicateColumn(newKey)
	}

	d.cols[i].key = newKey
	delete(d.index, oldKey)
	d.index[newKey] = i
	d.gen.Add(1)
	return nil
}

// Release frees the dataset's storage immediately and marks it closed.
// It is meant for datasets that are not registered in a Registry, such as
// selection results or failed snapshot restores; registered datasets are
// released through Registry.Delete. Release is idempotent.
func (d *Dataset) Release() {
	d.release()
}

// Closed reports whether the dataset's storage has been released, either
// through Release or through Registry.Delete.
func (d *Dataset) Closed() bool {
	return d.closed.Load()
}

// release frees every buffer and marks the dataset closed. Outstanding
// views turn stale.
func (d *Dataset) release() {
	if d.closed.Swap(true) {
		return
	}
	for _, c := range d.cols {
		c.release(d.ctrl)
	}
	d.cols = nil
	d.index = nil
	d.rows = 0
	d.gen.Add(1)
}
