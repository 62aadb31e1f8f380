package dset

import (
	"io"
	"sync/atomic"

	"github.com/hupe1980/dset/dtype"
)

// defaultRegistry is created on first use so that programs wiring their
// own registry never pay for it.
var defaultRegistry atomic.Pointer[Registry]

// Default returns the process-wide registry used by the package-level
// functions. It is created with default options (no memory limit, noop
// logging) on first use.
func Default() *Registry {
	if r := defaultRegistry.Load(); r != nil {
		return r
	}
	defaultRegistry.CompareAndSwap(nil, NewRegistry())
	return defaultRegistry.Load()
}

// SetDefault makes r the registry returned by Default. Datasets already
// registered with the previous default keep working through their own
// handles only as long as the previous registry is retained elsewhere.
func SetDefault(r *Registry) {
	defaultRegistry.Store(r)
}

// New calls [Registry.New] on the default registry.
func New() Handle {
	return Default().New()
}

// Lookup calls [Registry.Lookup] on the default registry.
func Lookup(h Handle) (*Dataset, error) {
	return Default().Lookup(h)
}

// Delete calls [Registry.Delete] on the default registry.
func Delete(h Handle) error {
	return Default().Delete(h)
}

// Copy calls [Registry.Copy] on the default registry.
func Copy(h Handle) (Handle, error) {
	return Default().Copy(h)
}

// TotalSize calls [Registry.TotalSize] on the default registry.
func TotalSize(h Handle) (uint64, error) {
	return Default().TotalSize(h)
}

// NumColumns calls [Registry.NumColumns] on the default registry.
func NumColumns(h Handle) (int, error) {
	return Default().NumColumns(h)
}

// NumRows calls [Registry.NumRows] on the default registry.
func NumRows(h Handle) (uint64, error) {
	return Default().NumRows(h)
}

// ColumnKey calls [Registry.ColumnKey] on the default registry.
func ColumnKey(h Handle, i int) (string, error) {
	return Default().ColumnKey(h, i)
}

// ColumnType calls [Registry.ColumnType] on the default registry.
func ColumnType(h Handle, key string) (dtype.T, error) {
	return Default().ColumnType(h, key)
}

// ColumnRank calls [Registry.ColumnRank] on the default registry.
func ColumnRank(h Handle, key string) (int, error) {
	return Default().ColumnRank(h, key)
}

// ColumnShape calls [Registry.ColumnShape] on the default registry.
func ColumnShape(h Handle, key string) ([]int, error) {
	return Default().ColumnShape(h, key)
}

// AddRows calls [Registry.AddRows] on the default registry.
func AddRows(h Handle, num uint64) error {
	return Default().AddRows(h, num)
}

// AddScalarColumn calls [Registry.AddScalarColumn] on the default registry.
func AddScalarColumn(h Handle, key string, t dtype.T) error {
	return Default().AddScalarColumn(h, key, t)
}

// AddArrayColumn calls [Registry.AddArrayColumn] on the default registry.
func AddArrayColumn(h Handle, key string, t dtype.T, shape []int) error {
	return Default().AddArrayColumn(h, key, t, shape)
}

// ViewColumn calls [Registry.View] on the default registry.
func ViewColumn(h Handle, key string) (*View, error) {
	return Default().View(h, key)
}

// GetString calls [Registry.GetString] on the default registry.
func GetString(h Handle, key string, row uint64) (string, error) {
	return Default().GetString(h, key, row)
}

// SetString calls [Registry.SetString] on the default registry.
func SetString(h Handle, key string, row uint64, value string) error {
	return Default().SetString(h, key, row, value)
}

// DropColumn calls [Registry.DropColumn] on the default registry.
func DropColumn(h Handle, key string) error {
	return Default().DropColumn(h, key)
}

// RenameColumn calls [Registry.RenameColumn] on the default registry.
func RenameColumn(h Handle, oldKey, newKey string) error {
	return Default().RenameColumn(h, oldKey, newKey)
}

// Defrag calls [Registry.Defrag] on the default registry.
func Defrag(h Handle, shrink bool) (int64, error) {
	return Default().Defrag(h, shrink)
}

// DumpText calls [Registry.DumpText] on the default registry.
func DumpText(h Handle, w io.Writer) error {
	return Default().DumpText(h, w)
}

// Mask calls [Registry.Mask] on the default registry.
func Mask(h Handle, mask []bool) (Handle, error) {
	return Default().Mask(h, mask)
}

// Subset calls [Registry.Subset] on the default registry.
func Subset(h Handle, rows []uint64) (Handle, error) {
	return Default().Subset(h, rows)
}

// Slice calls [Registry.Slice] on the default registry.
func Slice(h Handle, start, stop uint64) (Handle, error) {
	return Default().Slice(h, start, stop)
}

// Filter calls [Registry.Filter] on the default registry.
func Filter(h Handle, pred func(Row) bool) (Handle, error) {
	return Default().Filter(h, pred)
}
