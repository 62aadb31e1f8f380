package dset

import (
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/dset/dtype"
	"github.com/hupe1980/dset/resource"
)

// Registry is the handle table. It mints opaque handles for datasets,
// resolves every handle-addressed operation and owns the shared memory
// budget. All registry methods are safe for concurrent use; structural
// mutations of one dataset must still be serialized by its caller.
//
// Handles are assigned monotonically and never reused, so a stale handle
// fails with ErrUnknownHandle instead of aliasing a later dataset.
type Registry struct {
	mu       sync.RWMutex
	datasets map[Handle]*Dataset
	next     atomic.Uint64

	ctrl    *resource.Controller
	opts    options
	logger  *Logger
	metrics MetricsCollector
}

// NewRegistry creates an empty registry.
//
// Example:
//
//	reg := dset.NewRegistry(
//	    dset.WithMemoryLimit(1 << 30),
//	    dset.WithLogLevel(slog.LevelInfo),
//	)
//	h := reg.New()
//	defer reg.Delete(h)
func NewRegistry(optFns ...Option) *Registry {
	opts := applyOptions(optFns)
	return &Registry{
		datasets: make(map[Handle]*Dataset),
		ctrl:     resource.NewController(resource.Config{MemoryLimitBytes: opts.memoryLimit}),
		opts:     opts,
		logger:   opts.logger,
		metrics:  opts.metricsCollector,
	}
}

func (r *Registry) register(ds *Dataset) Handle {
	h := Handle(r.next.Add(1))
	r.mu.Lock()
	r.datasets[h] = ds
	r.mu.Unlock()
	return h
}

func (r *Registry) dataset(h Handle) (*Dataset, error) {
	r.mu.RLock()
	ds, ok := r.datasets[h]
	r.mu.RUnlock()
	if !ok {
		return nil, unknownHandle(h)
	}
	return ds, nil
}

// New creates an empty dataset and returns its handle. InvalidHandle is
// never returned.
func (r *Registry) New() Handle {
	h := r.register(newDataset(r.ctrl, r.opts.growthFactor))
	r.logger.Debug("dataset created", "handle", uint64(h))
	return h
}

// Lookup resolves a handle to its dataset for direct use of the dataset
// API. The pointer stays usable until Delete; afterwards every dataset
// method fails with ErrDatasetClosed.
func (r *Registry) Lookup(h Handle) (*Dataset, error) {
	return r.dataset(h)
}

// NewDataset creates an empty dataset charged against the registry's
// budget but not yet registered. Callers either adopt it with Register or
// free it with its Release method.
func (r *Registry) NewDataset() *Dataset {
	return newDataset(r.ctrl, r.opts.growthFactor)
}

// Register adopts a dataset created by this registry (NewDataset, a
// selection result, a restored snapshot) into the handle table. A dataset
// must be registered at most once.
func (r *Registry) Register(ds *Dataset) (Handle, error) {
	if ds == nil || ds.closed.Load() {
		return InvalidHandle, ErrDatasetClosed
	}
	return r.register(ds), nil
}

// Delete releases the dataset's storage and retires the handle. Deleting
// an unknown or already deleted handle fails with ErrUnknownHandle.
func (r *Registry) Delete(h Handle) error {
	start := time.Now()
	r.mu.Lock()
	ds, ok := r.datasets[h]
	if ok {
		delete(r.datasets, h)
	}
	r.mu.Unlock()

	var err error
	if ok {
		ds.release()
	} else {
		err = unknownHandle(h)
	}
	r.metrics.RecordDelete(time.Since(start), err)
	r.logger.LogDelete(h, err)
	return err
}

// Copy deep-copies the dataset and registers the copy under a fresh
// handle. The copy shares no storage with the source and is tight: its
// TotalSize may be smaller.
func (r *Registry) Copy(h Handle) (Handle, error) {
	start := time.Now()
	var dst Handle
	src, err := r.dataset(h)
	if err == nil {
		var nd *Dataset
		if nd, err = src.Copy(); err == nil {
			dst = r.register(nd)
		}
	}
	r.metrics.RecordCopy(time.Since(start), err)
	r.logger.LogCopy(h, dst, err)
	return dst, err
}

// Close releases every dataset and empties the handle table.
func (r *Registry) Close() error {
	r.mu.Lock()
	dss := make([]*Dataset, 0, len(r.datasets))
	for _, ds := range r.datasets {
		dss = append(dss, ds)
	}
	clear(r.datasets)
	r.mu.Unlock()

	for _, ds := range dss {
		ds.release()
	}
	r.logger.Debug("registry closed", "datasets", len(dss))
	return nil
}

// Len returns the number of live datasets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.datasets)
}

// Handles returns the live handles in ascending order.
func (r *Registry) Handles() []Handle {
	r.mu.RLock()
	hs := make([]Handle, 0, len(r.datasets))
	for h := range r.datasets {
		hs = append(hs, h)
	}
	r.mu.RUnlock()
	slices.Sort(hs)
	return hs
}

// MemoryUsage returns the bytes currently reserved by all datasets.
func (r *Registry) MemoryUsage() int64 {
	return r.ctrl.MemoryUsage()
}

// MemoryLimit returns the configured budget, 0 if unlimited.
func (r *Registry) MemoryLimit() int64 {
	return r.ctrl.MemoryLimit()
}

// TotalSize returns the dataset's allocated bytes across column buffers
// and string pools.
func (r *Registry) TotalSize(h Handle) (uint64, error) {
	ds, err := r.dataset(h)
	if err != nil {
		return 0, err
	}
	return ds.TotalSize(), nil
}

// NumColumns returns the dataset's column count.
func (r *Registry) NumColumns(h Handle) (int, error) {
	ds, err := r.dataset(h)
	if err != nil {
		return 0, err
	}
	return ds.NumColumns(), nil
}

// NumRows returns the dataset's row count.
func (r *Registry) NumRows(h Handle) (uint64, error) {
	ds, err := r.dataset(h)
	if err != nil {
		return 0, err
	}
	return ds.NumRows(), nil
}

// ColumnKey returns the key of the column at ordinal position i.
func (r *Registry) ColumnKey(h Handle, i int) (string, error) {
	ds, err := r.dataset(h)
	if err != nil {
		return "", err
	}
	return ds.ColumnKey(i)
}

// ColumnType returns the element type of the named column.
func (r *Registry) ColumnType(h Handle, key string) (dtype.T, error) {
	ds, err := r.dataset(h)
	if err != nil {
		return dtype.Invalid, err
	}
	return ds.ColumnType(key)
}

// ColumnRank returns the array rank of the named column.
func (r *Registry) ColumnRank(h Handle, key string) (int, error) {
	ds, err := r.dataset(h)
	if err != nil {
		return 0, err
	}
	return ds.ColumnRank(key)
}

// ColumnShape returns the per-row shape of the named column.
func (r *Registry) ColumnShape(h Handle, key string) ([]int, error) {
	ds, err := r.dataset(h)
	if err != nil {
		return nil, err
	}
	return ds.ColumnShape(key)
}

// AddRows appends num zero-initialized rows to every column.
func (r *Registry) AddRows(h Handle, num uint64) error {
	start := time.Now()
	ds, err := r.dataset(h)
	if err == nil {
		err = ds.AddRows(num)
	}
	r.metrics.RecordAddRows(num, time.Since(start), err)
	r.logger.LogAddRows(h, num, err)
	return err
}

// AddScalarColumn adds a scalar or string column.
func (r *Registry) AddScalarColumn(h Handle, key string, t dtype.T) error {
	start := time.Now()
	ds, err := r.dataset(h)
	if err == nil {
		err = ds.AddScalarColumn(key, t)
	}
	r.metrics.RecordAddColumn(time.Since(start), err)
	r.logger.LogAddColumn(h, key, t, err)
	return err
}

// AddArrayColumn adds a fixed-shape numeric array column.
func (r *Registry) AddArrayColumn(h Handle, key string, t dtype.T, shape []int) error {
	start := time.Now()
	ds, err := r.dataset(h)
	if err == nil {
		err = ds.AddArrayColumn(key, t, shape)
	}
	r.metrics.RecordAddColumn(time.Since(start), err)
	r.logger.LogAddColumn(h, key, t, err)
	return err
}

// View returns a zero-copy typed view over a scalar or array column.
func (r *Registry) View(h Handle, key string) (*View, error) {
	ds, err := r.dataset(h)
	if err != nil {
		return nil, err
	}
	return ds.View(key)
}

// GetString returns the string at row of the named string column.
func (r *Registry) GetString(h Handle, key string, row uint64) (string, error) {
	ds, err := r.dataset(h)
	if err != nil {
		return "", err
	}
	return ds.GetString(key, row)
}

// SetString replaces the string at row of the named string column.
func (r *Registry) SetString(h Handle, key string, row uint64, value string) error {
	ds, err := r.dataset(h)
	if err != nil {
		return err
	}
	return ds.SetString(key, row, value)
}

// DropColumn removes the named column.
func (r *Registry) DropColumn(h Handle, key string) error {
	ds, err := r.dataset(h)
	if err != nil {
		return err
	}
	return ds.DropColumn(key)
}

// RenameColumn renames a column in place.
func (r *Registry) RenameColumn(h Handle, oldKey, newKey string) error {
	ds, err := r.dataset(h)
	if err != nil {
		return err
	}
	return ds.RenameColumn(oldKey, newKey)
}

// Defrag compacts the dataset's storage and reports the bytes released.
func (r *Registry) Defrag(h Handle, shrink bool) (int64, error) {
	start := time.Now()
	var reclaimed int64
	ds, err := r.dataset(h)
	if err == nil {
		reclaimed, err = ds.Defrag(shrink)
	}
	r.metrics.RecordDefrag(reclaimed, time.Since(start), err)
	r.logger.LogDefrag(h, shrink, reclaimed, err)
	return reclaimed, err
}

// DumpText writes a human-readable rendering of the dataset to w.
func (r *Registry) DumpText(h Handle, w io.Writer) error {
	ds, err := r.dataset(h)
	if err != nil {
		return err
	}
	return ds.DumpText(w)
}

// Mask materializes the rows whose mask entry is true as a new dataset and
// returns its handle.
func (r *Registry) Mask(h Handle, mask []bool) (Handle, error) {
	ds, err := r.dataset(h)
	if err != nil {
		return InvalidHandle, err
	}
	nd, err := ds.Mask(mask)
	if err != nil {
		return InvalidHandle, err
	}
	return r.register(nd), nil
}

// Subset materializes exactly the given rows, in order, as a new dataset
// and returns its handle.
func (r *Registry) Subset(h Handle, rows []uint64) (Handle, error) {
	ds, err := r.dataset(h)
	if err != nil {
		return InvalidHandle, err
	}
	nd, err := ds.Subset(rows)
	if err != nil {
		return InvalidHandle, err
	}
	return r.register(nd), nil
}

// Slice materializes rows [start, stop) as a new dataset and returns its
// handle.
func (r *Registry) Slice(h Handle, start, stop uint64) (Handle, error) {
	ds, err := r.dataset(h)
	if err != nil {
		return InvalidHandle, err
	}
	nd, err := ds.Slice(start, stop)
	if err != nil {
		return InvalidHandle, err
	}
	return r.register(nd), nil
}

// Filter materializes the rows the predicate accepts as a new dataset and
// returns its handle.
func (r *Registry) Filter(h Handle, pred func(Row) bool) (Handle, error) {
	ds, err := r.dataset(h)
	if err != nil {
		return InvalidHandle, err
	}
	nd, err := ds.Filter(pred)
	if err != nil {
		return InvalidHandle, err
	}
	return r.register(nd), nil
}
