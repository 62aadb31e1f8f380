package dset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/dset/dtype"
)

func testDataset(t *testing.T) *Dataset {
	t.Helper()
	d := NewRegistry().NewDataset()
	t.Cleanup(d.Release)
	return d
}

func TestDatasetSchema(t *testing.T) {
	t.Run("ColumnOrder", func(t *testing.T) {
		d := testDataset(t)

		require.NoError(t, d.AddScalarColumn("uid", dtype.U64))
		require.NoError(t, d.AddArrayColumn("coords", dtype.F32, []int{3}))
		require.NoError(t, d.AddScalarColumn("name", dtype.Str))
		require.NoError(t, d.AddScalarColumn("flags", dtype.I32))

		assert.Equal(t, []string{"uid", "coords", "name", "flags"}, d.Keys())
		assert.Equal(t, 4, d.NumColumns())

		for i, want := range []string{"uid", "coords", "name", "flags"} {
			key, err := d.ColumnKey(i)
			require.NoError(t, err)
			assert.Equal(t, want, key)
		}

		_, err := d.ColumnKey(4)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
		_, err = d.ColumnKey(-1)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
	})

	t.Run("TypesAndShapes", func(t *testing.T) {
		d := testDataset(t)

		require.NoError(t, d.AddScalarColumn("uid", dtype.U64))
		require.NoError(t, d.AddArrayColumn("m", dtype.F64, []int{2, 3}))
		require.NoError(t, d.AddScalarColumn("name", dtype.Str))

		typ, err := d.ColumnType("uid")
		require.NoError(t, err)
		assert.Equal(t, dtype.U64, typ)

		typ, err = d.ColumnType("name")
		require.NoError(t, err)
		assert.Equal(t, dtype.Str, typ)

		rank, err := d.ColumnRank("uid")
		require.NoError(t, err)
		assert.Equal(t, 0, rank)

		rank, err = d.ColumnRank("m")
		require.NoError(t, err)
		assert.Equal(t, 2, rank)

		shape, err := d.ColumnShape("m")
		require.NoError(t, err)
		assert.Equal(t, []int{2, 3}, shape)

		// Returned shape is a copy.
		shape[0] = 99
		again, err := d.ColumnShape("m")
		require.NoError(t, err)
		assert.Equal(t, []int{2, 3}, again)

		shape, err = d.ColumnShape("uid")
		require.NoError(t, err)
		assert.Nil(t, shape)
	})

	t.Run("DuplicateKey", func(t *testing.T) {
		d := testDataset(t)

		require.NoError(t, d.AddScalarColumn("uid", dtype.U64))
		assert.ErrorIs(t, d.AddScalarColumn("uid", dtype.F32), ErrDuplicateColumn)
		assert.ErrorIs(t, d.AddArrayColumn("uid", dtype.F32, []int{2}), ErrDuplicateColumn)
	})

	t.Run("UnknownColumn", func(t *testing.T) {
		d := testDataset(t)

		_, err := d.ColumnType("nope")
		assert.ErrorIs(t, err, ErrUnknownColumn)
		_, err = d.ColumnShape("nope")
		assert.ErrorIs(t, err, ErrUnknownColumn)
		assert.False(t, d.HasColumn("nope"))
	})

	t.Run("InvalidType", func(t *testing.T) {
		d := testDataset(t)

		assert.ErrorIs(t, d.AddScalarColumn("bad", dtype.Invalid), ErrInvalidType)
		assert.ErrorIs(t, d.AddScalarColumn("bad", dtype.T(200)), ErrInvalidType)
		assert.ErrorIs(t, d.AddArrayColumn("bad", dtype.Str, []int{2}), ErrInvalidType)
	})

	t.Run("InvalidShape", func(t *testing.T) {
		d := testDataset(t)

		assert.ErrorIs(t, d.AddArrayColumn("bad", dtype.F32, nil), ErrInvalidShape)
		assert.ErrorIs(t, d.AddArrayColumn("bad", dtype.F32, []int{}), ErrInvalidShape)
		assert.ErrorIs(t, d.AddArrayColumn("bad", dtype.F32, []int{0}), ErrInvalidShape)
		assert.ErrorIs(t, d.AddArrayColumn("bad", dtype.F32, []int{2, -1}), ErrInvalidShape)
		assert.False(t, d.HasColumn("bad"))
	})
}

func TestDatasetAddRows(t *testing.T) {
	t.Run("ZeroInitAndGrowthPreservesContents", func(t *testing.T) {
		d := testDataset(t)

		require.NoError(t, d.AddScalarColumn("uid", dtype.U64))
		require.NoError(t, d.AddArrayColumn("coords", dtype.F32, []int{2}))
		require.NoError(t, d.AddScalarColumn("name", dtype.Str))
		require.NoError(t, d.AddRows(3))
		require.Equal(t, uint64(3), d.NumRows())

		for i := uint64(0); i < 3; i++ {
			row, err := d.Row(i)
			require.NoError(t, err)
			require.NoError(t, row.SetUint64("uid", 100+i))
			require.NoError(t, row.SetString("name", "n"+string(rune('a'+i))))
		}
		v, err := d.View("coords")
		require.NoError(t, err)
		coords, err := v.Float32s()
		require.NoError(t, err)
		require.Len(t, coords, 6)
		for i := range coords {
			coords[i] = float32(i) + 0.5
		}

		require.NoError(t, d.AddRows(5))
		require.Equal(t, uint64(8), d.NumRows())

		for i := uint64(0); i < 3; i++ {
			row, err := d.Row(i)
			require.NoError(t, err)
			got, err := row.Uint64("uid")
			require.NoError(t, err)
			assert.Equal(t, 100+i, got)
			s, err := row.String("name")
			require.NoError(t, err)
			assert.Equal(t, "n"+string(rune('a'+i)), s)
		}
		v, err = d.View("coords")
		require.NoError(t, err)
		coords, err = v.Float32s()
		require.NoError(t, err)
		require.Len(t, coords, 16)
		for i := 0; i < 6; i++ {
			assert.Equal(t, float32(i)+0.5, coords[i])
		}
		for i := 6; i < 16; i++ {
			assert.Zero(t, coords[i])
		}
		for i := uint64(3); i < 8; i++ {
			s, err := d.GetString("name", i)
			require.NoError(t, err)
			assert.Equal(t, "", s)
		}
	})

	t.Run("ZeroRowsIsNoop", func(t *testing.T) {
		d := testDataset(t)
		require.NoError(t, d.AddScalarColumn("x", dtype.F64))
		require.NoError(t, d.AddRows(4))

		v, err := d.View("x")
		require.NoError(t, err)
		require.NoError(t, d.AddRows(0))
		assert.True(t, v.Valid())
		assert.Equal(t, uint64(4), d.NumRows())
	})

	t.Run("RowsBeforeColumns", func(t *testing.T) {
		d := testDataset(t)

		require.NoError(t, d.AddRows(10))
		assert.Equal(t, uint64(10), d.NumRows())

		require.NoError(t, d.AddScalarColumn("late", dtype.I64))
		row, err := d.Row(9)
		require.NoError(t, err)
		got, err := row.Int64("late")
		require.NoError(t, err)
		assert.Zero(t, got)
	})

	t.Run("GrowthWithinCapacityKeepsZeroTail", func(t *testing.T) {
		d := testDataset(t)
		require.NoError(t, d.AddScalarColumn("x", dtype.U8))

		require.NoError(t, d.AddRows(1))
		require.NoError(t, d.AddRows(1)) // fits in over-allocated capacity
		v, err := d.View("x")
		require.NoError(t, err)
		b, err := v.Bytes()
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 0}, b)
	})
}

func TestDatasetCopy(t *testing.T) {
	t.Run("Independence", func(t *testing.T) {
		d := testDataset(t)

		require.NoError(t, d.AddScalarColumn("uid", dtype.U64))
		require.NoError(t, d.AddScalarColumn("name", dtype.Str))
		require.NoError(t, d.AddRows(2))
		row, err := d.Row(0)
		require.NoError(t, err)
		require.NoError(t, row.SetUint64("uid", 7))
		require.NoError(t, d.SetString("name", 0, "orig"))

		cp, err := d.Copy()
		require.NoError(t, err)
		defer cp.Release()

		assert.Equal(t, d.NumRows(), cp.NumRows())
		assert.Equal(t, d.Keys(), cp.Keys())

		crow, err := cp.Row(0)
		require.NoError(t, err)
		require.NoError(t, crow.SetUint64("uid", 99))
		require.NoError(t, cp.SetString("name", 0, "changed"))

		got, err := row.Uint64("uid")
		require.NoError(t, err)
		assert.Equal(t, uint64(7), got)
		s, err := d.GetString("name", 0)
		require.NoError(t, err)
		assert.Equal(t, "orig", s)
	})

	t.Run("CopyIsTight", func(t *testing.T) {
		d := testDataset(t)

		require.NoError(t, d.AddScalarColumn("x", dtype.F64))
		require.NoError(t, d.AddScalarColumn("s", dtype.Str))
		require.NoError(t, d.AddRows(1))
		// Repeated growth and string churn leave slack and pool holes.
		for i := 0; i < 6; i++ {
			require.NoError(t, d.AddRows(3))
			require.NoError(t, d.SetString("s", 0, "value-with-some-length"))
		}

		cp, err := d.Copy()
		require.NoError(t, err)
		defer cp.Release()

		assert.LessOrEqual(t, cp.TotalSize(), d.TotalSize())
		s, err := cp.GetString("s", 0)
		require.NoError(t, err)
		assert.Equal(t, "value-with-some-length", s)
	})

	t.Run("CopyOfEmpty", func(t *testing.T) {
		d := testDataset(t)

		cp, err := d.Copy()
		require.NoError(t, err)
		defer cp.Release()

		assert.Zero(t, cp.NumRows())
		assert.Zero(t, cp.NumColumns())
		assert.Zero(t, cp.TotalSize())
	})
}

func TestDatasetStrings(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		d := testDataset(t)
		require.NoError(t, d.AddScalarColumn("s", dtype.Str))
		require.NoError(t, d.AddRows(4))

		values := []string{"", "ascii", "embedded\x00nul\x00bytes", "\xff\xfe\x00"}
		for i, val := range values {
			require.NoError(t, d.SetString("s", uint64(i), val))
		}
		for i, want := range values {
			got, err := d.GetString("s", uint64(i))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("ReplaceLeavesHoles", func(t *testing.T) {
		d := testDataset(t)
		require.NoError(t, d.AddScalarColumn("s", dtype.Str))
		require.NoError(t, d.AddRows(1))

		require.NoError(t, d.SetString("s", 0, "first value"))
		require.NoError(t, d.SetString("s", 0, "second"))

		got, err := d.GetString("s", 0)
		require.NoError(t, err)
		assert.Equal(t, "second", got)

		c, err := d.col("s")
		require.NoError(t, err)
		assert.True(t, c.pool.fragmented())
	})

	t.Run("KindMismatch", func(t *testing.T) {
		d := testDataset(t)
		require.NoError(t, d.AddScalarColumn("x", dtype.F32))
		require.NoError(t, d.AddRows(1))

		_, err := d.GetString("x", 0)
		assert.ErrorIs(t, err, ErrColumnKindMismatch)

		err = d.SetString("x", 0, "nope")
		require.ErrorIs(t, err, ErrColumnKindMismatch)

		var km *ErrKindMismatch
		require.ErrorAs(t, err, &km)
		assert.Equal(t, "setstr", km.Op)
		assert.Equal(t, "x", km.Key)
		assert.Equal(t, dtype.F32, km.Type)
	})

	t.Run("RowOutOfRange", func(t *testing.T) {
		d := testDataset(t)
		require.NoError(t, d.AddScalarColumn("s", dtype.Str))
		require.NoError(t, d.AddRows(3))

		_, err := d.GetString("s", 3)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
		assert.ErrorIs(t, d.SetString("s", 3, "x"), ErrIndexOutOfRange)
	})
}

func TestDatasetDropColumn(t *testing.T) {
	d := testDataset(t)

	require.NoError(t, d.AddScalarColumn("a", dtype.U64))
	require.NoError(t, d.AddScalarColumn("b", dtype.Str))
	require.NoError(t, d.AddScalarColumn("c", dtype.F32))
	require.NoError(t, d.AddRows(2))

	before := d.TotalSize()
	require.NoError(t, d.DropColumn("b"))

	assert.Equal(t, []string{"a", "c"}, d.Keys())
	assert.Less(t, d.TotalSize(), before)
	_, err := d.ColumnType("b")
	assert.ErrorIs(t, err, ErrUnknownColumn)

	// Remaining columns stay addressable through the rebuilt directory.
	v, err := d.View("c")
	require.NoError(t, err)
	_, err = v.Float32s()
	require.NoError(t, err)

	assert.ErrorIs(t, d.DropColumn("b"), ErrUnknownColumn)
}

func TestDatasetRenameColumn(t *testing.T) {
	d := testDataset(t)

	require.NoError(t, d.AddScalarColumn("a", dtype.U64))
	require.NoError(t, d.AddScalarColumn("b", dtype.U64))
	require.NoError(t, d.AddRows(1))
	row, err := d.Row(0)
	require.NoError(t, err)
	require.NoError(t, row.SetUint64("a", 41))

	require.NoError(t, d.RenameColumn("a", "z"))
	assert.Equal(t, []string{"z", "b"}, d.Keys())

	got, err := row.Uint64("z")
	require.NoError(t, err)
	assert.Equal(t, uint64(41), got)

	_, err = d.ColumnType("a")
	assert.ErrorIs(t, err, ErrUnknownColumn)

	assert.ErrorIs(t, d.RenameColumn("missing", "q"), ErrUnknownColumn)
	assert.ErrorIs(t, d.RenameColumn("z", "b"), ErrDuplicateColumn)
	assert.NoError(t, d.RenameColumn("z", "z"))
}

func TestDatasetClosed(t *testing.T) {
	d := NewRegistry().NewDataset()
	require.NoError(t, d.AddScalarColumn("x", dtype.F64))
	require.NoError(t, d.AddRows(1))

	d.Release()
	d.Release() // idempotent

	assert.ErrorIs(t, d.AddRows(1), ErrDatasetClosed)
	assert.ErrorIs(t, d.AddScalarColumn("y", dtype.F32), ErrDatasetClosed)
	_, err := d.View("x")
	assert.ErrorIs(t, err, ErrDatasetClosed)
	_, err = d.GetString("x", 0)
	assert.ErrorIs(t, err, ErrDatasetClosed)
	_, err = d.Copy()
	assert.ErrorIs(t, err, ErrDatasetClosed)
	_, err = d.Defrag(true)
	assert.ErrorIs(t, err, ErrDatasetClosed)

	if !errors.Is(d.DropColumn("x"), ErrDatasetClosed) {
		t.Fatalf("DropColumn after Release: want ErrDatasetClosed")
	}
}
