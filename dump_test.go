package dset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/dset/dtype"
)

func TestDumpText(t *testing.T) {
	t.Run("SummarySchemaAndSample", func(t *testing.T) {
		d := testDataset(t)

		require.NoError(t, d.AddScalarColumn("uid", dtype.U64))
		require.NoError(t, d.AddArrayColumn("vec", dtype.F32, []int{2, 3}))
		require.NoError(t, d.AddScalarColumn("name", dtype.Str))
		require.NoError(t, d.AddRows(2))

		row, err := d.Row(0)
		require.NoError(t, err)
		require.NoError(t, row.SetUint64("uid", 17))
		require.NoError(t, row.SetString("name", "say \"hi\""))

		var sb strings.Builder
		require.NoError(t, d.DumpText(&sb))
		out := sb.String()

		assert.True(t, strings.HasPrefix(out, "dataset: 2 rows, 3 columns,"), out)
		assert.Contains(t, out, "uid")
		assert.Contains(t, out, "u64")
		assert.Contains(t, out, "f32[2x3]")
		assert.Contains(t, out, "str")
		assert.Contains(t, out, "17")
		assert.Contains(t, out, `"say \"hi\""`)
		assert.NotContains(t, out, "more rows")
	})

	t.Run("RowElision", func(t *testing.T) {
		d := testDataset(t)

		require.NoError(t, d.AddScalarColumn("n", dtype.I32))
		require.NoError(t, d.AddRows(50))

		var sb strings.Builder
		require.NoError(t, d.DumpText(&sb))
		out := sb.String()

		assert.Contains(t, out, "dataset: 50 rows, 1 columns,")
		assert.Contains(t, out, "... 18 more rows")
		// The sample stops at 32 rows, so row index 32 never prints.
		assert.NotContains(t, out, "\n  32")
	})

	t.Run("ArrayElision", func(t *testing.T) {
		d := testDataset(t)

		require.NoError(t, d.AddArrayColumn("wide", dtype.U8, []int{12}))
		require.NoError(t, d.AddRows(1))

		v, err := d.View("wide")
		require.NoError(t, err)
		bs, err := v.Uint8s()
		require.NoError(t, err)
		for i := range bs {
			bs[i] = byte(i + 1)
		}

		var sb strings.Builder
		require.NoError(t, d.DumpText(&sb))
		out := sb.String()

		assert.Contains(t, out, "[1 2 3 4 5 6 7 8 ...]")
		assert.NotContains(t, out, "9")
	})

	t.Run("Empty", func(t *testing.T) {
		d := testDataset(t)

		var sb strings.Builder
		require.NoError(t, d.DumpText(&sb))

		assert.Equal(t, "dataset: 0 rows, 0 columns, 0 bytes\n", sb.String())
	})

	t.Run("Closed", func(t *testing.T) {
		d := NewRegistry().NewDataset()
		d.Release()

		var sb strings.Builder
		assert.ErrorIs(t, d.DumpText(&sb), ErrDatasetClosed)
	})
}
