package dset

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/hupe1980/dset/dtype"
	"github.com/hupe1980/dset/internal/mem"
)

const (
	dumpMaxRows  = 32
	dumpMaxElems = 8
)

// DumpText writes a human-readable rendering of the dataset: a summary
// line, the schema in column order and a sample of at most 32 rows. It
// never mutates the dataset.
func (d *Dataset) DumpText(w io.Writer) error {
	if err := d.guard(); err != nil {
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "dataset: %d rows, %d columns, %d bytes\n", d.rows, len(d.cols), d.TotalSize())

	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	for _, c := range d.cols {
		fmt.Fprintf(tw, "  %s\t%s\n", c.key, columnTypeString(c))
	}
	tw.Flush()

	sample := d.rows
	if sample > dumpMaxRows {
		sample = dumpMaxRows
	}
	if sample > 0 {
		tw = tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
		fmt.Fprint(tw, "  row")
		for _, c := range d.cols {
			fmt.Fprintf(tw, "\t%s", c.key)
		}
		fmt.Fprintln(tw)
		for row := uint64(0); row < sample; row++ {
			fmt.Fprintf(tw, "  %d", row)
			for _, c := range d.cols {
				fmt.Fprintf(tw, "\t%s", d.cellString(c, row))
			}
			fmt.Fprintln(tw)
		}
		tw.Flush()
		if d.rows > sample {
			fmt.Fprintf(&sb, "  ... %d more rows\n", d.rows-sample)
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func columnTypeString(c *column) string {
	if c.rank() == 0 {
		return c.typ.String()
	}
	dims := make([]string, len(c.shape))
	for i, n := range c.shape {
		dims[i] = strconv.Itoa(n)
	}
	return c.typ.String() + "[" + strings.Join(dims, "x") + "]"
}

func (d *Dataset) cellString(c *column, row uint64) string {
	if c.isString() {
		return strconv.Quote(c.pool.get(c.offsets(d.rows)[row]))
	}
	start := int(row) * c.stride
	vals := cellValues(c.typ, c.data[start:start+c.stride])
	if c.rank() == 0 {
		return vals[0]
	}
	if len(vals) > dumpMaxElems {
		vals = append(vals[:dumpMaxElems:dumpMaxElems], "...")
	}
	return "[" + strings.Join(vals, " ") + "]"
}

func cellValues(t dtype.T, cell []byte) []string {
	switch t {
	case dtype.F32:
		return formatVals(mem.Reinterpret[float32](cell), func(v float32) string {
			return strconv.FormatFloat(float64(v), 'g', -1, 32)
		})
	case dtype.F64:
		return formatVals(mem.Reinterpret[float64](cell), func(v float64) string {
			return strconv.FormatFloat(v, 'g', -1, 64)
		})
	case dtype.C64:
		return formatVals(mem.Reinterpret[complex64](cell), func(v complex64) string {
			return strconv.FormatComplex(complex128(v), 'g', -1, 64)
		})
	case dtype.C128:
		return formatVals(mem.Reinterpret[complex128](cell), func(v complex128) string {
			return strconv.FormatComplex(v, 'g', -1, 128)
		})
	case dtype.I8:
		return formatVals(mem.Reinterpret[int8](cell), func(v int8) string {
			return strconv.FormatInt(int64(v), 10)
		})
	case dtype.I16:
		return formatVals(mem.Reinterpret[int16](cell), func(v int16) string {
			return strconv.FormatInt(int64(v), 10)
		})
	case dtype.I32:
		return formatVals(mem.Reinterpret[int32](cell), func(v int32) string {
			return strconv.FormatInt(int64(v), 10)
		})
	case dtype.I64:
		return formatVals(mem.Reinterpret[int64](cell), func(v int64) string {
			return strconv.FormatInt(v, 10)
		})
	case dtype.U8:
		return formatVals(cell, func(v byte) string {
			return strconv.FormatUint(uint64(v), 10)
		})
	case dtype.U16:
		return formatVals(mem.Reinterpret[uint16](cell), func(v uint16) string {
			return strconv.FormatUint(uint64(v), 10)
		})
	case dtype.U32:
		return formatVals(mem.Reinterpret[uint32](cell), func(v uint32) string {
			return strconv.FormatUint(uint64(v), 10)
		})
	case dtype.U64:
		return formatVals(mem.Reinterpret[uint64](cell), func(v uint64) string {
			return strconv.FormatUint(v, 10)
		})
	default:
		return []string{"?"}
	}
}

func formatVals[E any](vals []E, format func(E) string) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = format(v)
	}
	return out
}
