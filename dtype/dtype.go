package dtype

import "fmt"

// T is the element type tag of a dataset column. The tag values form a
// closed, stable enumeration: they are part of the column-type contract
// consumed by external callers and serialized streams, and must never be
// renumbered.
type T uint8

const (
	// Invalid is the zero tag. It never names a real element type.
	Invalid T = 0

	F32  T = 1 // float32
	F64  T = 2 // float64
	C64  T = 3 // complex64 (two float32)
	C128 T = 4 // complex128 (two float64)
	I8   T = 5
	I16  T = 6
	I32  T = 7
	I64  T = 8
	U8   T = 9
	U16  T = 10
	U32  T = 11
	U64  T = 12

	// Str marks a string column. String cells live in the column's pool;
	// the column buffer itself holds one 64-bit pool reference per row.
	Str T = 13
)

const maxTag = Str

// info is indexed by tag.
var info = [maxTag + 1]struct {
	name  string
	size  int
	align int
}{
	Invalid: {"invalid", 0, 1},
	F32:     {"f32", 4, 4},
	F64:     {"f64", 8, 8},
	C64:     {"c64", 8, 4},
	C128:    {"c128", 16, 8},
	I8:      {"i8", 1, 1},
	I16:     {"i16", 2, 2},
	I32:     {"i32", 4, 4},
	I64:     {"i64", 8, 8},
	U8:      {"u8", 1, 1},
	U16:     {"u16", 2, 2},
	U32:     {"u32", 4, 4},
	U64:     {"u64", 8, 8},
	Str:     {"str", 8, 8},
}

var byName = func() map[string]T {
	m := make(map[string]T, maxTag)
	for t := F32; t <= maxTag; t++ {
		m[info[t].name] = t
	}
	return m
}()

// Valid reports whether t is one of the supported element types.
func (t T) Valid() bool {
	return t >= F32 && t <= maxTag
}

// Size returns the width in bytes of one element in a column buffer.
// For Str this is the width of the per-row pool reference, not the
// string contents. Size is 0 for invalid tags.
func (t T) Size() int {
	if !t.Valid() {
		return 0
	}
	return info[t].size
}

// Align returns the natural alignment requirement of the element type.
func (t T) Align() int {
	if !t.Valid() {
		return 1
	}
	return info[t].align
}

// String returns the short type name ("f32", "i64", "str", ...).
func (t T) String() string {
	if !t.Valid() {
		return fmt.Sprintf("invalid(%d)", uint8(t))
	}
	return info[t].name
}

// IsNumeric reports whether t is a fixed-width numeric type (anything
// valid except Str).
func (t T) IsNumeric() bool {
	return t.Valid() && t != Str
}

// IsFloat reports whether t is a floating point type.
func (t T) IsFloat() bool {
	return t == F32 || t == F64
}

// IsComplex reports whether t is a complex type.
func (t T) IsComplex() bool {
	return t == C64 || t == C128
}

// IsSigned reports whether t is a signed integer type.
func (t T) IsSigned() bool {
	return t >= I8 && t <= I64
}

// IsUnsigned reports whether t is an unsigned integer type.
func (t T) IsUnsigned() bool {
	return t >= U8 && t <= U64
}

// IsString reports whether t marks a string column.
func (t T) IsString() bool {
	return t == Str
}

// FromTag converts a raw tag value (e.g. decoded from a stream) to a T,
// rejecting values outside the closed enumeration.
func FromTag(v uint8) (T, error) {
	t := T(v)
	if !t.Valid() {
		return Invalid, fmt.Errorf("dtype: unknown type tag %d", v)
	}
	return t, nil
}

// Lookup resolves a short type name to its tag.
func Lookup(name string) (T, error) {
	if t, ok := byName[name]; ok {
		return t, nil
	}
	return Invalid, fmt.Errorf("dtype: unknown type name %q", name)
}

// All returns every valid element type in tag order.
func All() []T {
	ts := make([]T, 0, maxTag)
	for t := F32; t <= maxTag; t++ {
		ts = append(ts, t)
	}
	return ts
}
