// Package dict implements the inline attribute dictionary: a closed set of
// (name, type) -> value records packed into one resizable byte buffer so
// that dictionaries can be copied, pooled, and handed off cheaply.
package dict

// Type identifies the on-buffer representation of an attribute record. A
// value at or below ShorthandBase names one of the fixed base types below;
// anything strictly greater names a well-known (name, base type) pair in
// the Shorts table (see shorts.go).
type Type uint8

// Base types. End is not a storable attribute type: it is the single-byte
// terminator that always closes the used prefix of a dictionary buffer.
const (
	TypeEnd Type = iota
	TypeOpaque
	TypeString
	TypeVoid
	TypeBool
	TypeSmallUnsigned
	TypeSmallInt
	TypeUnsigned
	TypeInt
	TypeRational
	TypeFloat

	// ShorthandBase is the sentinel: any Type strictly greater than this
	// names a shorthand code, not a base type.
	ShorthandBase Type = 0x80
)

// fixedSize gives the value size in bytes for base types with a constant
// footprint. Opaque and String are variable-length and absent here.
var fixedSize = map[Type]int{
	TypeVoid:          0,
	TypeBool:          1,
	TypeSmallUnsigned: 1,
	TypeSmallInt:      1,
	TypeUnsigned:      8,
	TypeInt:           8,
	TypeRational:      16,
	TypeFloat:         8,
}

// FixedSize reports the constant value size for base type t and whether t
// has one. Opaque, String, and End never do.
func FixedSize(t Type) (int, bool) {
	n, ok := fixedSize[t]
	return n, ok
}

// IsShorthand reports whether t names a Shorts table entry rather than a
// base type.
func (t Type) IsShorthand() bool {
	return t > ShorthandBase
}

func (t Type) String() string {
	switch t {
	case TypeEnd:
		return "end"
	case TypeOpaque:
		return "opaque"
	case TypeString:
		return "string"
	case TypeVoid:
		return "void"
	case TypeBool:
		return "bool"
	case TypeSmallUnsigned:
		return "small_unsigned"
	case TypeSmallInt:
		return "small_int"
	case TypeUnsigned:
		return "unsigned"
	case TypeInt:
		return "int"
	case TypeRational:
		return "rational"
	case TypeFloat:
		return "float"
	}
	if t.IsShorthand() {
		if name, base, ok := Name(t); ok {
			return "shorthand(" + name + "," + base.String() + ")"
		}
	}
	return "unknown"
}

// Rational is the wire representation of a RATIONAL attribute: two
// big-endian 8-byte integers, numerator over denominator.
type Rational struct {
	Num int64
	Den int64
}
