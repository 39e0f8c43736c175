package attr

import "strconv"

// Kind tags the type of a stored Value.
type Kind uint8

const (
	Invalid Kind = iota
	String
	Int
	Bool
	Bytes
	Any
)

// Value is a tagged union. Scalars are kept unboxed, arbitrary values are stored
// under the Any kind and retrieved via Lookup.
type Value struct {
	kind Kind
	str  string
	num  int64
	raw  []byte
	any  any
}

func StringValue(s string) Value {
	return Value{kind: String, str: s}
}

func IntValue(n int64) Value {
	return Value{kind: Int, num: n}
}

func BoolValue(b bool) Value {
	var n int64
	if b {
		n = 1
	}

	return Value{kind: Bool, num: n}
}

func BytesValue(b []byte) Value {
	return Value{kind: Bytes, raw: b}
}

func AnyValue(v any) Value {
	return Value{kind: Any, any: v}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsValid() bool {
	return v.kind != Invalid
}

func (v Value) String() (string, bool) {
	return v.str, v.kind == String
}

func (v Value) Int() (int64, bool) {
	return v.num, v.kind == Int
}

func (v Value) Bool() (bool, bool) {
	return v.num == 1, v.kind == Bool
}

func (v Value) Bytes() ([]byte, bool) {
	return v.raw, v.kind == Bytes
}

// Interface returns the stored value boxed into an interface, regardless of the kind.
func (v Value) Interface() any {
	switch v.kind {
	case String:
		return v.str
	case Int:
		return v.num
	case Bool:
		return v.num == 1
	case Bytes:
		return v.raw
	case Any:
		return v.any
	default:
		return nil
	}
}

// Format renders the value for logging purposes.
func (v Value) Format() string {
	switch v.kind {
	case String:
		return v.str
	case Int:
		return strconv.FormatInt(v.num, 10)
	case Bool:
		return strconv.FormatBool(v.num == 1)
	case Bytes:
		return string(v.raw)
	case Any:
		return "<any>"
	default:
		return "<invalid>"
	}
}
