package codec

import "strconv"

type valueKind int

const (
	valueInt valueKind = iota
	valueString
	valueSym
)

// Value is one typed command parameter.
type Value struct {
	kind valueKind
	num  int64
	str  string
}

// Int is a decimal integer parameter.
func Int(v int64) Value { return Value{kind: valueInt, num: v} }

// String is a quoted string parameter. Interior quotes and backslashes
// are escaped on serialization.
func String(s string) Value { return Value{kind: valueString, str: s} }

// Sym is an unquoted textual parameter, used for enumerated values whose
// wire tag is a bare token.
func Sym(s string) Value { return Value{kind: valueSym, str: s} }

// encode appends the wire form of the value to dst.
func (v Value) encode(dst []byte) []byte {
	switch v.kind {
	case valueInt:
		return strconv.AppendInt(dst, v.num, 10)
	case valueString:
		dst = append(dst, '"')
		for i := 0; i < len(v.str); i++ {
			c := v.str[i]
			if c == '"' || c == '\\' {
				dst = append(dst, '\\')
			}
			dst = append(dst, c)
		}
		return append(dst, '"')
	default:
		return append(dst, v.str...)
	}
}
