package codec

import (
	"strconv"
	"strings"
)

// Field is one parsed response field.
type Field struct {
	// Raw is the field text as received, unescaped for quoted strings.
	Raw string
	// Quoted reports whether the field arrived as a quoted string.
	Quoted bool

	num   int64
	isNum bool
}

// Int returns the field's integer value. Valid only for fields validated
// as FieldInt during deserialization; ok is false otherwise.
func (f Field) Int() (int64, bool) { return f.num, f.isNum }

// String returns the field text, unescaped.
func (f Field) String() string { return f.Raw }

// splitFields splits a comma-separated AT parameter list, honoring quoted
// strings with backslash escapes. Whitespace around unquoted fields is
// trimmed; the conventional space after each comma is not significant.
func splitFields(s string) ([]Field, error) {
	var fields []Field
	if strings.TrimSpace(s) == "" {
		return fields, nil
	}

	for i := 0; i < len(s); {
		// skip leading spaces of the field
		for i < len(s) && s[i] == ' ' {
			i++
		}
		if i >= len(s) {
			break
		}

		if s[i] == '"' {
			var sb strings.Builder
			i++
			closed := false
			for i < len(s) {
				c := s[i]
				if c == '\\' && i+1 < len(s) {
					sb.WriteByte(s[i+1])
					i += 2
					continue
				}
				if c == '"' {
					closed = true
					i++
					break
				}
				sb.WriteByte(c)
				i++
			}
			if !closed {
				return nil, &ParseError{Field: len(fields), Fragment: s, Reason: "unterminated quoted string"}
			}
			fields = append(fields, Field{Raw: sb.String(), Quoted: true})
			// skip to the separating comma
			for i < len(s) && s[i] == ' ' {
				i++
			}
			if i < len(s) {
				if s[i] != ',' {
					return nil, &ParseError{Field: len(fields) - 1, Fragment: s[i:], Reason: "trailing data after quoted string"}
				}
				i++
			}
			continue
		}

		end := strings.IndexByte(s[i:], ',')
		var raw string
		if end < 0 {
			raw = s[i:]
			i = len(s)
		} else {
			raw = s[i : i+end]
			i += end + 1
		}
		fields = append(fields, Field{Raw: strings.TrimRight(raw, " ")})
	}

	// a trailing comma denotes one final empty field
	if strings.HasSuffix(strings.TrimRight(s, " "), ",") {
		fields = append(fields, Field{})
	}

	return fields, nil
}

// parseInt enforces strict, locale-free decimal syntax: an optional minus
// sign followed by ASCII digits only.
func parseInt(s string) (int64, bool) {
	body := s
	if strings.HasPrefix(body, "-") {
		body = body[1:]
	}
	if body == "" {
		return 0, false
	}
	for i := 0; i < len(body); i++ {
		if body[i] < '0' || body[i] > '9' {
			return 0, false
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
