package codec

import (
	"strings"

	"github.com/atline-io/atline/at"
)

// Response is the typed value decoded from a successful command response.
type Response struct {
	// Fields are the positional values of the information line, validated
	// against the command's grammar (GrammarLine, GrammarData).
	Fields []Field
	// Lines are the raw information lines (GrammarLines, and kept for
	// diagnostics on the other grammars).
	Lines []string
	// Data is the raw data block payload (GrammarData).
	Data []byte
	// Prompt reports that the command resolved at the "> " prompt rather
	// than at a final result code.
	Prompt bool
}

// Int returns the validated integer value of field i.
func (r Response) Int(i int) (int64, bool) {
	if i < 0 || i >= len(r.Fields) {
		return 0, false
	}
	return r.Fields[i].Int()
}

// String returns the text of field i, or "" when absent.
func (r Response) String(i int) string {
	if i < 0 || i >= len(r.Fields) {
		return ""
	}
	return r.Fields[i].Raw
}

// Deserialize parses the information lines and data block collected for
// cmd into a typed Response, validating them against the command's
// response grammar. Malformed or unexpected trailing data yields a
// *ParseError; it is never dropped silently.
func Deserialize(cmd Command, lines []string, data []byte) (Response, error) {
	g := cmd.Response
	resp := Response{Lines: lines}

	switch g.Kind {
	case GrammarNone:
		if len(lines) > 0 && !g.Variadic {
			return Response{}, &ParseError{Field: 0, Fragment: lines[0], Reason: "unexpected response payload"}
		}
		return resp, nil

	case GrammarLines:
		return resp, nil

	case GrammarLine, GrammarData:
		prefix := g.prefix(cmd)
		body, found := "", false
		for _, line := range lines {
			if at.MatchesIdent(line, prefix) {
				body = strings.TrimLeft(line[len(prefix)+1:], " ")
				found = true
				break
			}
		}
		if !found {
			return Response{}, &ParseError{Field: 0, Fragment: strings.Join(lines, "\n"), Reason: "missing " + prefix + " information line"}
		}

		fields, err := splitFields(body)
		if err != nil {
			return Response{}, err
		}
		if err := validateFields(fields, g); err != nil {
			return Response{}, err
		}
		resp.Fields = fields
		if g.Kind == GrammarData {
			resp.Data = data
		}
		return resp, nil

	default:
		return Response{}, &ParseError{Field: 0, Fragment: "", Reason: "unknown response grammar"}
	}
}

func validateFields(fields []Field, g Grammar) error {
	required := len(g.Fields) - g.Optional
	if len(fields) < required {
		return &ParseError{Field: len(fields), Fragment: "", Reason: "missing required field"}
	}
	if len(fields) > len(g.Fields) && !g.Variadic {
		return &ParseError{Field: len(g.Fields), Fragment: fields[len(g.Fields)].Raw, Reason: "unexpected trailing field"}
	}

	for i := range fields {
		if i >= len(g.Fields) {
			break // variadic tail, accepted verbatim
		}
		f := &fields[i]
		switch g.Fields[i] {
		case FieldInt:
			if f.Quoted {
				return &ParseError{Field: i, Fragment: f.Raw, Reason: "expected integer, got quoted string"}
			}
			v, ok := parseInt(f.Raw)
			if !ok {
				return &ParseError{Field: i, Fragment: f.Raw, Reason: "invalid decimal integer"}
			}
			f.num, f.isNum = v, true
		case FieldString:
			if !f.Quoted {
				return &ParseError{Field: i, Fragment: f.Raw, Reason: "expected quoted string"}
			}
		case FieldSym:
			if f.Quoted {
				return &ParseError{Field: i, Fragment: f.Raw, Reason: "expected unquoted token"}
			}
		}
	}
	return nil
}

// DeclaredLength extracts the data block byte count announced by a
// GrammarData command's header line, identified by the grammar's
// LengthField index. ok is false when line is not the header line or the
// field is absent or malformed.
func DeclaredLength(cmd Command, line string) (int, bool) {
	g := cmd.Response
	if g.Kind != GrammarData {
		return 0, false
	}
	prefix := g.prefix(cmd)
	if !at.MatchesIdent(line, prefix) {
		return 0, false
	}
	fields, err := splitFields(strings.TrimLeft(line[len(prefix)+1:], " "))
	if err != nil || g.LengthField < 0 || g.LengthField >= len(fields) {
		return 0, false
	}
	v, ok := parseInt(fields[g.LengthField].Raw)
	if !ok || v < 0 {
		return 0, false
	}
	return int(v), true
}

// ParseURC splits an unsolicited result code line into its notification
// name and fields, e.g. "+UUSORD: 3,16" into "+UUSORD" and [3, 16].
// Integer-looking fields get their numeric value populated.
func ParseURC(line string) (string, []Field, error) {
	name := at.Ident(line)
	if name == line {
		// bare indicator such as RING
		return name, nil, nil
	}
	body := strings.TrimLeft(line[len(name)+1:], " ")
	fields, err := splitFields(body)
	if err != nil {
		return name, nil, err
	}
	for i := range fields {
		if fields[i].Quoted {
			continue
		}
		if v, ok := parseInt(fields[i].Raw); ok {
			fields[i].num, fields[i].isNum = v, true
		}
	}
	return name, fields, nil
}
