// Package codec converts typed AT commands into their wire text form and
// parses response text back into typed values. Commands carry a fixed
// descriptor of their expected response grammar; the codec dispatches on
// that descriptor rather than on reflection.
package codec

import (
	"time"

	"github.com/atline-io/atline/at"
)

// CommandKind selects the syntactic form of the command line.
type CommandKind int

const (
	// KindExecute issues the bare command: AT+NAME.
	KindExecute CommandKind = iota
	// KindRead issues the read form: AT+NAME?
	KindRead
	// KindWrite issues the write form: AT+NAME=<args>.
	KindWrite
	// KindTest issues the test form: AT+NAME=?
	KindTest
)

// Command is one AT command plus its expected response shape. It is
// constructed by the caller and consumed by the engine for a single
// send/response cycle.
type Command struct {
	// Name is the command body following "AT", e.g. "+CSQ" or "I".
	Name string
	// Kind selects execute, read, write or test form.
	Kind CommandKind
	// Args are the write-form parameters, in positional order. Absent
	// trailing optionals are simply not included; the serializer never
	// emits empty placeholders.
	Args []Value
	// Response describes the expected response grammar.
	Response Grammar
	// Timeout overrides the engine's default command timeout when > 0.
	Timeout time.Duration
	// Prompt marks a two-stage command: Send resolves when the "> "
	// prompt arrives and the payload is transmitted with SendRaw.
	Prompt bool
	// URCFirst selects the precedence when a received line matches both
	// the final error grammar and the URC shape while this command is
	// pending. By default the error grammar wins. With URCFirst set, a
	// URC-shaped line whose ident differs from this command's is routed
	// to the URC sink instead. This ambiguity is inherent to AT dialects
	// and therefore decided per command.
	URCFirst bool
}

// Ident returns the identifier used to correlate information lines with
// this command, e.g. "+CSQ" for Name "+CSQ=..." variants.
func (c Command) Ident() string { return at.Ident(c.Name) }

// GrammarKind tags the expected response payload shape.
type GrammarKind int

const (
	// GrammarNone expects no payload, only the final result code.
	GrammarNone GrammarKind = iota
	// GrammarLine expects a single information line with positional
	// typed fields.
	GrammarLine
	// GrammarLines collects all information lines verbatim (used for
	// freeform responses such as ATI identification text).
	GrammarLines
	// GrammarData expects an information header line followed by a raw
	// data block whose byte count is announced by one of the header
	// fields.
	GrammarData
)

// FieldType is the expected type of one positional response field.
type FieldType int

const (
	// FieldInt is a strict decimal integer.
	FieldInt FieldType = iota
	// FieldString is a quoted string with backslash escaping.
	FieldString
	// FieldSym is an unquoted textual token (e.g. "READY").
	FieldSym
)

// Grammar describes how a command's response payload is parsed.
type Grammar struct {
	Kind GrammarKind
	// Prefix is the expected information line ident. Empty means the
	// command's own ident.
	Prefix string
	// Fields are the positional field types of the information line.
	Fields []FieldType
	// Optional is the number of trailing Fields that may be absent.
	Optional int
	// Variadic permits unknown trailing fields beyond Fields. Without
	// it, trailing data is a parse error, never silently dropped.
	Variadic bool
	// LengthField is the index of the header field announcing the data
	// block byte count (GrammarData only).
	LengthField int
}

// prefix resolves the information line ident the grammar correlates on.
func (g Grammar) prefix(cmd Command) string {
	if g.Prefix != "" {
		return g.Prefix
	}
	return cmd.Ident()
}
