package engine

import (
	"bytes"

	"github.com/atline-io/atline/at"
)

// digestContext is the short-lived in-flight knowledge the digester needs
// to classify lines: whether a response is expected, the command ident for
// information-line correlation, the expected echo text, a declared data
// block length and the URC precedence rule.
type digestContext struct {
	// awaiting is true while a command response is expected.
	awaiting bool
	// echo is the expected echoed command line (without terminator);
	// nil when no echo is pending.
	echo []byte
	// ident correlates information lines with the in-flight command.
	ident string
	// dataLen > 0 switches the digester to raw block mode: the next
	// dataLen bytes are one data frame, not line-scanned.
	dataLen int
	// prompt is true when the in-flight command expects the "> " prompt.
	prompt bool
	// urcFirst routes URC-shaped lines that do not match ident to the
	// URC sink even when they also match the final error grammar.
	urcFirst bool
}

// digester classifies buffered bytes into frames. It holds only the
// configured terminator; all per-command state arrives in the context.
type digester struct {
	term []byte
}

// digest scans data for one complete frame. It returns the classified
// frame and the number of bytes consumed, or consumed == 0 when no
// complete frame is extractable yet. Incomplete data is never an error.
func (d digester) digest(data []byte, ctx digestContext) (at.Frame, int) {
	if len(data) == 0 {
		return at.Frame{}, 0
	}

	// Declared-length block mode: raw bytes, not line-scanned.
	if ctx.dataLen > 0 {
		if len(data) < ctx.dataLen {
			return at.Frame{}, 0
		}
		block := make([]byte, ctx.dataLen)
		copy(block, data)
		return at.Frame{Kind: at.KindData, Data: block}, ctx.dataLen
	}

	// The prompt arrives without a terminator.
	if ctx.awaiting && ctx.prompt && bytes.HasPrefix(data, []byte(at.Prompt)) {
		return at.Frame{Kind: at.KindPrompt, Line: at.Prompt}, len(at.Prompt)
	}

	i := bytes.Index(data, d.term)
	if i < 0 {
		return at.Frame{}, 0
	}
	consumed := i + len(d.term)
	line := string(data[:i])

	if line == "" {
		return at.Frame{Kind: at.KindNone}, consumed
	}

	if ctx.echo != nil && bytes.Equal(data[:i], ctx.echo) {
		return at.Frame{Kind: at.KindEcho, Line: line}, consumed
	}

	// Per-command precedence for the inherent error-grammar/URC overlap
	// of lines shaped like "+NAME: ...".
	if ctx.awaiting && ctx.urcFirst && at.IsURCShaped(line) && !at.MatchesIdent(line, ctx.ident) {
		return at.Frame{Kind: at.KindURC, Line: line}, consumed
	}

	if ctx.awaiting {
		if at.IsFinalOK(line) {
			return at.Frame{Kind: at.KindOK, Line: line}, consumed
		}
		if f, ok := at.ParseFinalError(line); ok {
			return f, consumed
		}
		if at.MatchesIdent(line, ctx.ident) {
			return at.Frame{Kind: at.KindInfo, Line: line}, consumed
		}
		if at.IsURCShaped(line) {
			return at.Frame{Kind: at.KindURC, Line: line}, consumed
		}
		// Freeform output of the in-flight command (e.g. ATI text).
		return at.Frame{Kind: at.KindInfo, Line: line}, consumed
	}

	// Idle. Final result codes correlate to nothing: they are stale
	// leftovers, consumed without being delivered anywhere.
	if at.IsFinalOK(line) {
		return at.Frame{Kind: at.KindNone, Line: line}, consumed
	}
	if _, ok := at.ParseFinalError(line); ok {
		return at.Frame{Kind: at.KindNone, Line: line}, consumed
	}
	return at.Frame{Kind: at.KindURC, Line: line}, consumed
}
