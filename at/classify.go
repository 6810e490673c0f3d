package at

import (
	"strconv"
	"strings"
)

// CMEError indicates a +CME ERROR final result. The value is the error
// value in string form, numeric or textual depending on the peripheral's
// error reporting configuration (AT+CMEE).
type CMEError string

func (e CMEError) Error() string { return "CME error: " + string(e) }

// CMSError indicates a +CMS ERROR final result.
type CMSError string

func (e CMSError) Error() string { return "CMS error: " + string(e) }

// ResultError indicates a plain final error result such as ERROR or
// NO CARRIER, which carries no code.
type ResultError string

func (e ResultError) Error() string { return string(e) }

// IsFinalOK reports whether line is the successful final result code.
func IsFinalOK(line string) bool { return line == OK }

// ParseFinalError matches line against the final error grammar. On a match
// it returns a KindError frame carrying the numeric code (or NoCode) and
// textual description extracted from the line.
func ParseFinalError(line string) (Frame, bool) {
	f := Frame{Kind: KindError, Line: line, Code: NoCode}

	switch line {
	case ERROR, NoCarrier, NoDialtone, Busy, NoAnswer:
		return f, true
	}

	var value string
	switch {
	case strings.HasPrefix(line, CmeError):
		value = strings.TrimSpace(line[len(CmeError):])
	case strings.HasPrefix(line, CmsError):
		value = strings.TrimSpace(line[len(CmsError):])
	default:
		return Frame{}, false
	}

	if code, err := strconv.Atoi(value); err == nil {
		f.Code = code
	} else {
		f.Text = value
	}
	return f, true
}

// FinalError converts a KindError frame into the error value surfaced to
// callers: CMEError, CMSError or ResultError depending on the line grammar.
func FinalError(f Frame) error {
	value := f.Text
	if f.Code != NoCode {
		value = strconv.Itoa(f.Code)
	}
	switch {
	case strings.HasPrefix(f.Line, CmeError):
		return CMEError(value)
	case strings.HasPrefix(f.Line, CmsError):
		return CMSError(value)
	default:
		return ResultError(f.Line)
	}
}

// IsURCShaped reports whether line has the notification shape: a '+'
// followed by a name and a colon (e.g. "+UUSORD: 3,16"), or is the RING
// indicator. Shape alone does not decide routing; a line matching the
// in-flight command's ident is an information line, not a URC.
func IsURCShaped(line string) bool {
	if line == "RING" {
		return true
	}
	if !strings.HasPrefix(line, "+") {
		return false
	}
	i := strings.IndexByte(line, ':')
	return i > 1
}

// Ident returns the identifier component of a command or response line:
// the section before any '=', '?' or ':'. It is the key used to correlate
// information lines with the in-flight command.
func Ident(line string) string {
	if i := strings.IndexAny(line, "=?:"); i >= 0 {
		return line[:i]
	}
	return line
}

// MatchesIdent reports whether an information line belongs to the command
// with the given ident, i.e. starts with "<ident>:".
func MatchesIdent(line, ident string) bool {
	return ident != "" && strings.HasPrefix(line, ident+":")
}
