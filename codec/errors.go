package codec

import "fmt"

// ParseError reports a failure to decode a response field. It identifies
// the zero-based field index and the raw fragment that failed.
type ParseError struct {
	Field    int
	Fragment string
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse field %d (%q): %s", e.Field, e.Fragment, e.Reason)
}
