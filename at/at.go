// Package at defines the wire-level grammar of the AT command protocol:
// terminal control sequences, final result codes, error result grammars
// and the frame classification shared by the engine.
package at

const (
	// Terminal Control
	CRLF   = "\r\n"
	Prompt = "> "
	CtrlZ  = "\x1a"

	// Final Result Codes
	OK         = "OK"
	ERROR      = "ERROR"
	NoCarrier  = "NO CARRIER"
	NoDialtone = "NO DIALTONE"
	Busy       = "BUSY"
	NoAnswer   = "NO ANSWER"
	CmeError   = "+CME ERROR:"
	CmsError   = "+CMS ERROR:"
)

// FrameKind identifies the protocol role of a classified frame.
type FrameKind int

const (
	// KindNone marks a frame that carries no protocol content, such as
	// a blank separator line. The engine consumes and ignores it.
	KindNone FrameKind = iota
	// KindEcho is the peripheral repeating the command line it was sent.
	KindEcho
	// KindInfo is an information line belonging to the in-flight command
	// (e.g. "+CSQ: 15,99" while AT+CSQ is pending).
	KindInfo
	// KindOK is the successful final result code.
	KindOK
	// KindError is a failure final result code, optionally carrying a
	// CME/CMS numeric code or textual description.
	KindError
	// KindPrompt is the "> " data input prompt.
	KindPrompt
	// KindData is a raw data block of a declared length.
	KindData
	// KindURC is an unsolicited result code.
	KindURC
)

func (k FrameKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindEcho:
		return "echo"
	case KindInfo:
		return "info"
	case KindOK:
		return "ok"
	case KindError:
		return "error"
	case KindPrompt:
		return "prompt"
	case KindData:
		return "data"
	case KindURC:
		return "urc"
	default:
		return "invalid"
	}
}

// NoCode is the Frame.Code value when an error line carried no numeric code.
const NoCode = -1

// Frame is one classified unit extracted from the receive stream.
type Frame struct {
	Kind FrameKind
	// Line is the raw line text for Echo, Info, Error and URC frames.
	Line string
	// Code is the numeric CME/CMS error code, or NoCode.
	Code int
	// Text is the textual CME/CMS error description, if any.
	Text string
	// Data is the payload for KindData frames.
	Data []byte
}
