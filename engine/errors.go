package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDialer is returned when an Engine is constructed without a Dialer.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrBusy is returned by Send when a command is already in flight.
	// The protocol is strictly one command at a time; overlapping sends
	// are rejected, never queued.
	ErrBusy = errors.New("command already pending")

	// ErrTimeout is returned when no final result code arrived before the
	// command's deadline. The engine is Idle again afterwards.
	ErrTimeout = errors.New("command timeout")

	// ErrFraming is returned when the receive buffer overflowed before a
	// complete frame was found and the engine resynchronized by
	// discarding all buffered bytes. The engine remains usable.
	ErrFraming = errors.New("framing lost, receive buffer resynchronized")

	// ErrBufferOverflow is returned by Buffer.Append when the bytes would
	// exceed the fixed capacity.
	ErrBufferOverflow = errors.New("receive buffer overflow")

	// ErrClosed is returned when an operation is attempted on a closed
	// engine.
	ErrClosed = errors.New("engine closed")

	// ErrAlreadyClosed is returned when Close is called twice.
	ErrAlreadyClosed = errors.New("engine already closed")

	// ErrPumpRunning is returned when Pump is called while another Pump
	// is active. There must be exactly one reader of the transport.
	ErrPumpRunning = errors.New("pump already running")
)

// TransportError wraps a transport failure, identifying the operation
// ("write", "read", "short write") that caused it.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
