// Package transport defines the byte-stream boundary between the AT
// protocol engine and the physical link, and provides the serial port
// implementation plus test doubles.
package transport

import (
	"context"
	"io"
)

//go:generate go tool mockgen -source=transport.go -destination=mock_transport.go -package=transport

// Transport represents an established, bidirectional byte stream to an AT
// peripheral.
//
// A Transport is assumed to be already connected and ready for use. It
// provides the low-level I/O primitives required to send command lines and
// receive responses. Typical implementations include serial ports, TCP
// connections to emulators, or in-memory fakes used for testing. A Read
// returning zero bytes means "nothing new", not end-of-stream.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport to an AT peripheral.
//
// Dialer abstracts how the connection is created (serial port, TCP-based
// emulator, or test double) and is used during engine construction only.
// Once a Transport is obtained, the Dialer is no longer needed.
type Dialer interface {
	// Dial creates and returns a connected Transport. It may perform
	// blocking operations and should respect cancellation and deadlines
	// provided by the context.
	Dial(ctx context.Context) (Transport, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context) (Transport, error)

func (f DialerFunc) Dial(ctx context.Context) (Transport, error) { return f(ctx) }
