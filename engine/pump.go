package engine

import (
	"context"
	"errors"
	"io"
)

// readEvent carries one transport read outcome from the reader goroutine
// to the pump loop. Data and error travel on the same channel so a chunk
// received together with an error is ingested before the error surfaces.
type readEvent struct {
	data []byte
	err  error
}

// Pump is the receive loop. It must be the only reader of the transport:
// it reads available bytes and feeds them to Ingest until the context is
// cancelled, the transport reports EOF, or a read fails. Framing resyncs
// are recovered internally and do not stop the pump.
//
// Cancellation takes effect immediately for the pump itself; the internal
// reader goroutine is blocked in Read and exits when that read returns,
// which for a serial port means the next byte or the port being closed.
//
// Typical usage mirrors command dispatch running elsewhere:
//
//	go func() { _ = eng.Pump(ctx) }()
//	resp, err := eng.Send(ctx, cmd)
func (e *Engine) Pump(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.pumping {
		e.mu.Unlock()
		return ErrPumpRunning
	}
	e.pumping = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.pumping = false
		e.mu.Unlock()
	}()

	events := make(chan readEvent, 8)
	go func() {
		buf := make([]byte, 256)
		for {
			n, err := e.transport.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case events <- readEvent{data: chunk}:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					err = &TransportError{Op: "read", Err: err}
				}
				select {
				case events <- readEvent{err: err}:
				case <-ctx.Done():
				}
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev := <-events:
			if ev.err != nil {
				// A dead receive path can never complete the
				// outstanding command.
				e.mu.Lock()
				e.failPendingLocked(ev.err)
				e.mu.Unlock()
				return ev.err
			}
			if err := e.Ingest(ev.data); err != nil && !errors.Is(err, ErrFraming) {
				return err
			}
		}
	}
}
