package transport

import (
	"context"
	"io"
	"sync"
)

// TestTransport is a test helper that simulates a blocking byte stream
// using channels. Reads block until data is queued with Feed, the way a
// real serial port would, and everything written is captured for
// inspection.
type TestTransport struct {
	mu       sync.Mutex
	readChan chan []byte
	written  [][]byte
	closed   bool
}

// NewTestTransport creates a new test transport. Exported for use in the
// engine's tests.
func NewTestTransport() *TestTransport {
	return &TestTransport{
		readChan: make(chan []byte, 16),
	}
}

// Dial lets a TestTransport stand in as its own Dialer.
func (t *TestTransport) Dial(ctx context.Context) (Transport, error) {
	return t, nil
}

func (t *TestTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.ErrClosedPipe
	}
	t.written = append(t.written, append([]byte(nil), p...))
	return len(p), nil
}

func (t *TestTransport) Read(p []byte) (int, error) {
	data, ok := <-t.readChan
	if !ok {
		return 0, io.EOF
	}
	return copy(p, data), nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.readChan)
	return nil
}

// Feed queues data to be read by the transport, simulating bytes arriving
// from the peripheral.
func (t *TestTransport) Feed(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.readChan <- []byte(data)
	}
}

// Written returns a copy of everything written so far, in write order.
func (t *TestTransport) Written() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.written))
	copy(out, t.written)
	return out
}
