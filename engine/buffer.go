package engine

// Buffer is the fixed-capacity receive accumulator. It never grows past
// the capacity chosen at construction; overflow is reported, not absorbed,
// so the memory footprint of an engine instance is static.
type Buffer struct {
	data []byte
	n    int
}

// NewBuffer creates a buffer with the given fixed capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{data: make([]byte, capacity)}
}

// Append adds p to the buffer. It fails with ErrBufferOverflow, leaving
// the buffer unchanged, when the bytes would not fit.
func (b *Buffer) Append(p []byte) error {
	if b.n+len(p) > len(b.data) {
		return ErrBufferOverflow
	}
	copy(b.data[b.n:], p)
	b.n += len(p)
	return nil
}

// Bytes exposes the current contents for scanning without copying. The
// returned slice is invalidated by the next Append, Discard or Reset.
func (b *Buffer) Bytes() []byte { return b.data[:b.n] }

// Discard removes the first n bytes, shifting the remainder forward and
// preserving order.
func (b *Buffer) Discard(n int) {
	if n <= 0 {
		return
	}
	if n >= b.n {
		b.n = 0
		return
	}
	copy(b.data, b.data[n:b.n])
	b.n -= n
}

// Reset empties the buffer. Used for resynchronization after overflow.
func (b *Buffer) Reset() { b.n = 0 }

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int { return b.n }

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int { return len(b.data) }
