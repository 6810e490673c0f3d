package engine

import "time"

// Ticks is a monotonic millisecond counter. It is deliberately a fixed
// width unsigned integer: elapsed-time arithmetic uses unsigned
// subtraction and therefore stays correct across counter wraparound.
type Ticks uint32

// Clock supplies monotonic ticks for timeout measurement. The engine never
// assumes wall-clock time.
type Clock interface {
	Now() Ticks
}

// elapsed returns the time passed since start, robust to tick wraparound.
func elapsed(c Clock, start Ticks) time.Duration {
	return time.Duration(c.Now()-start) * time.Millisecond
}

type systemClock struct {
	base time.Time
}

// NewSystemClock adapts the host's monotonic clock to the tick interface.
func NewSystemClock() Clock {
	return systemClock{base: time.Now()}
}

func (c systemClock) Now() Ticks {
	return Ticks(time.Since(c.base) / time.Millisecond)
}
