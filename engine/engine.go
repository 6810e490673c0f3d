// Package engine implements the AT protocol engine: the receive-side
// framing state machine (fixed-capacity buffer plus digester), the
// one-command-at-a-time dispatcher with timeouts, and the routing of
// unsolicited result codes to a bounded sink.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/atline-io/atline/at"
	"github.com/atline-io/atline/codec"
	"github.com/atline-io/atline/internal/metrics"
	"github.com/atline-io/atline/transport"
)

// receive-side state machine
type state int

const (
	stateIdle state = iota
	stateAwaitingEcho
	stateAwaitingResponse
)

// pending is the state held while one command is outstanding: its
// descriptor, the expected echo text, the payload collected so far and the
// slot the terminal result is delivered to. At most one pending exists at
// any time.
type pending struct {
	cmd     codec.Command
	echo    []byte
	lines   []string
	data    []byte
	dataLen int
	done    chan result
}

type result struct {
	lines  []string
	data   []byte
	prompt bool
	err    error
}

// Engine owns the receive buffer, the digester and the pending-request
// slot. Byte ingress and command dispatch may run on different goroutines;
// the shared state is guarded by a single lock, which suffices because
// there is one producer of ingress bytes and at most one pending command.
type Engine struct {
	cfg       Config
	transport transport.Transport
	clock     Clock
	log       *slog.Logger

	mu      sync.Mutex
	st      state
	buf     *Buffer
	dig     digester
	pending *pending
	urcs    *urcSink
	closed  bool
	pumping bool
}

// New opens the transport through the configured dialer and returns a
// ready engine. The engine performs no initialization commands of its own;
// peripheral setup (echo mode, error verbosity) is driver policy.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.setDefaults()

	t, err := cfg.Dialer.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial transport: %w", err)
	}
	if t == nil {
		return nil, &TransportError{Op: "dial", Err: fmt.Errorf("dialer returned nil transport")}
	}

	return &Engine{
		cfg:       cfg,
		transport: t,
		clock:     cfg.Clock,
		log:       cfg.Logger,
		buf:       NewBuffer(cfg.BufferSize),
		dig:       digester{term: []byte(cfg.Terminator)},
		urcs:      newURCSink(cfg.URCQueueSize, cfg.URCDropPolicy, cfg.Logger),
	}, nil
}

// Close shuts the engine down and closes the transport. A pending command
// fails with ErrClosed. The engine cannot be reused afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrAlreadyClosed
	}
	e.closed = true
	e.failPendingLocked(ErrClosed)
	e.mu.Unlock()

	return e.transport.Close()
}

// URC returns the channel unsolicited result codes are delivered on. The
// channel is bounded; see Config.URCDropPolicy for the full-sink behavior.
func (e *Engine) URC() <-chan string { return e.urcs.ch }

// URCDrops reports how many URCs have been dropped by a full sink.
func (e *Engine) URCDrops() uint64 { return e.urcs.drops.Load() }

// Ingest feeds raw received bytes into the framing state machine and
// routes every complete frame extracted from them. A buffer overflow
// discards all buffered bytes, fails any pending command with ErrFraming
// and returns ErrFraming; the engine remains usable.
func (e *Engine) Ingest(p []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	metrics.BytesIngested.Add(float64(len(p)))

	if err := e.buf.Append(p); err != nil {
		e.resyncLocked()
		return ErrFraming
	}
	e.drainLocked()
	return nil
}

// resyncLocked recovers from a buffer overflow: the buffered bytes are
// unparseable, so framing restarts from the next byte received.
func (e *Engine) resyncLocked() {
	metrics.FramingResyncs.Inc()
	e.log.Warn("receive buffer overflow, resynchronizing", "discarded", e.buf.Len())
	e.buf.Reset()
	e.failPendingLocked(ErrFraming)
}

func (e *Engine) digestContextLocked() digestContext {
	ctx := digestContext{
		awaiting: e.st != stateIdle,
	}
	if p := e.pending; p != nil {
		ctx.ident = p.cmd.Ident()
		ctx.dataLen = p.dataLen
		ctx.prompt = p.cmd.Prompt
		ctx.urcFirst = p.cmd.URCFirst
		if e.st == stateAwaitingEcho {
			ctx.echo = p.echo
		}
	}
	return ctx
}

// drainLocked extracts frames until no further complete frame remains.
func (e *Engine) drainLocked() {
	for {
		frame, n := e.dig.digest(e.buf.Bytes(), e.digestContextLocked())
		if n == 0 {
			return
		}
		e.buf.Discard(n)
		e.routeLocked(frame)
	}
}

func (e *Engine) routeLocked(f at.Frame) {
	switch f.Kind {
	case at.KindNone:
		if f.Line != "" {
			metrics.StaleFrames.Inc()
			e.log.Debug("discarding stale final result", "line", f.Line)
		}

	case at.KindEcho:
		e.st = stateAwaitingResponse

	case at.KindInfo:
		p := e.pending
		if p == nil {
			return
		}
		p.lines = append(p.lines, f.Line)
		if p.dataLen == 0 && p.data == nil {
			if n, ok := codec.DeclaredLength(p.cmd, f.Line); ok {
				p.dataLen = n
			}
		}

	case at.KindData:
		if p := e.pending; p != nil {
			p.data = f.Data
			p.dataLen = 0
		}

	case at.KindPrompt:
		if p := e.pending; p != nil {
			e.resolveLocked(result{lines: p.lines, prompt: true})
		}

	case at.KindOK:
		p := e.pending
		if p == nil {
			metrics.StaleFrames.Inc()
			e.log.Debug("discarding stale final result", "line", f.Line)
			return
		}
		e.resolveLocked(result{lines: p.lines, data: p.data})

	case at.KindError:
		if e.pending == nil {
			metrics.StaleFrames.Inc()
			e.log.Debug("discarding stale final result", "line", f.Line)
			return
		}
		metrics.CommandErrors.WithLabelValues(metrics.ReasonPeer).Inc()
		e.resolveLocked(result{err: at.FinalError(f)})
		if e.cfg.FlushOnError {
			e.buf.Reset()
		}

	case at.KindURC:
		e.urcs.push(f.Line)
	}
}

// resolveLocked delivers the terminal result to the pending request and
// returns the state machine to Idle.
func (e *Engine) resolveLocked(res result) {
	p := e.pending
	e.pending = nil
	e.st = stateIdle
	p.done <- res
}

func (e *Engine) failPendingLocked(err error) {
	if e.pending == nil {
		return
	}
	e.resolveLocked(result{err: err})
}

// abandon withdraws a request after a timeout or cancellation. Any frame
// for it arriving later finds no pending request and is discarded rather
// than delivered to an unrelated successor.
func (e *Engine) abandon(p *pending) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending == p {
		e.pending = nil
		e.st = stateIdle
	}
}

// Idle reports whether no command is in flight and the receive state
// machine is back at rest.
func (e *Engine) Idle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st == stateIdle && e.pending == nil
}
