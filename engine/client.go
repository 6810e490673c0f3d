package engine

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/atline-io/atline/codec"
	"github.com/atline-io/atline/internal/metrics"
)

// Send serializes cmd, writes it to the transport and waits for the
// matching terminal frame or the deadline, whichever comes first.
//
// It fails with ErrBusy while another command is pending, ErrTimeout when
// no terminal frame arrives before the deadline (measured from the tick at
// which the command was fully written), ErrFraming when the receive buffer
// resynchronized while the command was pending, a *codec.ParseError when
// the response cannot be decoded into the expected shape, and a
// *TransportError when the write fails or is short. After a timeout the
// engine is Idle again; retry policy is the caller's responsibility.
//
// Cancelling ctx abandons the command the same way a timeout does: the
// engine returns to Idle and a late response is discarded as stale.
func (e *Engine) Send(ctx context.Context, cmd codec.Command) (codec.Response, error) {
	wire := codec.Serialize(cmd, e.cfg.Terminator)
	var echo []byte
	if e.cfg.Echo {
		echo = wire[:len(wire)-len(e.cfg.Terminator)]
	}
	return e.dispatch(ctx, cmd, wire, echo)
}

// SendRaw writes payload verbatim (no AT prefix, no terminator) and waits
// for a terminal frame, decoding it against cmd's response grammar. It is
// the second stage of prompt-mode commands: Send resolves at the "> "
// prompt, the caller produces the payload (terminated per the command's
// convention, e.g. Ctrl-Z), and SendRaw completes the exchange.
func (e *Engine) SendRaw(ctx context.Context, payload []byte, cmd codec.Command) (codec.Response, error) {
	return e.dispatch(ctx, cmd, payload, nil)
}

func (e *Engine) dispatch(ctx context.Context, cmd codec.Command, wire, echo []byte) (codec.Response, error) {
	p := &pending{
		cmd:  cmd,
		echo: echo,
		done: make(chan result, 1),
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return codec.Response{}, ErrClosed
	}
	if e.pending != nil {
		e.mu.Unlock()
		metrics.CommandErrors.WithLabelValues(metrics.ReasonBusy).Inc()
		return codec.Response{}, ErrBusy
	}
	e.pending = p
	if echo != nil {
		e.st = stateAwaitingEcho
	} else {
		e.st = stateAwaitingResponse
	}
	e.mu.Unlock()

	metrics.Commands.Inc()
	e.log.Debug("sending command", "wire", string(wire))

	n, err := e.transport.Write(wire)
	if err == nil && n < len(wire) {
		err = io.ErrShortWrite
	}
	if err != nil {
		e.abandon(p)
		metrics.CommandErrors.WithLabelValues(metrics.ReasonTransport).Inc()
		return codec.Response{}, &TransportError{Op: "write", Err: err}
	}

	// The deadline starts at the tick the command was fully written.
	start := e.clock.Now()
	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = e.cfg.CommandTimeout
	}

	for {
		select {
		case res := <-p.done:
			return e.finish(cmd, res)

		case <-ctx.Done():
			e.abandon(p)
			return codec.Response{}, ctx.Err()

		case <-time.After(e.cfg.PollInterval):
			if elapsed(e.clock, start) >= timeout {
				e.abandon(p)
				metrics.CommandErrors.WithLabelValues(metrics.ReasonTimeout).Inc()
				return codec.Response{}, ErrTimeout
			}
		}
	}
}

func (e *Engine) finish(cmd codec.Command, res result) (codec.Response, error) {
	if res.err != nil {
		if errors.Is(res.err, ErrFraming) {
			metrics.CommandErrors.WithLabelValues(metrics.ReasonFraming).Inc()
		}
		return codec.Response{}, res.err
	}
	if res.prompt {
		return codec.Response{Lines: res.lines, Prompt: true}, nil
	}
	resp, err := codec.Deserialize(cmd, res.lines, res.data)
	if err != nil {
		metrics.CommandErrors.WithLabelValues(metrics.ReasonParse).Inc()
		return codec.Response{}, err
	}
	return resp, nil
}
