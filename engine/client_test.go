package engine_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/atline-io/atline/at"
	"github.com/atline-io/atline/codec"
	"github.com/atline-io/atline/engine"
	"github.com/atline-io/atline/transport"
)

// fakeClock is a manually advanced tick source.
type fakeClock struct {
	mu  sync.Mutex
	now engine.Ticks
}

func (c *fakeClock) Now() engine.Ticks {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += engine.Ticks(d / time.Millisecond)
}

func newTestEngine(t *testing.T, mod func(*engine.ConfigBuilder)) (*engine.Engine, *transport.TestTransport) {
	t.Helper()
	tt := transport.NewTestTransport()
	b := engine.NewConfigBuilder().
		WithDialer(tt).
		WithPollInterval(time.Millisecond).
		WithCommandTimeout(time.Second)
	if mod != nil {
		mod(b)
	}
	cfg, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error from Build(): %v", err)
	}
	e, err := engine.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e, tt
}

// waitWritten blocks until the transport has recorded n writes.
func waitWritten(t *testing.T, tt *transport.TestTransport, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for len(tt.Written()) < n {
		if time.Now().After(deadline) {
			t.Fatalf("transport never saw write %d", n)
		}
		time.Sleep(time.Millisecond)
	}
}

var csqCmd = codec.Command{
	Name: "+CSQ",
	Kind: codec.KindExecute,
	Response: codec.Grammar{
		Kind:   codec.GrammarLine,
		Fields: []codec.FieldType{codec.FieldInt, codec.FieldInt},
	},
}

func TestSendSignalQualityWithEcho(t *testing.T) {
	e, tt := newTestEngine(t, func(b *engine.ConfigBuilder) { b.WithEcho(true) })

	type outcome struct {
		resp codec.Response
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		resp, err := e.Send(context.Background(), csqCmd)
		done <- outcome{resp, err}
	}()

	waitWritten(t, tt, 1)
	if got := string(tt.Written()[0]); got != "AT+CSQ\r\n" {
		t.Errorf("wire = %q, want %q", got, "AT+CSQ\r\n")
	}

	if err := e.Ingest([]byte("AT+CSQ\r\n+CSQ: 15,99\r\nOK\r\n")); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	out := <-done
	if out.err != nil {
		t.Fatalf("unexpected error: %v", out.err)
	}
	if v, _ := out.resp.Int(0); v != 15 {
		t.Errorf("signal = %d, want 15", v)
	}
	if v, _ := out.resp.Int(1); v != 99 {
		t.Errorf("ber = %d, want 99", v)
	}
	if !e.Idle() {
		t.Error("engine should be idle after a completed command")
	}
}

func TestSendErrorWithoutCode(t *testing.T) {
	e, tt := newTestEngine(t, nil)

	done := make(chan error, 1)
	go func() {
		_, err := e.Send(context.Background(), codec.Command{Name: "+CPIN", Kind: codec.KindRead})
		done <- err
	}()

	waitWritten(t, tt, 1)
	if err := e.Ingest([]byte("ERROR\r\n")); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	err := <-done
	var re at.ResultError
	if !errors.As(err, &re) {
		t.Fatalf("expected ResultError, got %v", err)
	}
	if re != "ERROR" {
		t.Errorf("error value = %q", re)
	}
	if !e.Idle() {
		t.Error("engine should be idle after an error final")
	}
}

func TestSendCMEError(t *testing.T) {
	e, tt := newTestEngine(t, nil)

	done := make(chan error, 1)
	go func() {
		_, err := e.Send(context.Background(), codec.Command{Name: "+CPIN", Kind: codec.KindRead})
		done <- err
	}()

	waitWritten(t, tt, 1)
	_ = e.Ingest([]byte("+CME ERROR: 10\r\n"))

	err := <-done
	var cme at.CMEError
	if !errors.As(err, &cme) {
		t.Fatalf("expected CMEError, got %v", err)
	}
	if cme != "10" {
		t.Errorf("code = %q, want 10", cme)
	}
}

func TestSendTimeout(t *testing.T) {
	clock := &fakeClock{}
	e, tt := newTestEngine(t, func(b *engine.ConfigBuilder) {
		b.WithClock(clock).WithCommandTimeout(2 * time.Second)
	})

	done := make(chan error, 1)
	go func() {
		_, err := e.Send(context.Background(), csqCmd)
		done <- err
	}()

	waitWritten(t, tt, 1)
	clock.Advance(2 * time.Second)

	select {
	case err := <-done:
		if !errors.Is(err, engine.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("send did not return within a bounded margin of the deadline")
	}
	if !e.Idle() {
		t.Error("engine should be idle immediately after a timeout")
	}

	// A late response for the abandoned command is stale: it must be
	// discarded, not delivered to the next command.
	_ = e.Ingest([]byte("+CSQ: 15,99\r\nOK\r\n"))

	go func() {
		_, err := e.Send(context.Background(), codec.Command{Name: "+CREG", Kind: codec.KindRead})
		done <- err
	}()
	waitWritten(t, tt, 2)
	_ = e.Ingest([]byte("OK\r\n"))
	if err := <-done; err != nil {
		t.Fatalf("engine unusable after timeout: %v", err)
	}
}

func TestSendBusy(t *testing.T) {
	e, tt := newTestEngine(t, nil)

	done := make(chan error, 1)
	go func() {
		_, err := e.Send(context.Background(), csqCmd)
		done <- err
	}()
	waitWritten(t, tt, 1)

	_, err := e.Send(context.Background(), codec.Command{Name: "+CREG", Kind: codec.KindRead})
	if !errors.Is(err, engine.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	// The rejected send must not have corrupted the pending request.
	_ = e.Ingest([]byte("+CSQ: 15,99\r\nOK\r\n"))
	if err := <-done; err != nil {
		t.Fatalf("pending command corrupted by rejected send: %v", err)
	}
}

func TestURCDuringPendingCommand(t *testing.T) {
	e, tt := newTestEngine(t, nil)

	done := make(chan error, 1)
	go func() {
		_, err := e.Send(context.Background(), csqCmd)
		done <- err
	}()
	waitWritten(t, tt, 1)

	_ = e.Ingest([]byte("+UUSORD: 3,16\r\n+CSQ: 15,99\r\nOK\r\n"))

	select {
	case urc := <-e.URC():
		if !strings.HasPrefix(urc, "+UUSORD:") {
			t.Errorf("urc = %q", urc)
		}
	case <-time.After(time.Second):
		t.Error("URC was not delivered to the sink")
	}

	if err := <-done; err != nil {
		t.Errorf("URC altered the pending command's outcome: %v", err)
	}
}

func TestURCWithNoPendingCommand(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	if err := e.Ingest([]byte("+UUSORD: 3,16\r\n")); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	select {
	case urc := <-e.URC():
		if urc != "+UUSORD: 3,16" {
			t.Errorf("urc = %q", urc)
		}
	case <-time.After(time.Second):
		t.Error("URC was not delivered to the sink")
	}
	if !e.Idle() {
		t.Error("engine should remain idle")
	}
}

func TestFramingOverflowResync(t *testing.T) {
	e, tt := newTestEngine(t, func(b *engine.ConfigBuilder) { b.WithBufferSize(16) })

	done := make(chan error, 1)
	go func() {
		_, err := e.Send(context.Background(), csqCmd)
		done <- err
	}()
	waitWritten(t, tt, 1)

	// More unterminated bytes than the buffer holds.
	err := e.Ingest([]byte(strings.Repeat("x", 32)))
	if !errors.Is(err, engine.ErrFraming) {
		t.Fatalf("expected ErrFraming from ingest, got %v", err)
	}
	if err := <-done; !errors.Is(err, engine.ErrFraming) {
		t.Fatalf("pending command should fail with ErrFraming, got %v", err)
	}

	// The engine never enters a permanently broken state.
	go func() {
		_, err := e.Send(context.Background(), csqCmd)
		done <- err
	}()
	waitWritten(t, tt, 2)
	_ = e.Ingest([]byte("+CSQ: 7,99\r\nOK\r\n"))
	if err := <-done; err != nil {
		t.Fatalf("engine unusable after resync: %v", err)
	}
}

func TestSendCancellation(t *testing.T) {
	e, tt := newTestEngine(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := e.Send(ctx, csqCmd)
		done <- err
	}()
	waitWritten(t, tt, 1)

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !e.Idle() {
		t.Error("engine should be idle after cancellation")
	}

	// The abandoned command's response is stale and must be discarded.
	_ = e.Ingest([]byte("+CSQ: 15,99\r\nOK\r\n"))
	if !e.Idle() {
		t.Error("stale frames must not revive state")
	}
}

func TestSendParseError(t *testing.T) {
	e, tt := newTestEngine(t, nil)

	done := make(chan error, 1)
	go func() {
		_, err := e.Send(context.Background(), csqCmd)
		done <- err
	}()
	waitWritten(t, tt, 1)
	_ = e.Ingest([]byte("+CSQ: 15,banana\r\nOK\r\n"))

	err := <-done
	var pe *codec.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if pe.Field != 1 || pe.Fragment != "banana" {
		t.Errorf("got field %d fragment %q", pe.Field, pe.Fragment)
	}
}

func TestPromptAndSendRaw(t *testing.T) {
	e, tt := newTestEngine(t, nil)

	cmgs := codec.Command{
		Name:   "+CMGS",
		Kind:   codec.KindWrite,
		Args:   []codec.Value{codec.String("+1234567890")},
		Prompt: true,
		Response: codec.Grammar{
			Kind:   codec.GrammarLine,
			Fields: []codec.FieldType{codec.FieldInt},
		},
	}

	type outcome struct {
		resp codec.Response
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		resp, err := e.Send(context.Background(), cmgs)
		done <- outcome{resp, err}
	}()

	waitWritten(t, tt, 1)
	_ = e.Ingest([]byte("> "))

	out := <-done
	if out.err != nil {
		t.Fatalf("unexpected error: %v", out.err)
	}
	if !out.resp.Prompt {
		t.Fatal("expected prompt-stage response")
	}

	go func() {
		resp, err := e.SendRaw(context.Background(), []byte("hello"+at.CtrlZ), cmgs)
		done <- outcome{resp, err}
	}()
	waitWritten(t, tt, 2)
	if got := string(tt.Written()[1]); got != "hello"+at.CtrlZ {
		t.Errorf("payload wire = %q", got)
	}
	_ = e.Ingest([]byte("+CMGS: 123\r\nOK\r\n"))

	out = <-done
	if out.err != nil {
		t.Fatalf("unexpected error: %v", out.err)
	}
	if v, _ := out.resp.Int(0); v != 123 {
		t.Errorf("message reference = %d, want 123", v)
	}
}

func TestDeclaredLengthDataBlock(t *testing.T) {
	e, tt := newTestEngine(t, nil)

	usord := codec.Command{
		Name: "+USORD",
		Kind: codec.KindWrite,
		Args: []codec.Value{codec.Int(3), codec.Int(16)},
		Response: codec.Grammar{
			Kind:        codec.GrammarData,
			Fields:      []codec.FieldType{codec.FieldInt, codec.FieldInt},
			LengthField: 1,
		},
	}

	type outcome struct {
		resp codec.Response
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		resp, err := e.Send(context.Background(), usord)
		done <- outcome{resp, err}
	}()

	waitWritten(t, tt, 1)
	// Header announces 16 raw bytes; the payload contains a terminator
	// sequence that must not be line-scanned.
	_ = e.Ingest([]byte("+USORD: 3,16\r\n"))
	_ = e.Ingest([]byte("01234\r\n890123456"))
	_ = e.Ingest([]byte("\r\nOK\r\n"))

	out := <-done
	if out.err != nil {
		t.Fatalf("unexpected error: %v", out.err)
	}
	if string(out.resp.Data) != "01234\r\n890123456"[:16] {
		t.Errorf("data = %q", out.resp.Data)
	}
	if v, _ := out.resp.Int(1); v != 16 {
		t.Errorf("declared length = %d", v)
	}
}

func TestCommandTimeoutOverride(t *testing.T) {
	clock := &fakeClock{}
	e, tt := newTestEngine(t, func(b *engine.ConfigBuilder) {
		b.WithClock(clock).WithCommandTimeout(time.Hour)
	})

	cmd := csqCmd
	cmd.Timeout = 50 * time.Millisecond

	done := make(chan error, 1)
	go func() {
		_, err := e.Send(context.Background(), cmd)
		done <- err
	}()
	waitWritten(t, tt, 1)
	clock.Advance(100 * time.Millisecond)

	select {
	case err := <-done:
		if !errors.Is(err, engine.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("per-command timeout was not honored")
	}
}

func TestCloseLifecycle(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	if err := e.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := e.Close(); !errors.Is(err, engine.ErrAlreadyClosed) {
		t.Fatalf("expected ErrAlreadyClosed, got %v", err)
	}
	if _, err := e.Send(context.Background(), csqCmd); !errors.Is(err, engine.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := e.Ingest([]byte("OK\r\n")); !errors.Is(err, engine.ErrClosed) {
		t.Fatalf("expected ErrClosed from ingest, got %v", err)
	}
}
