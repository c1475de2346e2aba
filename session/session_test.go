package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/relaywf/relay-go/wire"
)

// fakeConn is an in-memory transport: the test feeds inbound frames and
// collects what the session writes.
type fakeConn struct {
	inbound  chan []byte
	outbound chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound:  make(chan []byte, 16),
		outbound: make(chan []byte, 16),
		closed:   make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case data, ok := <-c.inbound:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	case <-c.closed:
		return nil, io.EOF
	}
}

func (c *fakeConn) WriteMessage(data []byte) error {
	select {
	case c.outbound <- data:
		return nil
	case <-c.closed:
		return io.EOF
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// deliver queues an inbound frame for the session to read.
func (c *fakeConn) deliver(t *testing.T, e wire.Event) {
	t.Helper()
	data, err := e.Encode()
	if err != nil {
		t.Fatalf("encoding inbound event: %v", err)
	}
	c.inbound <- data
}

// sent blocks until the session writes a frame and decodes it.
func (c *fakeConn) sent(t *testing.T) wire.Event {
	t.Helper()
	select {
	case data := <-c.outbound:
		e, err := wire.Decode(data)
		if err != nil {
			t.Fatalf("decoding outbound frame: %v", err)
		}
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no frame written within 2s")
		return nil
	}
}

// stubRegistry resolves every event through a single function.
type stubRegistry struct {
	name    string
	resolve func(e wire.Event) Handler
}

func (r *stubRegistry) Name() string { return r.name }

func (r *stubRegistry) Resolve(e wire.Event) Handler {
	if r.resolve == nil {
		return nil
	}
	return r.resolve(e)
}

// startSession runs a session over a fake transport and tears it down with
// the test.
func startSession(t *testing.T, reg Registry) (*Session, *fakeConn) {
	t.Helper()
	if reg == nil {
		reg = &stubRegistry{name: "testwf"}
	}
	conn := newFakeConn()
	s := New(conn, reg, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	t.Cleanup(func() {
		cancel()
		conn.Close()
		select {
		case <-s.Done():
		case <-time.After(2 * time.Second):
			t.Error("session did not shut down")
		}
	})
	return s, conn
}

func TestSendAndCorrelateRoundTrip(t *testing.T) {
	s, conn := startSession(t, nil)

	type result struct {
		rsp wire.Event
		err error
	}
	done := make(chan result, 1)
	go func() {
		e := wire.New(wire.TypeGetVarRequest)
		e["name"] = "greeting"
		rsp, err := s.SendAndCorrelate(context.Background(), e, 2*time.Second)
		done <- result{rsp, err}
	}()

	req := conn.sent(t)
	if req.Type() != wire.TypeGetVarRequest {
		t.Fatalf("request type = %s", req.Type())
	}
	id := req.ID()
	if id == "" {
		t.Fatal("request has no correlation id")
	}

	conn.deliver(t, wire.Event{
		wire.FieldType: "wf_api_get_var_response",
		wire.FieldID:   id,
		"value":        "hello",
	})

	r := <-done
	if r.err != nil {
		t.Fatalf("SendAndCorrelate() error = %v", r.err)
	}
	if r.rsp.String("value") != "hello" {
		t.Errorf("response value = %q, want hello", r.rsp.String("value"))
	}
}

func TestSendAndCorrelateErrorResponse(t *testing.T) {
	s, conn := startSession(t, nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.SendAndCorrelate(context.Background(), wire.New(wire.TypeSetVarRequest), 2*time.Second)
		done <- err
	}()

	req := conn.sent(t)
	conn.deliver(t, wire.Event{
		wire.FieldType: wire.TypeErrorResponse,
		wire.FieldID:   req.ID(),
		"error":        "no such variable",
	})

	err := <-done
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ProtocolError", err)
	}
	if perr.Message != "no such variable" {
		t.Errorf("Message = %q", perr.Message)
	}
}

func TestSendAndCorrelateTimeoutDiscardsLateResponse(t *testing.T) {
	s, conn := startSession(t, nil)

	_, err := func() (wire.Event, error) {
		done := make(chan error, 1)
		var rsp wire.Event
		go func() {
			var e error
			rsp, e = s.SendAndCorrelate(context.Background(), wire.New(wire.TypeSayRequest), 50*time.Millisecond)
			done <- e
		}()
		conn.sent(t) // drain the request
		return rsp, <-done
	}()
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	if s.calls.size() != 0 {
		t.Errorf("correlation table size = %d after timeout, want 0", s.calls.size())
	}

	// The session must keep running and simply discard a late response.
	conn.deliver(t, wire.Event{wire.FieldType: "wf_api_say_response", wire.FieldID: "stale-id"})

	// Prove liveness with a fresh round trip.
	done := make(chan error, 1)
	go func() {
		_, e := s.SendAndCorrelate(context.Background(), wire.New(wire.TypeGetVarRequest), 2*time.Second)
		done <- e
	}()
	req := conn.sent(t)
	conn.deliver(t, wire.Event{wire.FieldType: "wf_api_get_var_response", wire.FieldID: req.ID()})
	if e := <-done; e != nil {
		t.Errorf("follow-up SendAndCorrelate() error = %v", e)
	}
}

func TestHandlerPanicDoesNotKillSession(t *testing.T) {
	invoked := make(chan string, 2)
	reg := &stubRegistry{
		name: "testwf",
		resolve: func(e wire.Event) Handler {
			switch e.Type() {
			case wire.TypeStartEvent:
				return func(context.Context, *Session, wire.Event) {
					invoked <- "start"
					panic("boom")
				}
			case wire.TypeStopEvent:
				return func(context.Context, *Session, wire.Event) {
					invoked <- "stop"
				}
			}
			return nil
		},
	}
	_, conn := startSession(t, reg)

	conn.deliver(t, wire.Event{wire.FieldType: wire.TypeStartEvent})
	if got := <-invoked; got != "start" {
		t.Fatalf("first handler = %q", got)
	}

	// The panic above must not take the read loop with it.
	conn.deliver(t, wire.Event{wire.FieldType: wire.TypeStopEvent})
	select {
	case got := <-invoked:
		if got != "stop" {
			t.Errorf("second handler = %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session stopped dispatching after handler panic")
	}
}

func TestEventFeedsBothWaitAndHandler(t *testing.T) {
	handled := make(chan struct{})
	reg := &stubRegistry{
		name: "testwf",
		resolve: func(e wire.Event) Handler {
			if e.Type() != wire.TypeTimerEvent {
				return nil
			}
			return func(context.Context, *Session, wire.Event) { close(handled) }
		},
	}
	s, conn := startSession(t, reg)

	w := s.NewWait(map[string]any{wire.FieldType: wire.TypeTimerEvent})
	conn.deliver(t, wire.Event{wire.FieldType: wire.TypeTimerEvent})

	if _, err := w.Await(context.Background(), 2*time.Second); err != nil {
		t.Errorf("Await() error = %v", err)
	}
	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Error("registered handler did not run alongside the wait")
	}
}

func TestUndecodableFrameIsSkipped(t *testing.T) {
	s, conn := startSession(t, nil)

	conn.inbound <- []byte("not json")
	conn.inbound <- []byte(`{"no_type_field":true}`)

	// The loop must still be alive.
	done := make(chan error, 1)
	go func() {
		_, err := s.SendAndCorrelate(context.Background(), wire.New(wire.TypeGetVarRequest), 2*time.Second)
		done <- err
	}()
	req := conn.sent(t)
	conn.deliver(t, wire.Event{wire.FieldType: "wf_api_get_var_response", wire.FieldID: req.ID()})
	if err := <-done; err != nil {
		t.Errorf("SendAndCorrelate() after bad frames error = %v", err)
	}
}

func TestTransportCloseReleasesPendingWithErrClosed(t *testing.T) {
	s, conn := startSession(t, nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.SendAndCorrelate(context.Background(), wire.New(wire.TypeSayRequest), 10*time.Second)
		done <- err
	}()
	conn.sent(t)

	close(conn.inbound) // peer closed the stream

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("error = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending request not released on close")
	}

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done() not closed after transport closure")
	}
}

func TestSendStampsFreshID(t *testing.T) {
	s, conn := startSession(t, nil)

	if err := s.Send(wire.New(wire.TypeTerminateRequest)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	e := conn.sent(t)
	if e.Type() != wire.TypeTerminateRequest {
		t.Errorf("type = %s", e.Type())
	}
	if e.ID() == "" {
		t.Error("outbound event missing correlation id")
	}
}
