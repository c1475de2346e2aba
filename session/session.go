package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/relaywf/relay-go/wire"
)

// DefaultRequestTimeout bounds SendAndCorrelate when the caller passes a zero
// timeout.
const DefaultRequestTimeout = 10 * time.Second

// Frame directions reported to a Tap.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Conn is the ordered bidirectional message stream a session runs on.
//
// ReadMessage returns io.EOF (or an error wrapping net.ErrClosed) when the
// peer closes the stream normally; the session treats that as expected
// termination. WriteMessage must be safe for concurrent use, since handler
// goroutines send while the keepalive and other handlers do too.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Handler is one registered event handler. It runs as its own goroutine with
// the session facade and the decoded event; anything it panics with is
// recovered and logged at the spawn boundary.
type Handler func(ctx context.Context, s *Session, e wire.Event)

// Registry resolves inbound events to handlers. Implementations are read-only
// during dispatch and shareable across sessions.
type Registry interface {
	Name() string
	Resolve(e wire.Event) Handler
}

// Tap observes every frame crossing the session, e.g. for journalling.
// Implementations must not block.
type Tap interface {
	Frame(sessionID, workflow, direction, eventType, correlationID string, payload []byte)
}

// Metrics receives dispatch telemetry. Implementations must not block.
type Metrics interface {
	SessionOpened(workflow string)
	SessionClosed(workflow string)
	EventRouted(workflow, eventType, route string)
	HandlerDuration(workflow, eventType string, d time.Duration, failed bool)
}

// Routing outcomes reported to Metrics.EventRouted.
const (
	RouteResponse  = "response"
	RouteWait      = "wait"
	RouteHandler   = "handler"
	RouteUnknownID = "unknown_id"
	RouteUnhandled = "unhandled"
)

// Options configures optional session collaborators.
type Options struct {
	// Logger receives session lifecycle and dispatch diagnostics.
	Logger Logger

	// Tap, when set, observes every inbound and outbound frame.
	Tap Tap

	// Metrics, when set, receives dispatch telemetry.
	Metrics Metrics
}

// Session is the per-connection runtime for one workflow: it owns the read
// loop, the correlation table, and the event matcher, and it spawns handler
// executions. A session serves exactly one connection; the registry it binds
// is immutable and may be shared by many sessions.
type Session struct {
	id       string
	conn     Conn
	registry Registry
	logger   Logger
	tap      Tap
	metrics  Metrics

	calls *callTable
	waits *waitTable

	done chan struct{}
}

// New creates a session bound to conn and registry. The session does not read
// from the connection until Run is called.
func New(conn Conn, registry Registry, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Session{
		id:       newID()[:12],
		conn:     conn,
		registry: registry,
		logger:   logger,
		tap:      opts.Tap,
		metrics:  opts.Metrics,
		calls:    newCallTable(),
		waits:    newWaitTable(),
		done:     make(chan struct{}),
	}
}

// ID returns the session's identifier, unique per connection.
func (s *Session) ID() string {
	return s.id
}

// Done is closed when the read loop has ended and the session is torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run executes the read loop until the transport closes or the context is
// cancelled. Transport closure is normal termination (expected after a
// terminate request); any other read failure is logged and also ends the
// loop. On return the session is closed and all pending operations have been
// released with ErrClosed.
func (s *Session) Run(ctx context.Context) {
	wf := s.registry.Name()
	s.logger.Info("workflow session started", "session_id", s.id, "workflow", wf)
	if s.metrics != nil {
		s.metrics.SessionOpened(wf)
	}

	defer func() {
		close(s.done)
		_ = s.conn.Close()
		if s.metrics != nil {
			s.metrics.SessionClosed(wf)
		}
		s.logger.Info("workflow session ended", "session_id", s.id, "workflow", wf)
	}()

	for {
		data, err := s.conn.ReadMessage()
		if err != nil {
			if isExpectedClose(err) || ctx.Err() != nil {
				s.logger.Debug("transport closed", "session_id", s.id)
			} else {
				s.logger.Error("read failed", "session_id", s.id, "error", err)
			}
			return
		}

		e, err := wire.Decode(data)
		if err != nil {
			s.logger.Warn("discarding undecodable frame", "session_id", s.id, "error", err)
			continue
		}

		if s.tap != nil {
			s.tap.Frame(s.id, wf, DirectionInbound, e.Type(), e.ID(), data)
		}

		s.dispatch(ctx, e)
	}
}

// dispatch classifies one inbound event. A correlation id routes it to the
// correlation table and nothing else. Otherwise the event is offered to the
// event matcher and, independently, to the handler registry: the same
// notification may satisfy an outstanding wait and feed a registered handler.
func (s *Session) dispatch(ctx context.Context, e wire.Event) {
	wf := s.registry.Name()

	if id := e.ID(); id != "" {
		if s.calls.resolveEvent(id, e) {
			s.routed(wf, e.Type(), RouteResponse)
			return
		}
		s.logger.Warn("response for unknown correlation id",
			"session_id", s.id, "correlation_id", id, "event_type", e.Type())
		s.routed(wf, e.Type(), RouteUnknownID)
		return
	}

	matched := s.waits.tryResolve(e)
	if matched {
		s.routed(wf, e.Type(), RouteWait)
	}

	if h := s.registry.Resolve(e); h != nil {
		s.routed(wf, e.Type(), RouteHandler)
		go s.invoke(ctx, h, e)
		return
	}

	if !matched {
		s.logger.Warn("no handler for event",
			"session_id", s.id, "event_type", e.Type())
		s.routed(wf, e.Type(), RouteUnhandled)
	}
}

// invoke runs a handler as an independent execution. Panics are contained
// here so a failing handler cannot take down the read loop or its peers.
func (s *Session) invoke(ctx context.Context, h Handler, e wire.Event) {
	wf := s.registry.Name()
	start := time.Now()
	failed := false

	defer func() {
		if r := recover(); r != nil {
			failed = true
			s.logger.Error("handler panicked",
				"session_id", s.id, "event_type", e.Type(), "panic", r)
		}
		if s.metrics != nil {
			s.metrics.HandlerDuration(wf, e.Type(), time.Since(start), failed)
		}
	}()

	h(ctx, s, e)
}

func (s *Session) routed(wf, eventType, route string) {
	if s.metrics != nil {
		s.metrics.EventRouted(wf, eventType, route)
	}
}

// Send stamps a fresh correlation id on the event, transmits it, and returns
// immediately without waiting for any response.
func (s *Session) Send(e wire.Event) error {
	e[wire.FieldID] = newID()
	return s.write(e)
}

// SendAndCorrelate stamps a fresh correlation id, registers a correlation
// table entry, transmits, and suspends the caller until the matching response
// arrives or the timeout elapses. A zero timeout means DefaultRequestTimeout.
//
// An error-discriminator response surfaces as *ProtocolError rather than a
// value; a timeout removes the table entry and returns ErrTimeout, so a late
// response is logged and discarded instead of resuming the caller twice.
func (s *Session) SendAndCorrelate(ctx context.Context, e wire.Event, timeout time.Duration) (wire.Event, error) {
	id, sl := s.calls.issue()
	return s.roundTrip(ctx, e, id, sl, timeout)
}

// sendCorrelatedWithID is SendAndCorrelate with a caller-chosen correlation
// id, for operations whose follow-up event criteria embed the request id.
func (s *Session) sendCorrelatedWithID(ctx context.Context, e wire.Event, id string, timeout time.Duration) (wire.Event, error) {
	sl := s.calls.issueWithID(id)
	return s.roundTrip(ctx, e, id, sl, timeout)
}

func (s *Session) roundTrip(ctx context.Context, e wire.Event, id string, sl *slot, timeout time.Duration) (wire.Event, error) {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	e[wire.FieldID] = id
	if err := s.write(e); err != nil {
		s.calls.remove(id)
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case rsp := <-sl.ch:
		if rsp.IsError() {
			return nil, &ProtocolError{Message: rsp.ErrorMessage()}
		}
		return rsp, nil
	case <-timer.C:
		s.calls.remove(id)
		return nil, fmt.Errorf("%w: no response to %s within %s", ErrTimeout, e.Type(), timeout)
	case <-ctx.Done():
		s.calls.remove(id)
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrClosed
	}
}

// Wait is a registered ad-hoc event wait. Register it with NewWait before
// transmitting the request whose follow-up it matches, then block on Await.
type Wait struct {
	s    *Session
	id   string
	slot *slot
}

// NewWait registers a waiter for the first inbound notification whose fields
// satisfy criteria: every criteria key must be present with an equal value.
// Call Await to block, or Cancel to abandon the wait.
func (s *Session) NewWait(criteria map[string]any) *Wait {
	id, sl := s.waits.add(criteria)
	return &Wait{s: s, id: id, slot: sl}
}

// Await suspends the caller until the waiter resolves or the timeout elapses.
// An error-discriminator event surfaces as *ProtocolError; a timeout removes
// the waiter and returns ErrTimeout.
func (w *Wait) Await(ctx context.Context, timeout time.Duration) (wire.Event, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case e := <-w.slot.ch:
		if e.IsError() {
			return nil, &ProtocolError{Message: e.ErrorMessage()}
		}
		return e, nil
	case <-timer.C:
		w.s.waits.remove(w.id)
		return nil, fmt.Errorf("%w: no event matched within %s", ErrTimeout, timeout)
	case <-ctx.Done():
		w.s.waits.remove(w.id)
		return nil, ctx.Err()
	case <-w.s.done:
		return nil, ErrClosed
	}
}

// Cancel abandons the wait. Safe to call after resolution.
func (w *Wait) Cancel() {
	w.s.waits.remove(w.id)
}

// WaitFor registers a waiter and blocks in one step. Use NewWait/Await when
// the wait must be registered before a triggering request is transmitted.
func (s *Session) WaitFor(ctx context.Context, criteria map[string]any, timeout time.Duration) (wire.Event, error) {
	w := s.NewWait(criteria)
	return w.Await(ctx, timeout)
}

// write encodes and transmits one event, reporting it to the tap.
func (s *Session) write(e wire.Event) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}
	if s.tap != nil {
		s.tap.Frame(s.id, s.registry.Name(), DirectionOutbound, e.Type(), e.ID(), data)
	}
	if err := s.conn.WriteMessage(data); err != nil {
		return fmt.Errorf("session: writing %s: %w", e.Type(), err)
	}
	return nil
}

// isExpectedClose reports whether a read error is ordinary transport closure.
// The controller closes the stream after a terminate request, so this path is
// not an error.
func isExpectedClose(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
