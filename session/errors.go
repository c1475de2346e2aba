package session

import "errors"

// Errors surfaced to workflow code. Everything else that goes wrong on the
// stream (unknown correlation ids, unhandled events, handler panics) is
// session-internal and observable only through logs.
var (
	// ErrTimeout is returned when no correlated response or matching event
	// arrives within the caller's bound. The pending entry is removed, so a
	// late arrival cannot misdeliver into the abandoned slot.
	ErrTimeout = errors.New("session: timed out")

	// ErrClosed is returned when an operation is attempted on, or suspended
	// across, a session whose transport has closed.
	ErrClosed = errors.New("session: closed")
)

// ProtocolError reports a server-side failure response to a request. The
// message is the controller's own error text, propagated verbatim to the
// awaiting routine.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return "session: controller error: " + e.Message
}
