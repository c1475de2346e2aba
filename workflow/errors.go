package workflow

import "errors"

// Domain errors for the workflow package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, workflow.ErrDuplicateHandler) {
//	    // handle duplicate registration
//	}
var (
	// ErrDuplicateHandler is returned when a handler key is registered twice.
	ErrDuplicateHandler = errors.New("workflow: handler already registered")

	// ErrNilHandler is returned when registering a nil handler.
	ErrNilHandler = errors.New("workflow: nil handler")
)
