package wire

import "errors"

// ErrMissingType is returned when a decoded frame has no discriminator field.
var ErrMissingType = errors.New("wire: event has no _type field")
