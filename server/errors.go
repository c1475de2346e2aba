package server

import "errors"

// ErrPathRegistered is returned when a workflow is already bound to a path.
var ErrPathRegistered = errors.New("server: workflow already registered at path")
