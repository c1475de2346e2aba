// Package server exposes workflow programs as websocket endpoints.
//
// The controller opens one websocket per workflow instance against the path
// the workflow was registered on. The server upgrades the connection and runs
// a session for it; an unregistered path is refused before the upgrade. Each
// connection gets its own session with its own correlation state, so any
// number of instances of the same workflow can run concurrently.
//
// The server follows the usual lifecycle:
//
//	srv, err := server.New(deps)
//	srv.Register("/hellowf", wf)
//	srv.Start(ctx)
package server
