// Package session implements the per-connection dispatch core of the workflow
// runtime.
//
// Each Session owns one ordered bidirectional message stream and routes every
// inbound event down up to three paths:
//
//   - responses carrying a correlation id resolve the matching pending request
//   - notifications are offered to ad-hoc waiters registered with NewWait/WaitFor
//   - notifications are independently dispatched to the workflow's registered
//     handlers, each running as its own goroutine
//
// The read loop never blocks on a handler: handlers typically issue their own
// requests and suspend on the response, which can only arrive through the same
// read loop. Handler panics are recovered at the goroutine boundary and logged;
// they never disturb the loop or other executions.
//
// # Concurrency
//
// Handlers run truly concurrently, so the correlation table and event matcher
// guard their maps with mutexes, and every pending slot resolves exactly once
// regardless of interleaving between a matching arrival, a timeout, and
// session teardown.
package session
