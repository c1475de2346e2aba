// Package workflow defines workflow programs: immutable registries mapping
// event discriminators to handler routines.
//
// Most events resolve by exact discriminator. Button and notification events
// carry two secondary dimensions (button identity and tap count, notification
// name and acknowledgement kind) that registrations may pin exactly or leave
// as the "*" wildcard; resolution picks the most specific registration with
// the first dimension breaking ties over the second.
//
// A Workflow is registered once with a server path and then shared read-only
// by every session that connects to it.
package workflow
