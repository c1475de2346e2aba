// Package journal persists workflow session frames to SQLite.
//
// Every inbound and outbound frame is recorded with its session, direction,
// discriminator, and correlation id, giving an audit trail that can replay a
// session after the fact. Journalling is best-effort: a failed insert never
// disturbs dispatch.
package journal
