// Package wire defines the tagged-JSON message format spoken on a workflow
// stream.
//
// Every message is a flat JSON object with a discriminator under "_type",
// an optional correlation id under "_id" (present on requests and their
// matching responses), and discriminator-specific payload fields. Responses
// may arrive interleaved relative to their requests; the correlation id, not
// stream order, establishes the relationship.
//
// Decode also papers over two controller quirks: string fields occasionally
// delivered as arrays of character codes, and JSON null values that must not
// be transmitted back on requests.
package wire
