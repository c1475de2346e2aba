// Package telemetry records dispatch metrics to InfluxDB.
//
// Session lifecycle, routing decisions, and handler execution times are
// written as batched, non-blocking points so telemetry can never stall
// event dispatch. When telemetry is disabled in configuration the runtime
// simply passes no metrics sink to the server.
package telemetry
