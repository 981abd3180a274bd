// Package otel publishes goConsole telemetry through an OpenTelemetry Meter.
//
// [NewOTelExporter] registers observable counters for the Engine counters,
// one observable gauge per histogram carrying an le attribute per bucket,
// and attributed gauges for the session role, map loader phase and approval
// breaker state. A single callback reads [goConsole.Engine.Telemetry] on each
// collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
