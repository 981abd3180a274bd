// Package prometheus renders goConsole telemetry in the Prometheus text
// exposition format.
//
// [NewPrometheusExporter] wraps a [goConsole.Engine] and exposes an
// [http.Handler]. Counters are named goconsole_*_total and the map load and
// navigation latencies are histograms with second-based bounds. The session
// role, map loader phase and approval breaker state are state sets: one
// labeled gauge per state, 1 for the current one.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
