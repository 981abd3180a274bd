// Package loader provides [Loader], an at-most-one-in-flight loader for an
// external resource with bounded retries, linear backoff and a per-attempt
// timeout.
//
// # Single flight
//
// Every Load issued while a load chain is running joins that chain and
// observes its outcome. A loaded resource is cached for the life of the
// Loader; a failed chain is forgotten so the next Load starts over.
//
// # Injection
//
// The resource itself is produced by an [Injector]. Each attempt gets a fresh
// request id; the injector later reports readiness or failure for that id
// through the [Signal] it was handed. Signals for ids whose attempt already
// timed out are dropped.
package loader
