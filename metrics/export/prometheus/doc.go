// Package prometheus renders coordinator metrics in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] accepts a [sessionkit.Coordinator] and exposes an
// [net/http.Handler] that renders all counters. Counter names are prefixed
// sessionkit_*_total.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the
//     Handler.
//   - Mutate coordinator state.
package prometheus
