// Package prometheus renders authsession metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] reads [authsession.Manager.MetricsSnapshot] on every
// scrape. Counter names are authsession_*_total; the only histogram is
// authsession_remote_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global registry; callers mount the Handler.
//   - Mutate session state.
package prometheus
