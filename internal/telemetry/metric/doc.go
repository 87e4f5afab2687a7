// Package metric provides Prometheus metrics for libcat-cli.
//
// A CLI process is short-lived, so metrics are not scraped. They are
// collected into a private registry and written out in the node-exporter
// textfile format when metrics.textfile is configured:
//
//   - auth operations by operation and result
//   - profile fetches by result (success, failure, dropped, stale)
//   - navigations by intent
//   - authenticated-session gauge
//   - backend request latency
package metric
