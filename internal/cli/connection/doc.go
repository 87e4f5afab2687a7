// Package connection talks to the library catalog REST API.
//
//   - http.go: bearer-token HTTP client, error mapping
//   - library.go: typed calls for every catalog endpoint
//
// Requests carry Accept: application/json, a libcat-cli User-Agent and an
// X-Request-ID. An optional limiter throttles outgoing requests and a
// Prometheus histogram records their latency.
package connection
