// Package metric provides Prometheus metrics for the xpipe client.
//
// A Registry owns its own prometheus.Registry so that several clients in
// one process (or several tests) do not collide on metric registration.
// The CLI uses Global and can expose it through Handler.
//
// Metrics:
//
//   - xpipe_client_requests_total{endpoint,code}
//   - xpipe_client_request_duration_seconds{endpoint}
//   - xpipe_client_logins_total{result}
//   - xpipe_client_shells_open
//   - xpipe_client_shells_started_total
//   - xpipe_client_commands_total{outcome}
//   - xpipe_client_blob_bytes_total
package metric
