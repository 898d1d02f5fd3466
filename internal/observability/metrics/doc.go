// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes the monitoring pipeline metrics:
//   - Cycle outcomes, duration and last success time
//   - Per-kind fetch errors and item outcomes (fetched, stale, matched, staged)
//   - Notification results per channel
//   - HTTP request metrics for the admin surface
//
// All metrics are registered with the Prometheus default registry and exposed
// via the /metrics endpoint.
//
// Example usage:
//
//	import "feedwatch/internal/observability/metrics"
//
//	func runSource(kind string) {
//	    metrics.RecordItems(kind, metrics.OutcomeFetched, 10)
//	    metrics.RecordSourceFetchError(kind)
//	}
package metrics
