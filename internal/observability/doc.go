// Package observability groups the logging, metrics and tracing helpers
// shared by the worker, the admin API and the command line tools.
//
// Subpackages:
//   - logging: slog construction and context propagation (request_id, cycle_id)
//   - metrics: Prometheus collectors under the feedwatch namespace
//   - tracing: OpenTelemetry spans and HTTP middleware
package observability
