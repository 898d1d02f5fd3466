// Package tracing provides OpenTelemetry tracing integration.
//
// Spans are created through the global tracer provider. The worker wraps each
// monitoring cycle in a "monitor.cycle" span and each source pass in a
// "monitor.source" span; admin HTTP requests are traced by Middleware.
package tracing
