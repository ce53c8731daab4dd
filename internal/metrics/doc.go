// Package metrics provides Prometheus instrumentation for the conversion gateway.
//
// All metrics are prefixed with "conversion_gateway_" and registered with the
// default registry through promauto. The metrics server mounts
// promhttp.Handler() on /metrics.
//
// # Metric Categories
//
// HTTP: request totals, durations and in-flight requests, recorded by the
// middleware package.
//
// Conversions: ConversionsTotal by strategy ("image", "audio_video",
// "unsupported") and outcome ("success", "tool_failure",
// "unsupported_format", "validation_error", "transport_error"), end-to-end
// duration, conversions in progress and bytes delivered.
//
// Tools: ffmpeg invocations by mode ("direct" or "pipeline") and status, tool
// run time, held conversion slots and time spent waiting for a slot.
//
// Workspace: allocations by role, suppressed release failures, and the file
// count and byte size of each root, refreshed by [Collector].
//
// Example PromQL, tool failure ratio:
//
//	sum(rate(conversion_gateway_conversions_total{outcome="tool_failure"}[5m]))
//	  / sum(rate(conversion_gateway_conversions_total[5m]))
package metrics
