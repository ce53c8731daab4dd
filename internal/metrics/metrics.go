package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversion_gateway_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conversion_gateway_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "conversion_gateway_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Conversion metrics
var (
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversion_gateway_conversions_total",
			Help: "Total number of conversion requests by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	ConversionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conversion_gateway_conversion_duration_seconds",
			Help:    "End-to-end conversion duration in seconds, including delivery",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"strategy"},
	)

	ConversionsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "conversion_gateway_conversions_in_progress",
			Help: "Number of conversions currently being processed",
		},
	)

	DeliveredBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversion_gateway_delivered_bytes_total",
			Help: "Total number of converted bytes streamed to clients",
		},
	)
)

// Tool metrics
var (
	ToolInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversion_gateway_tool_invocations_total",
			Help: "Total number of external tool invocations by mode and status",
		},
		[]string{"mode", "status"}, // mode: "direct" or "pipeline"
	)

	ToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conversion_gateway_tool_duration_seconds",
			Help:    "External tool run time in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"mode"},
	)

	ToolSlotsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "conversion_gateway_tool_slots_in_use",
			Help: "Number of conversion slots currently held by running tools",
		},
	)

	ToolSlotWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "conversion_gateway_tool_slot_wait_seconds",
			Help:    "Time spent waiting for a free conversion slot",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30},
		},
	)
)

// Workspace metrics
var (
	WorkspaceAllocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversion_gateway_workspace_allocations_total",
			Help: "Total number of workspace artifacts allocated by role",
		},
		[]string{"role"},
	)

	WorkspaceReleaseErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversion_gateway_workspace_release_errors_total",
			Help: "Total number of suppressed artifact deletion failures by role",
		},
		[]string{"role"},
	)

	WorkspaceFiles = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "conversion_gateway_workspace_files",
			Help: "Number of files currently present in each workspace root",
		},
		[]string{"role"},
	)

	WorkspaceBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "conversion_gateway_workspace_bytes",
			Help: "Total size of files currently present in each workspace root",
		},
		[]string{"role"},
	)
)

// Runtime metrics
var (
	GoMemAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "conversion_gateway_go_mem_alloc_bytes",
			Help: "Current Go heap allocation in bytes",
		},
	)

	GoGoroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "conversion_gateway_go_goroutines",
			Help: "Number of goroutines",
		},
	)
)

// Memory pressure metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "conversion_gateway_memory_usage_ratio",
			Help: "Go heap allocation as a share of the memory limit",
		},
	)

	MemoryOverloaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "conversion_gateway_memory_overloaded",
			Help: "Whether new conversions are refused due to memory pressure (1 = refusing)",
		},
	)

	MemoryShedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversion_gateway_memory_shed_total",
			Help: "Total number of conversion requests refused due to memory pressure",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversion_gateway_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retries after a stale file handle",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversion_gateway_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversion_gateway_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversion_gateway_filesystem_stale_errors_total",
			Help: "Total number of ESTALE errors returned by filesystem operations",
		},
		[]string{"operation", "volume"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "conversion_gateway_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
