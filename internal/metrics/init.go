package metrics

// Label values shared with the recording packages.
var (
	Strategies = []string{"image", "audio_video", "unsupported"}
	Outcomes   = []string{"success", "tool_failure", "unsupported_format", "validation_error", "transport_error"}
	ToolModes  = []string{"direct", "pipeline"}
	Roles      = []string{"input", "output"}
)

// InitializeMetrics pre-populates the expected label combinations so that
// every series is exported from the first scrape.
func InitializeMetrics() {
	for _, s := range Strategies {
		for _, o := range Outcomes {
			ConversionsTotal.WithLabelValues(s, o)
		}
		ConversionDuration.WithLabelValues(s)
	}

	for _, m := range ToolModes {
		ToolInvocationsTotal.WithLabelValues(m, "success")
		ToolInvocationsTotal.WithLabelValues(m, "error")
		ToolDuration.WithLabelValues(m)
	}

	for _, r := range Roles {
		WorkspaceAllocationsTotal.WithLabelValues(r)
		WorkspaceReleaseErrors.WithLabelValues(r)
		WorkspaceFiles.WithLabelValues(r)
		WorkspaceBytes.WithLabelValues(r)
	}
}
