package handlers

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"conversion-gateway/internal/startup"
)

const (
	statusHealthy      = "healthy"
	statusDegraded     = "degraded"
	statusShuttingDown = "shutting_down"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	// Conversion capacity
	ActiveConversions int `json:"activeConversions"`
	ConversionSlots   int `json:"conversionSlots"`

	// Workspace usage
	IntakeFiles int   `json:"intakeFiles"`
	OutputFiles int   `json:"outputFiles"`
	OutputBytes int64 `json:"outputBytes"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// status returns the overall state and whether new conversions are accepted.
func (h *Handlers) status() (string, bool) {
	if h.transcoder.ShuttingDown() {
		return statusShuttingDown, false
	}
	if h.overloaded() {
		return statusDegraded, false
	}
	for _, dir := range []string{h.workspace.IntakeDir(), h.workspace.OutputDir()} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return statusDegraded, false
		}
	}
	return statusHealthy, true
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	status, ready := h.status()
	stats := h.workspace.GetStats()

	response := HealthResponse{
		Status:            status,
		Ready:             ready,
		Version:           startup.Version,
		Uptime:            time.Since(h.startTime).Round(time.Second).String(),
		ActiveConversions: h.transcoder.ActiveProcesses(),
		ConversionSlots:   h.transcoder.MaxConcurrent(),
		IntakeFiles:       stats.Intake.Files,
		OutputFiles:       stats.Output.Files,
		OutputBytes:       stats.Output.Bytes,
		GoVersion:         runtime.Version(),
		NumCPU:            runtime.NumCPU(),
		NumGoroutine:      runtime.NumGoroutine(),
	}

	w.Header().Set("Content-Type", "application/json")
	if ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the workspace is usable and the
// service is not shutting down.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, ready := h.status(); ready {
		w.WriteHeader(http.StatusOK)
		writeJSON(w, map[string]string{
			"status": "ready",
		})
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{
			"status": "not_ready",
		})
	}
}
