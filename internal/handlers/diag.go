package handlers

import (
	"net/http"

	"conversion-gateway/internal/transcoder"
)

// DiagResponse reports the external tools available to the gateway.
type DiagResponse struct {
	FFmpeg      string                `json:"ffmpeg"`
	LibreOffice transcoder.ToolStatus `json:"libreoffice"`
}

// Diag handles GET /diag. It returns the ffmpeg version banner and the
// LibreOffice probe result. A missing ffmpeg is a 500 since no conversion
// can succeed without it; LibreOffice is informational.
func (h *Handlers) Diag(w http.ResponseWriter, r *http.Request) {
	ffmpeg := h.transcoder.Version(r.Context())
	if !ffmpeg.OK {
		writeJSONError(w, ffmpeg.Out, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, DiagResponse{
		FFmpeg:      ffmpeg.Out,
		LibreOffice: transcoder.ProbeTool(r.Context(), h.config.SofficePath, "--version"),
	})
}
