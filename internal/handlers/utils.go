package handlers

import (
	"encoding/json"
	"net/http"

	"conversion-gateway/internal/logging"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// writeJSON encodes v as JSON and writes it to the response writer.
// Encoding or write errors are logged since the status line has usually
// been sent already.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONErrorDetails(w, message, "", statusCode)
}

// writeJSONErrorDetails writes an error response carrying tool diagnostics.
func writeJSONErrorDetails(w http.ResponseWriter, message, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	writeJSON(w, ErrorResponse{Error: message, Details: details})
}
