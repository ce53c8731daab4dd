// Package handlers provides the HTTP handlers of the conversion gateway.
//
// It includes handlers for:
//   - POST /convert: multipart upload, conversion and download
//   - GET /diag: ffmpeg and LibreOffice availability
//   - Health, liveness and readiness probes
//   - Build and version information
//
// Errors are returned as JSON objects of the form
// {"error": "...", "details": "..."}. Conversion outcomes map to status
// codes as follows: validation errors and unsupported media types are 400,
// oversized uploads 413, tool failures 500 with ffmpeg diagnostics in
// details, and a missing conversion slot 503.
package handlers
