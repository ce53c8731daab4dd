// Package main provides the entry point for the conversion gateway.
//
// The gateway accepts a file upload together with a target format over
// HTTP, converts it with ffmpeg and streams the result back as an attachment.
// Nothing is persisted: every upload and every converted artifact is removed
// once the request finishes, whatever its outcome.
//
// # Commands
//
//	conversion-gateway [serve]   run the HTTP server (default)
//	conversion-gateway diag      print ffmpeg/LibreOffice availability as JSON
//	conversion-gateway version   print build information
//
// diag exits non-zero when ffmpeg cannot be executed.
//
// # Application Lifecycle
//
//  1. Configuration Loading: defaults, optional CONFIG_FILE (TOML), then
//     environment variables; the intake and output directories are created
//     and checked for write access
//  2. Workspace Sweep: artifacts older than STALE_ARTIFACT_AGE, left by a
//     previous run, are removed
//  3. Transcoder: a bounded pool of conversion slots sized from
//     MAX_CONCURRENT_CONVERSIONS or GOMAXPROCS
//  4. HTTP Server Setup: routes, metrics and access-log middleware
//  5. Graceful Shutdown: SIGINT/SIGTERM kill running ffmpeg children, then
//     drain the servers
//
// # HTTP Server
//
// The application runs two HTTP servers:
//
//  1. Main Server (default port 3000):
//     - POST /convert: multipart fields "file" and "target"
//     - GET /diag: external tool report
//     - /health, /healthz, /livez, /readyz and /version
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//
// # Environment Variables
//
//   - PORT, METRICS_PORT, METRICS_ENABLED
//   - INTAKE_DIR, OUTPUT_DIR: workspace roots (default: uploads, converted)
//   - FFMPEG_PATH, SOFFICE_PATH: external tools
//   - MAX_UPLOAD_SIZE: upload limit, e.g. 512MB
//   - MAX_CONCURRENT_CONVERSIONS: ffmpeg processes allowed at once
//   - CONVERSION_TIMEOUT: per-conversion limit (0 disables)
//   - STALE_ARTIFACT_AGE: age at which orphaned artifacts are swept
//   - LOG_LEVEL, LOG_HEALTH_CHECKS
//   - CONFIG_FILE: optional TOML file with the same settings in snake_case
//
// # Related Packages
//
//   - [conversion-gateway/internal/converter]: request orchestration
//   - [conversion-gateway/internal/transcoder]: ffmpeg invocation
//   - [conversion-gateway/internal/workspace]: artifact lifecycle
//   - [conversion-gateway/internal/handlers]: HTTP handlers
//   - [conversion-gateway/internal/startup]: configuration and initialization
package main
