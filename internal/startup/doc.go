// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// [LoadConfig] starts from [DefaultConfig], applies the TOML file named by
// CONFIG_FILE if set, then applies environment variables. Environment
// variables always win. The following are supported:
//
//   - CONFIG_FILE: Optional TOML file with the snake_case keys below
//   - PORT: HTTP server port (default: 3000)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - INTAKE_DIR: Directory for uploaded files (default: uploads)
//   - OUTPUT_DIR: Directory for converted files (default: converted)
//   - FFMPEG_PATH: ffmpeg executable (default: ffmpeg)
//   - SOFFICE_PATH: LibreOffice executable reported by /diag (default: soffice)
//   - MAX_UPLOAD_SIZE: Upload limit, bytes or with KB/MB/GB suffix (default: 512MB)
//   - MAX_CONCURRENT_CONVERSIONS: Concurrent ffmpeg processes, 0 for automatic
//   - CONVERSION_TIMEOUT: Per-conversion limit as Go duration, 0 for none (default: 10m)
//   - STALE_ARTIFACT_AGE: Age after which orphaned files are swept at startup (default: 1h)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: false)
//
// Invalid environment values are logged and ignored. Invalid file values
// are returned as errors, since they were written on purpose.
//
// Example file:
//
//	port = "8080"
//	intake_dir = "/var/lib/gateway/uploads"
//	output_dir = "/var/lib/gateway/converted"
//	max_upload_size = "1GB"
//	conversion_timeout = "5m"
//
// # Startup Logging
//
// Startup progress is logged in sections separated by rule lines with [OK]
// markers for completed checks. The ASCII banner is printed only when stdout
// is a terminal, so container logs stay free of it.
//
// # Build Information
//
// Version, Commit and BuildTime are injected with -ldflags:
//
//	go build -ldflags "-X conversion-gateway/internal/startup.Version=1.2.0"
package startup
