// Package logging provides a small leveled logger for the conversion gateway.
//
// Levels, from most to least verbose:
//   - DEBUG: per-line tool output, workspace bookkeeping
//   - INFO: request outcomes and startup sections
//   - WARN: suppressed cleanup failures, degraded features
//   - ERROR: tool failures and unexpected server errors
//
// The initial level comes from DEBUG=true or LOG_LEVEL. Configuration loaded
// at startup may override it with SetLevel.
package logging
