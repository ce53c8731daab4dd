// Package middleware provides HTTP middleware for the conversion gateway.
//
// It includes:
//   - Request logging in W3C Extended Log Format, with log-injection sanitizing
//   - Prometheus request metrics labeled by route template
//
// Both response wrappers implement Unwrap so http.ResponseController can
// reach the connection for write deadlines while an artifact is streamed.
package middleware
