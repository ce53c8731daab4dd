// Package transcoder runs ffmpeg conversions as child processes.
//
// Two execution modes share one process runner:
//   - Direct mode (ConvertImage) passes an explicit argument list built by
//     BuildImageArgs. JPEG targets force the image2 muxer and mjpeg encoder.
//   - Pipeline mode (ConvertMedia) describes an audio/video job with the
//     Pipeline builder and picks the output container from the target token.
//
// Processes are spawned without a shell. Their stdout and stderr are scanned
// line by line, logged at debug level, and only a bounded tail is kept for
// diagnostics. A non-zero exit or spawn failure resolves to *ToolFailure.
//
// A weighted semaphore bounds concurrently running processes. Canceling the
// caller's context, for example when an HTTP client disconnects, kills the
// child. Cleanup kills every tracked process at shutdown.
package transcoder
