// Package converter turns an uploaded file into a converted artifact.
//
// A conversion validates the requested target, classifies the declared
// media type into a strategy (image, audio/video or unsupported), runs the
// transcoder and hands the output to a delivery callback. Every artifact
// the conversion touched is released before Convert returns, including on
// validation errors, tool failures and client disconnects.
//
// Errors returned by Convert fall into a small taxonomy that callers map to
// responses:
//
//   - *ValidationError: the request was malformed; no tool ran.
//   - ErrUnsupportedFormat: no strategy exists for the media type.
//   - *ToolFailure: ffmpeg failed or produced no output.
//   - *TransportError: the result could not be delivered.
package converter
