/*
Package streaming delivers converted artifacts to HTTP clients.

ServeArtifact opens a file, sets Content-Type, Content-Length and an
attachment Content-Disposition, and copies the body through a TimeoutWriter.
The writer applies a per-chunk write deadline through http.ResponseController
and stops as soon as the request context is canceled, so a stalled or
departed client cannot pin a converted file on disk.

	n, err := streaming.ServeArtifact(r.Context(), w, artifact.Path, "photo.png", streaming.DefaultConfig())
	switch {
	case errors.Is(err, streaming.ErrArtifactUnavailable):
		// headers not sent yet; respond with an error status
	case errors.Is(err, streaming.ErrClientGone):
		// the client left mid-transfer
	}

# Errors

  - ErrWriteTimeout: a chunk was not accepted within WriteTimeout.
  - ErrClientGone: the request context was canceled.
  - ErrStreamCanceled: the writer was closed or its context expired.
  - ErrArtifactUnavailable: the file could not be opened; nothing was sent.
*/
package streaming
