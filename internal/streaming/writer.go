package streaming

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"
)

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout indicates that a write did not complete within
	// WriteTimeout, usually because the client stopped reading.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates that the request context was canceled before
	// the stream completed.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled indicates that the writer was closed or its context
	// expired for a reason other than the client leaving.
	ErrStreamCanceled = errors.New("stream canceled")
)

// Config controls how artifacts are written to clients.
type Config struct {
	// WriteTimeout bounds each chunk written to the connection.
	WriteTimeout time.Duration
	// ChunkSize splits large writes so cancellation and deadlines are
	// checked regularly. Zero writes buffers as received.
	ChunkSize int
}

// DefaultConfig returns the delivery defaults.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 30 * time.Second,
		ChunkSize:    64 * 1024,
	}
}

// TimeoutWriter wraps an http.ResponseWriter with per-chunk write deadlines
// and request-context cancellation. Deadlines are applied through
// http.ResponseController and silently skipped when the underlying writer
// does not support them.
type TimeoutWriter struct {
	w      http.ResponseWriter
	rc     *http.ResponseController
	ctx    context.Context
	config Config

	mu           sync.Mutex
	start        time.Time
	bytesWritten int64
	closed       bool
	noDeadlines  bool
}

// NewTimeoutWriter creates a writer bound to ctx.
func NewTimeoutWriter(ctx context.Context, w http.ResponseWriter, config Config) *TimeoutWriter {
	return &TimeoutWriter{
		w:      w,
		rc:     http.NewResponseController(w),
		ctx:    ctx,
		config: config,
		start:  time.Now(),
	}
}

// Write implements io.Writer.
func (tw *TimeoutWriter) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		chunk := p
		if tw.config.ChunkSize > 0 && len(chunk) > tw.config.ChunkSize {
			chunk = p[:tw.config.ChunkSize]
		}

		n, err := tw.writeChunk(chunk)
		total += n
		if err != nil {
			return total, err
		}
		p = p[len(chunk):]
	}
	return total, nil
}

func (tw *TimeoutWriter) writeChunk(p []byte) (int, error) {
	tw.mu.Lock()
	if tw.closed {
		tw.mu.Unlock()
		return 0, ErrStreamCanceled
	}
	if err := tw.ctx.Err(); err != nil {
		tw.mu.Unlock()
		return 0, tw.contextError()
	}
	tw.setDeadline(time.Now().Add(tw.config.WriteTimeout))
	tw.mu.Unlock()

	n, err := tw.w.Write(p)

	tw.mu.Lock()
	tw.bytesWritten += int64(n)
	tw.mu.Unlock()

	if err != nil {
		return n, tw.classify(err)
	}
	if ferr := tw.rc.Flush(); ferr != nil && !errors.Is(ferr, http.ErrNotSupported) {
		return n, tw.classify(ferr)
	}
	return n, nil
}

// setDeadline must be called with mu held.
func (tw *TimeoutWriter) setDeadline(deadline time.Time) {
	if tw.noDeadlines || tw.config.WriteTimeout <= 0 {
		return
	}
	if err := tw.rc.SetWriteDeadline(deadline); errors.Is(err, http.ErrNotSupported) {
		tw.noDeadlines = true
	}
}

func (tw *TimeoutWriter) classify(err error) error {
	switch {
	case tw.ctx.Err() != nil:
		return tw.contextError()
	case errors.Is(err, os.ErrDeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrWriteTimeout, err)
	default:
		return err
	}
}

func (tw *TimeoutWriter) contextError() error {
	if errors.Is(tw.ctx.Err(), context.Canceled) {
		return ErrClientGone
	}
	return ErrStreamCanceled
}

// Close stops further writes and clears any pending write deadline. It is
// safe to call more than once.
func (tw *TimeoutWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.closed {
		return nil
	}
	tw.closed = true
	if !tw.noDeadlines && tw.config.WriteTimeout > 0 {
		_ = tw.rc.SetWriteDeadline(time.Time{})
	}
	return nil
}

// Stats returns the bytes written so far and the elapsed time.
func (tw *TimeoutWriter) Stats() (bytesWritten int64, duration time.Duration) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.bytesWritten, time.Since(tw.start)
}
