package streaming

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"conversion-gateway/internal/filesystem"
	"conversion-gateway/internal/logging"
	"conversion-gateway/internal/mediatypes"
	"conversion-gateway/internal/metrics"
)

// ErrArtifactUnavailable is returned when the artifact could not be opened.
// Nothing has been written to the response in that case, so the caller may
// still send an error status.
var ErrArtifactUnavailable = errors.New("artifact unavailable")

// ServeArtifact streams the file at path as an attachment named
// downloadName. The content type is derived from the file extension.
// It returns the number of body bytes written.
func ServeArtifact(ctx context.Context, w http.ResponseWriter, path, downloadName string, config Config) (int64, error) {
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrArtifactUnavailable, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrArtifactUnavailable, err)
	}

	target := strings.TrimPrefix(filepath.Ext(path), ".")
	h := w.Header()
	h.Set("Content-Type", mediatypes.ContentTypeFor(target))
	h.Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	h.Set("Content-Disposition", contentDisposition(downloadName))
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	tw := NewTimeoutWriter(ctx, w, config)
	defer func() {
		if err := tw.Close(); err != nil {
			logging.Warn("Failed to close timeout writer: %v", err)
		}
	}()

	_, err = io.Copy(tw, f)

	written, duration := tw.Stats()
	metrics.DeliveredBytesTotal.Add(float64(written))
	logging.Debug("Delivered %s: %d/%d bytes in %v", downloadName, written, info.Size(), duration)

	return written, err
}

func contentDisposition(name string) string {
	if name == "" {
		return "attachment"
	}
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}
