package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"conversion-gateway/internal/converter"
	"conversion-gateway/internal/logging"
	"conversion-gateway/internal/metrics"
	"conversion-gateway/internal/streaming"
	"conversion-gateway/internal/transcoder"
	"conversion-gateway/internal/workspace"
)

// Multipart field names accepted by POST /convert.
const (
	fileField   = "file"
	targetField = "target"
)

// maxTargetFieldSize bounds the target text field.
const maxTargetFieldSize = 256

// errUploadStorage marks failures to persist an upload on our side.
var errUploadStorage = errors.New("failed to store upload")

type upload struct {
	artifact  workspace.Artifact
	name      string
	mediaType string
	size      int64
}

// Convert handles POST /convert. The multipart body carries the upload in
// the "file" field and the target format in the "target" field. On success
// the converted file is streamed back as an attachment.
func (h *Handlers) Convert(w http.ResponseWriter, r *http.Request) {
	if h.overloaded() {
		metrics.MemoryShedTotal.Inc()
		w.Header().Set("Retry-After", "5")
		writeJSONError(w, "server under memory pressure, retry later", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadSize)

	up, target, err := h.readUpload(r)
	if err != nil {
		h.writeUploadError(w, err)
		return
	}
	if up.artifact.Path != "" {
		logging.Debug("Stored upload %q (%s, %d bytes) as %s", up.name, up.mediaType, up.size, up.artifact.Name())
	}

	req := converter.Request{
		SourcePath:   up.artifact.Path,
		MediaType:    up.mediaType,
		Target:       target,
		OriginalName: up.name,
	}

	started := false
	err = h.converter.Convert(r.Context(), req, func(ctx context.Context, a workspace.Artifact, downloadName string) error {
		_, serr := streaming.ServeArtifact(ctx, w, a.Path, downloadName, h.delivery)
		started = !errors.Is(serr, streaming.ErrArtifactUnavailable)
		return serr
	})
	if err != nil {
		h.writeConvertError(w, err, started)
	}
}

// readUpload streams the multipart body, writing the file part straight into
// the intake root. On error any stored upload has already been released.
func (h *Handlers) readUpload(r *http.Request) (up upload, target string, err error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return upload{}, "", &converter.ValidationError{Reason: "expected a multipart/form-data body"}
	}

	defer func() {
		if err != nil && up.artifact.Path != "" {
			h.workspace.Release(up.artifact)
			up = upload{}
		}
	}()

	for {
		part, perr := mr.NextPart()
		if errors.Is(perr, io.EOF) {
			return up, target, nil
		}
		if perr != nil {
			return up, target, perr
		}

		switch {
		case part.FormName() == targetField && part.FileName() == "":
			target, err = readField(part, maxTargetFieldSize)
		case part.FormName() == fileField && part.FileName() != "":
			if up.artifact.Path != "" {
				err = &converter.ValidationError{Reason: "only one file may be uploaded"}
				break
			}
			up, err = h.storeUpload(part)
		default:
			_, err = io.Copy(io.Discard, part)
		}
		_ = part.Close()
		if err != nil {
			return up, target, err
		}
	}
}

func (h *Handlers) storeUpload(part *multipart.Part) (upload, error) {
	a, f, err := h.workspace.Create(workspace.RoleInput, "")
	if err != nil {
		return upload{}, fmt.Errorf("%w: %w", errUploadStorage, err)
	}

	n, copyErr := io.Copy(f, part)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		h.workspace.Release(a)
		if copyErr != nil {
			// Read errors come from the client or the size limit.
			return upload{}, copyErr
		}
		return upload{}, fmt.Errorf("%w: %w", errUploadStorage, closeErr)
	}

	return upload{
		artifact:  a,
		name:      part.FileName(),
		mediaType: normalizeMediaType(part.Header.Get("Content-Type")),
		size:      n,
	}, nil
}

func readField(part *multipart.Part, limit int64) (string, error) {
	b, err := io.ReadAll(io.LimitReader(part, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(b)) > limit {
		return "", &converter.ValidationError{Reason: fmt.Sprintf("field %q is too large", part.FormName())}
	}
	return string(b), nil
}

// normalizeMediaType strips parameters and lowercases the declared type.
// Unparseable values are passed through lowercased so they classify as
// unsupported.
func normalizeMediaType(raw string) string {
	if mt, _, err := mime.ParseMediaType(raw); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(raw))
}

func (h *Handlers) writeUploadError(w http.ResponseWriter, err error) {
	var (
		tooLarge   *http.MaxBytesError
		validation *converter.ValidationError
	)
	switch {
	case errors.As(err, &tooLarge):
		logging.Warn("Upload rejected: exceeds %d bytes", tooLarge.Limit)
		writeJSONError(w, fmt.Sprintf("upload exceeds the %d byte limit", tooLarge.Limit), http.StatusRequestEntityTooLarge)
	case errors.As(err, &validation):
		writeJSONError(w, validation.Reason, http.StatusBadRequest)
	case errors.Is(err, errUploadStorage):
		logging.Error("Upload failed: %v", err)
		writeJSONError(w, "failed to store upload", http.StatusInternalServerError)
	default:
		logging.Warn("Malformed upload: %v", err)
		writeJSONError(w, "malformed multipart body", http.StatusBadRequest)
	}
}

// writeConvertError maps a conversion error to a response. started reports
// whether the artifact response had already begun, in which case nothing
// more can be sent.
func (h *Handlers) writeConvertError(w http.ResponseWriter, err error, started bool) {
	var (
		validation *converter.ValidationError
		transport  *converter.TransportError
		failure    *converter.ToolFailure
	)
	switch {
	case errors.As(err, &transport):
		if !started {
			writeJSONError(w, "failed to deliver converted file", http.StatusInternalServerError)
		}
	case errors.As(err, &validation):
		writeJSONError(w, validation.Reason, http.StatusBadRequest)
	case errors.Is(err, converter.ErrUnsupportedFormat):
		writeJSONError(w, "Unsupported format", http.StatusBadRequest)
	case errors.Is(err, transcoder.ErrBusy), errors.Is(err, transcoder.ErrShuttingDown):
		w.Header().Set("Retry-After", "5")
		writeJSONError(w, "no conversion slot available, retry later", http.StatusServiceUnavailable)
	case converter.IsClientGone(err):
		if h.transcoder != nil && h.transcoder.ShuttingDown() {
			w.Header().Set("Retry-After", "5")
			writeJSONError(w, "server is shutting down", http.StatusServiceUnavailable)
		}
	case errors.As(err, &failure):
		writeJSONErrorDetails(w, "conversion failed", failure.Error(), http.StatusInternalServerError)
	default:
		writeJSONErrorDetails(w, "conversion failed", err.Error(), http.StatusInternalServerError)
	}
}
