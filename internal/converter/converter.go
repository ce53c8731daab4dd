package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"conversion-gateway/internal/logging"
	"conversion-gateway/internal/mediatypes"
	"conversion-gateway/internal/metrics"
	"conversion-gateway/internal/workspace"
)

// Request describes one conversion. SourcePath must be a file inside the
// intake root; ownership of it passes to Convert, which always releases it.
type Request struct {
	SourcePath   string
	MediaType    string
	Target       string
	OriginalName string
}

// DeliverFunc streams a converted artifact to the caller. It must return
// once the transfer has finished or failed; the artifact is released as
// soon as it returns.
type DeliverFunc func(ctx context.Context, artifact workspace.Artifact, downloadName string) error

// Engine is the subset of the transcoder the converter drives.
type Engine interface {
	ConvertImage(ctx context.Context, input, output, target string) error
	ConvertMedia(ctx context.Context, input, output, target string) error
}

// Converter dispatches conversion requests and guarantees artifact cleanup.
type Converter struct {
	workspace *workspace.Manager
	engine    Engine
}

// New creates a Converter.
func New(ws *workspace.Manager, engine Engine) *Converter {
	return &Converter{workspace: ws, engine: engine}
}

// Convert validates req, runs the matching conversion strategy and, on
// success, hands the output to deliver. The input artifact and any output
// artifact are released before Convert returns, whatever the outcome.
//
// The returned error is nil on success, or one of *ValidationError,
// ErrUnsupportedFormat, *ToolFailure (possibly wrapped) or *TransportError.
func (c *Converter) Convert(ctx context.Context, req Request, deliver DeliverFunc) (err error) {
	start := time.Now()
	strategy := mediatypes.StrategyUnsupported

	metrics.ConversionsInProgress.Inc()
	defer func() {
		metrics.ConversionsInProgress.Dec()
		outcome := OutcomeOf(err)
		metrics.ConversionsTotal.WithLabelValues(string(strategy), string(outcome)).Inc()
		metrics.ConversionDuration.WithLabelValues(string(strategy)).Observe(time.Since(start).Seconds())
		logging.Info("Conversion %s -> %s finished: %s (%s, %v)",
			displayName(req), req.Target, outcome, strategy, time.Since(start).Round(time.Millisecond))
	}()

	input := workspace.Artifact{Path: req.SourcePath, Role: workspace.RoleInput}
	defer c.workspace.Release(input)

	target := mediatypes.NormalizeTarget(req.Target)
	if verr := validate(req.SourcePath, target); verr != nil {
		return verr
	}
	req.Target = target

	strategy = mediatypes.Classify(req.MediaType)
	logging.Info("Convert request: %s (%s) -> %s [%s]", displayName(req), req.MediaType, target, strategy)

	if strategy == mediatypes.StrategyUnsupported {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, req.MediaType)
	}

	output := c.workspace.Allocate(workspace.RoleOutput, target)
	defer c.workspace.Release(output)

	switch strategy {
	case mediatypes.StrategyImage:
		err = c.engine.ConvertImage(ctx, input.Path, output.Path, target)
	case mediatypes.StrategyAudioVideo:
		err = c.engine.ConvertMedia(ctx, input.Path, output.Path, target)
	}
	if err != nil {
		if IsClientGone(err) {
			logging.Info("Conversion of %s aborted: client disconnected", displayName(req))
		} else {
			logging.Error("%s conversion failed: %v", strategy, err)
		}
		return err
	}

	if err := verifyOutput(output.Path); err != nil {
		logging.Error("%s conversion produced no output: %v", strategy, err)
		return err
	}
	logging.Debug("Converted %s -> %s", input.Path, output.Path)

	if derr := deliver(ctx, output, downloadName(req.OriginalName, output, target)); derr != nil {
		logging.Warn("Error sending file %s: %v", output.Name(), derr)
		return &TransportError{Err: derr}
	}
	return nil
}

func validate(sourcePath, target string) error {
	if strings.TrimSpace(sourcePath) == "" {
		return &ValidationError{Reason: "file is required"}
	}
	if target == "" {
		return &ValidationError{Reason: "target is required"}
	}
	if !mediatypes.ValidTarget(target) {
		return &ValidationError{Reason: fmt.Sprintf("invalid target format %q", target)}
	}
	info, err := os.Stat(sourcePath)
	if err != nil {
		return &ValidationError{Reason: "uploaded file is not available"}
	}
	if !info.Mode().IsRegular() {
		return &ValidationError{Reason: "uploaded file is not a regular file"}
	}
	return nil
}

// verifyOutput rejects a tool run that reported success without writing a
// usable file.
func verifyOutput(path string) error {
	info, err := os.Stat(path)
	if err == nil && info.Size() > 0 {
		return nil
	}

	reason := "output file is empty"
	if err != nil {
		reason = "output file was not created"
	}
	return &ToolFailure{
		Executable:  "ffmpeg",
		ExitCode:    0,
		Diagnostics: reason,
		Err:         errors.New("tool reported success without output"),
	}
}

// downloadName suggests "<original stem>.<target>", falling back to the
// generated artifact name.
func downloadName(original string, output workspace.Artifact, target string) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '"' || r == '/' {
			return -1
		}
		return r
	}, stem)
	stem = strings.TrimSpace(stem)
	if stem == "" || stem == "." || stem == ".." {
		return output.Name()
	}
	return stem + "." + target
}

func displayName(req Request) string {
	if req.OriginalName != "" {
		return fmt.Sprintf("%q", req.OriginalName)
	}
	return filepath.Base(req.SourcePath)
}
