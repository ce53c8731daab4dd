package transcoder

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const probeTimeout = 5 * time.Second

// ToolStatus reports whether an external tool can be executed and its
// version banner.
type ToolStatus struct {
	OK  bool   `json:"ok"`
	Out string `json:"out"`
}

// ProbeTool runs binary with versionFlag and returns the first line of its
// output. Failures are reported in Out with OK=false.
func ProbeTool(ctx context.Context, binary, versionFlag string) ToolStatus {
	if strings.TrimSpace(binary) == "" {
		return ToolStatus{Out: "not configured"}
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return ToolStatus{Out: fmt.Sprintf("%s not found in PATH", binary)}
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, versionFlag).CombinedOutput() //nolint:gosec // fixed argv
	if err != nil {
		return ToolStatus{Out: fmt.Sprintf("%s %s: %v", binary, versionFlag, err)}
	}
	return ToolStatus{OK: true, Out: firstLine(string(out))}
}

// Version probes the configured ffmpeg.
func (t *Transcoder) Version(ctx context.Context) ToolStatus {
	return ProbeTool(ctx, t.ffmpegPath, "-version")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "\r\n"); i != -1 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
