package transcoder

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"conversion-gateway/internal/logging"
)

const (
	// diagnosticLimit bounds how much tool output is kept per stream.
	diagnosticLimit = 8 * 1024
	// maxLineLength bounds a single buffered output line.
	maxLineLength = 64 * 1024
	// waitDelay bounds how long Wait blocks on output pipes after the child
	// has been killed.
	waitDelay = 5 * time.Second
)

// Executor runs a single tool invocation to completion.
type Executor interface {
	Run(ctx context.Context, inv Invocation) error
}

// ToolFailure reports a tool that failed to start or exited non-zero.
type ToolFailure struct {
	Executable  string
	ExitCode    int // -1 when the process never started or was killed
	Diagnostics string
	Err         error
}

func (f *ToolFailure) Error() string {
	msg := fmt.Sprintf("%s failed: %v", filepath.Base(f.Executable), f.Err)
	if f.Diagnostics != "" {
		msg += "\n" + f.Diagnostics
	}
	return msg
}

func (f *ToolFailure) Unwrap() error {
	return f.Err
}

// commandExecutor spawns tools with os/exec.
type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, inv Invocation) error {
	cmd := exec.CommandContext(ctx, inv.Executable, inv.Args...) //nolint:gosec // argv only, no shell
	cmd.WaitDelay = waitDelay

	name := filepath.Base(inv.Executable)
	stdout := newLineWriter(name+" stdout", diagnosticLimit)
	stderr := newLineWriter(name+" stderr", diagnosticLimit)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return &ToolFailure{Executable: inv.Executable, ExitCode: -1, Err: fmt.Errorf("start: %w", err)}
	}

	waitErr := cmd.Wait()
	stdout.Flush()
	stderr.Flush()
	if waitErr == nil {
		return nil
	}

	diagnostics := stderr.Tail()
	if diagnostics == "" {
		diagnostics = stdout.Tail()
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		waitErr = errors.Join(ctxErr, waitErr)
	}

	return &ToolFailure{
		Executable:  inv.Executable,
		ExitCode:    exitCode(waitErr),
		Diagnostics: diagnostics,
		Err:         waitErr,
	}
}

// lineWriter receives a tool's output stream, logs it line by line and keeps
// the most recent output for diagnostics. Memory use is bounded by the tail
// limit plus one partial line.
type lineWriter struct {
	label   string
	mu      sync.Mutex
	pending []byte
	tail    *tailBuffer
}

func newLineWriter(label string, limit int) *lineWriter {
	return &lineWriter{label: label, tail: newTailBuffer(limit)}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, p...)
	for {
		advance, line, _ := scanLinesWithCR(w.pending, false)
		if advance == 0 {
			break
		}
		w.emit(line)
		w.pending = w.pending[advance:]
	}

	if len(w.pending) > maxLineLength {
		w.emit(w.pending)
		w.pending = w.pending[:0]
	}
	return len(p), nil
}

// Flush emits any trailing partial line.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.pending) > 0 {
		w.emit(w.pending)
		w.pending = nil
	}
}

// Tail returns the retained diagnostic output.
func (w *lineWriter) Tail() string {
	return w.tail.String()
}

func (w *lineWriter) emit(line []byte) {
	if len(line) == 0 {
		return
	}
	s := string(line)
	w.tail.WriteLine(s)
	logging.Debug("[%s] %s", w.label, s)
}

// scanLinesWithCR splits on \n and on the bare \r ffmpeg uses for progress.
func scanLinesWithCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	for i := 0; i < len(data); i++ {
		if data[i] == '\r' || data[i] == '\n' {
			advance = i + 1
			for advance < len(data) && (data[advance] == '\r' || data[advance] == '\n') {
				advance++
			}
			return advance, data[:i], nil
		}
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// tailBuffer retains the last limit bytes of line-oriented output.
type tailBuffer struct {
	mu        sync.Mutex
	limit     int
	buf       []byte
	truncated bool
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) WriteLine(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, line...)
	t.buf = append(t.buf, '\n')
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
		t.truncated = true
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := strings.TrimRight(string(t.buf), "\n")
	if t.truncated && s != "" {
		return "...\n" + s
	}
	return s
}
