package transcoder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"conversion-gateway/internal/logging"
	"conversion-gateway/internal/metrics"

	"golang.org/x/sync/semaphore"
)

// Sentinel errors for slot acquisition and shutdown.
var (
	// ErrBusy indicates that no conversion slot became free before the
	// caller's context ended.
	ErrBusy = errors.New("no conversion slot available")

	// ErrShuttingDown indicates that Cleanup has been called and no new
	// tool runs are accepted.
	ErrShuttingDown = errors.New("transcoder is shutting down")
)

// Execution modes, used as metric labels.
const (
	ModeDirect   = "direct"
	ModePipeline = "pipeline"
)

// Config holds transcoder settings resolved at startup.
type Config struct {
	// FFmpegPath is the ffmpeg executable name or path.
	FFmpegPath string
	// MaxConcurrent caps simultaneously running tool processes. Values below
	// one are treated as one.
	MaxConcurrent int
	// Timeout bounds a single tool run (0 = no limit beyond the caller's context).
	Timeout time.Duration
}

// Option configures a Transcoder.
type Option func(*Transcoder)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(t *Transcoder) {
		if exec != nil {
			t.exec = exec
		}
	}
}

type activeProcess struct {
	inv    Invocation
	cancel context.CancelFunc
}

// Transcoder runs ffmpeg conversions with a bounded number of concurrent
// processes and tracks them so they can be stopped at shutdown.
type Transcoder struct {
	ffmpegPath string
	timeout    time.Duration
	exec       Executor
	slots      *semaphore.Weighted
	maxSlots   int64

	processMu sync.Mutex
	processes map[string]activeProcess
	closed    bool
}

// New creates a new Transcoder.
func New(cfg Config, opts ...Option) *Transcoder {
	ffmpeg := strings.TrimSpace(cfg.FFmpegPath)
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	maxSlots := int64(cfg.MaxConcurrent)
	if maxSlots < 1 {
		maxSlots = 1
	}

	t := &Transcoder{
		ffmpegPath: ffmpeg,
		timeout:    cfg.Timeout,
		exec:       commandExecutor{},
		slots:      semaphore.NewWeighted(maxSlots),
		maxSlots:   maxSlots,
		processes:  make(map[string]activeProcess),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// FFmpegPath returns the configured ffmpeg executable.
func (t *Transcoder) FFmpegPath() string {
	return t.ffmpegPath
}

// MaxConcurrent returns the number of conversion slots.
func (t *Transcoder) MaxConcurrent() int {
	return int(t.maxSlots)
}

// ConvertImage converts a still image with a direct ffmpeg invocation.
func (t *Transcoder) ConvertImage(ctx context.Context, input, output, target string) error {
	inv := Invocation{
		Executable: t.ffmpegPath,
		Args:       BuildImageArgs(input, output, target),
	}
	return t.run(ctx, ModeDirect, output, inv)
}

// ConvertMedia converts audio or video through the pipeline builder, with
// the output container chosen from the target token alone.
func (t *Transcoder) ConvertMedia(ctx context.Context, input, output, target string) error {
	args, err := NewPipeline(input).Format(target).Save(output).Args()
	if err != nil {
		return err
	}
	inv := Invocation{Executable: t.ffmpegPath, Args: args}
	return t.run(ctx, ModePipeline, output, inv)
}

// run executes inv while holding a conversion slot. key identifies the
// process in the registry; output paths are unique so they serve as keys.
func (t *Transcoder) run(ctx context.Context, mode, key string, inv Invocation) error {
	waitStart := time.Now()
	if err := t.slots.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %w", ErrBusy, err)
	}
	defer t.slots.Release(1)
	metrics.ToolSlotWaitDuration.Observe(time.Since(waitStart).Seconds())

	metrics.ToolSlotsInUse.Inc()
	defer metrics.ToolSlotsInUse.Dec()

	var cancel context.CancelFunc
	if t.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	if !t.track(key, inv, cancel) {
		return ErrShuttingDown
	}
	defer t.untrack(key)

	logging.Debug("Running %s", inv)
	start := time.Now()
	err := t.exec.Run(ctx, inv)
	metrics.ToolDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ToolInvocationsTotal.WithLabelValues(mode, "error").Inc()
		return err
	}
	metrics.ToolInvocationsTotal.WithLabelValues(mode, "success").Inc()
	return nil
}

func (t *Transcoder) track(key string, inv Invocation, cancel context.CancelFunc) bool {
	t.processMu.Lock()
	defer t.processMu.Unlock()

	if t.closed {
		return false
	}
	t.processes[key] = activeProcess{inv: inv, cancel: cancel}
	return true
}

func (t *Transcoder) untrack(key string) {
	t.processMu.Lock()
	delete(t.processes, key)
	t.processMu.Unlock()
}

// ActiveProcesses returns the number of tool processes currently running.
func (t *Transcoder) ActiveProcesses() int {
	t.processMu.Lock()
	defer t.processMu.Unlock()
	return len(t.processes)
}

// Cleanup stops all active transcoding processes and rejects new ones.
func (t *Transcoder) Cleanup() {
	t.processMu.Lock()
	defer t.processMu.Unlock()

	t.closed = true
	for key, p := range t.processes {
		logging.Info("Killing transcoding process for: %s", key)
		p.cancel()
	}
}

// ShuttingDown reports whether Cleanup has been called.
func (t *Transcoder) ShuttingDown() bool {
	t.processMu.Lock()
	defer t.processMu.Unlock()
	return t.closed
}
