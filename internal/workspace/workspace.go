package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"conversion-gateway/internal/filesystem"
	"conversion-gateway/internal/logging"
	"conversion-gateway/internal/metrics"

	"github.com/google/uuid"
)

// Role identifies which root an artifact lives in.
type Role int

const (
	// RoleInput is an uploaded source file in the intake root.
	RoleInput Role = iota
	// RoleOutput is a converted file in the output root.
	RoleOutput
)

func (r Role) String() string {
	switch r {
	case RoleInput:
		return "input"
	case RoleOutput:
		return "output"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Artifact is a workspace file tracked for cleanup.
type Artifact struct {
	Path string
	Role Role
}

// Name returns the generated file name of the artifact.
func (a Artifact) Name() string {
	return filepath.Base(a.Path)
}

// Manager allocates and releases workspace artifacts.
type Manager struct {
	intakeDir string
	outputDir string
}

// New resolves both roots to absolute paths and creates them if absent.
func New(intakeDir, outputDir string) (*Manager, error) {
	if strings.TrimSpace(intakeDir) == "" || strings.TrimSpace(outputDir) == "" {
		return nil, errors.New("intake and output directories are required")
	}

	intake, err := filepath.Abs(intakeDir)
	if err != nil {
		return nil, fmt.Errorf("resolve intake directory: %w", err)
	}
	output, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output directory: %w", err)
	}

	for _, dir := range []string{intake, output} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create workspace directory %s: %w", dir, err)
		}
	}

	return &Manager{intakeDir: intake, outputDir: output}, nil
}

// IntakeDir returns the absolute intake root.
func (m *Manager) IntakeDir() string {
	return m.intakeDir
}

// OutputDir returns the absolute output root.
func (m *Manager) OutputDir() string {
	return m.outputDir
}

func (m *Manager) root(role Role) string {
	if role == RoleOutput {
		return m.outputDir
	}
	return m.intakeDir
}

// Allocate returns a fresh, unique path under the root for role. The file is
// not created. ext is appended as "."+ext when non-empty.
func (m *Manager) Allocate(role Role, ext string) Artifact {
	name := uuid.NewString()
	if ext = strings.TrimPrefix(ext, "."); ext != "" {
		name += "." + ext
	}

	metrics.WorkspaceAllocationsTotal.WithLabelValues(role.String()).Inc()
	a := Artifact{Path: filepath.Join(m.root(role), name), Role: role}
	logging.Debug("Allocated %s artifact %s", role, a.Path)
	return a
}

// Create allocates an artifact and opens it for writing. The file is created
// exclusively, so an existing path is reported as an error rather than
// truncated.
func (m *Manager) Create(role Role, ext string) (Artifact, *os.File, error) {
	a := m.Allocate(role, ext)
	f, err := os.OpenFile(a.Path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return Artifact{}, nil, fmt.Errorf("create %s artifact: %w", role, err)
	}
	return a, f, nil
}

// Owns reports whether path is a direct child of one of the workspace roots.
func (m *Manager) Owns(path string) bool {
	if path == "" {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	dir := filepath.Dir(abs)
	return dir == m.intakeDir || dir == m.outputDir
}

// Release deletes the artifact if present. Failures are logged and counted,
// never returned. Calling Release more than once is safe.
func (m *Manager) Release(a Artifact) {
	if a.Path == "" {
		return
	}
	if !m.Owns(a.Path) {
		logging.Warn("Refusing to release %s artifact outside workspace: %s", a.Role, a.Path)
		return
	}

	err := filesystem.RemoveWithRetry(a.Path, filesystem.DefaultRetryConfig())
	switch {
	case err == nil:
		logging.Debug("Released %s artifact %s", a.Role, a.Path)
	case errors.Is(err, fs.ErrNotExist):
	default:
		metrics.WorkspaceReleaseErrors.WithLabelValues(a.Role.String()).Inc()
		logging.Warn("failed to release %s artifact %s: %v", a.Role, a.Path, err)
	}
}

// Sweep removes regular files older than maxAge from both roots and returns
// the number removed. It cleans up artifacts orphaned by a previous crash.
func (m *Manager) Sweep(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, role := range []Role{RoleInput, RoleOutput} {
		root := m.root(role)
		entries, err := os.ReadDir(root)
		if err != nil {
			logging.Warn("failed to read %s root %s: %v", role, root, err)
			continue
		}

		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			info, err := entry.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			path := filepath.Join(root, entry.Name())
			if err := filesystem.RemoveWithRetry(path, filesystem.DefaultRetryConfig()); err != nil && !errors.Is(err, fs.ErrNotExist) {
				logging.Warn("failed to sweep stale artifact %s: %v", path, err)
				continue
			}
			removed++
		}
	}

	return removed
}

// GetStats reports the file count and size of each root.
func (m *Manager) GetStats() metrics.Stats {
	return metrics.Stats{
		Intake: dirStats(m.intakeDir),
		Output: dirStats(m.outputDir),
	}
}

func dirStats(dir string) metrics.RootStats {
	var stats metrics.RootStats
	entries, err := os.ReadDir(dir)
	if err != nil {
		return stats
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.Files++
		stats.Bytes += info.Size()
	}
	return stats
}
