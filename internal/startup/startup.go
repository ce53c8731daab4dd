package startup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"conversion-gateway/internal/logging"

	"github.com/gorilla/mux"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/term"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	Port           string
	MetricsPort    string
	MetricsEnabled bool

	IntakeDir string
	OutputDir string

	FFmpegPath  string
	SofficePath string

	MaxUploadSize            int64
	MaxConcurrentConversions int
	ConversionTimeout        time.Duration
	StaleArtifactAge         time.Duration

	LogLevel        string
	LogHealthChecks bool

	// ConfigFile is the TOML file that was applied, if any.
	ConfigFile string
}

// fileConfig mirrors Config for the optional TOML file. Durations and sizes
// are strings so they can be written as "10m" or "512MB".
type fileConfig struct {
	Port                     string `toml:"port"`
	MetricsPort              string `toml:"metrics_port"`
	MetricsEnabled           *bool  `toml:"metrics_enabled"`
	IntakeDir                string `toml:"intake_dir"`
	OutputDir                string `toml:"output_dir"`
	FFmpegPath               string `toml:"ffmpeg_path"`
	SofficePath              string `toml:"soffice_path"`
	MaxUploadSize            string `toml:"max_upload_size"`
	MaxConcurrentConversions int    `toml:"max_concurrent_conversions"`
	ConversionTimeout        string `toml:"conversion_timeout"`
	StaleArtifactAge         string `toml:"stale_artifact_age"`
	LogLevel                 string `toml:"log_level"`
	LogHealthChecks          *bool  `toml:"log_health_checks"`
}

// DefaultConfig returns the configuration used when neither a config file nor
// environment variables override a setting.
func DefaultConfig() Config {
	return Config{
		Port:              "3000",
		MetricsPort:       "9090",
		MetricsEnabled:    true,
		IntakeDir:         "uploads",
		OutputDir:         "converted",
		FFmpegPath:        "ffmpeg",
		SofficePath:       "soffice",
		MaxUploadSize:     512 << 20,
		ConversionTimeout: 10 * time.Minute,
		StaleArtifactAge:  time.Hour,
		LogLevel:          logging.GetLevel().String(),
		LogHealthChecks:   false,
	}
}

// LoadConfig resolves configuration from defaults, the optional CONFIG_FILE
// and environment variables, in that order, then prepares the workspace
// directories. It prints the startup banner when stdout is a terminal.
func LoadConfig() (*Config, error) {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		printBanner()
	}
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	config, err := ResolveConfig()
	if err != nil {
		return nil, err
	}

	if level, ok := logging.ParseLevel(config.LogLevel); ok {
		logging.SetLevel(level)
	} else {
		logging.Warn("  Invalid LOG_LEVEL %q, keeping %s", config.LogLevel, logging.GetLevel())
	}

	logConfig(config)

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	for _, dir := range []struct{ path, name string }{
		{config.IntakeDir, "intake"},
		{config.OutputDir, "output"},
	} {
		if err := ensureDirectory(dir.path, dir.name); err != nil {
			return nil, fmt.Errorf("%s directory error: %w", dir.name, err)
		}
		if err := testWriteAccess(dir.path); err != nil {
			return nil, fmt.Errorf("%s directory is not writable: %w", dir.name, err)
		}
		logging.Info("  [OK] %s directory is writable: %s", capitalize(dir.name), dir.path)
	}

	return config, nil
}

// ResolveConfig builds the configuration without touching the filesystem
// beyond reading CONFIG_FILE. Directory paths are made absolute.
func ResolveConfig() (*Config, error) {
	config := DefaultConfig()

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := applyFile(&config, path); err != nil {
			return nil, err
		}
		config.ConfigFile = path
	}

	applyEnv(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	var err error
	if config.IntakeDir, err = filepath.Abs(config.IntakeDir); err != nil {
		return nil, fmt.Errorf("failed to resolve intake directory path: %w", err)
	}
	if config.OutputDir, err = filepath.Abs(config.OutputDir); err != nil {
		return nil, fmt.Errorf("failed to resolve output directory path: %w", err)
	}

	return &config, nil
}

func applyFile(config *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var fc fileConfig
	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(&fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.Port, fc.Port)
	setString(&config.MetricsPort, fc.MetricsPort)
	setString(&config.IntakeDir, fc.IntakeDir)
	setString(&config.OutputDir, fc.OutputDir)
	setString(&config.FFmpegPath, fc.FFmpegPath)
	setString(&config.SofficePath, fc.SofficePath)
	setString(&config.LogLevel, fc.LogLevel)
	if fc.MetricsEnabled != nil {
		config.MetricsEnabled = *fc.MetricsEnabled
	}
	if fc.LogHealthChecks != nil {
		config.LogHealthChecks = *fc.LogHealthChecks
	}
	if fc.MaxConcurrentConversions != 0 {
		config.MaxConcurrentConversions = fc.MaxConcurrentConversions
	}

	if fc.MaxUploadSize != "" {
		size, err := parseSize(fc.MaxUploadSize)
		if err != nil {
			return fmt.Errorf("config max_upload_size: %w", err)
		}
		config.MaxUploadSize = size
	}
	if fc.ConversionTimeout != "" {
		d, err := time.ParseDuration(fc.ConversionTimeout)
		if err != nil {
			return fmt.Errorf("config conversion_timeout: %w", err)
		}
		config.ConversionTimeout = d
	}
	if fc.StaleArtifactAge != "" {
		d, err := time.ParseDuration(fc.StaleArtifactAge)
		if err != nil {
			return fmt.Errorf("config stale_artifact_age: %w", err)
		}
		config.StaleArtifactAge = d
	}

	return nil
}

func applyEnv(config *Config) {
	config.Port = getEnv("PORT", config.Port)
	config.MetricsPort = getEnv("METRICS_PORT", config.MetricsPort)
	config.MetricsEnabled = getEnvBool("METRICS_ENABLED", config.MetricsEnabled)
	config.IntakeDir = getEnv("INTAKE_DIR", config.IntakeDir)
	config.OutputDir = getEnv("OUTPUT_DIR", config.OutputDir)
	config.FFmpegPath = getEnv("FFMPEG_PATH", config.FFmpegPath)
	config.SofficePath = getEnv("SOFFICE_PATH", config.SofficePath)
	config.LogLevel = getEnv("LOG_LEVEL", config.LogLevel)
	config.LogHealthChecks = getEnvBool("LOG_HEALTH_CHECKS", config.LogHealthChecks)
	config.MaxConcurrentConversions = getEnvInt("MAX_CONCURRENT_CONVERSIONS", config.MaxConcurrentConversions)
	config.ConversionTimeout = getEnvDuration("CONVERSION_TIMEOUT", config.ConversionTimeout)
	config.StaleArtifactAge = getEnvDuration("STALE_ARTIFACT_AGE", config.StaleArtifactAge)

	if value := os.Getenv("MAX_UPLOAD_SIZE"); value != "" {
		size, err := parseSize(value)
		if err != nil {
			logging.Warn("Invalid MAX_UPLOAD_SIZE %q, using %s", value, formatBytes(config.MaxUploadSize))
		} else {
			config.MaxUploadSize = size
		}
	}
}

func validate(config *Config) error {
	var errs []error
	if strings.TrimSpace(config.IntakeDir) == "" {
		errs = append(errs, errors.New("intake directory must not be empty"))
	}
	if strings.TrimSpace(config.OutputDir) == "" {
		errs = append(errs, errors.New("output directory must not be empty"))
	}
	if strings.TrimSpace(config.FFmpegPath) == "" {
		errs = append(errs, errors.New("ffmpeg path must not be empty"))
	}
	if config.MaxUploadSize <= 0 {
		errs = append(errs, fmt.Errorf("max upload size must be positive, got %d", config.MaxUploadSize))
	}
	if config.ConversionTimeout < 0 {
		errs = append(errs, fmt.Errorf("conversion timeout must not be negative, got %v", config.ConversionTimeout))
	}
	if config.StaleArtifactAge < 0 {
		errs = append(errs, fmt.Errorf("stale artifact age must not be negative, got %v", config.StaleArtifactAge))
	}
	if config.MaxConcurrentConversions < 0 {
		errs = append(errs, fmt.Errorf("max concurrent conversions must not be negative, got %d", config.MaxConcurrentConversions))
	}
	return errors.Join(errs...)
}

func logConfig(config *Config) {
	if config.ConfigFile != "" {
		logging.Info("  CONFIG_FILE:                %s", config.ConfigFile)
	}
	logging.Info("  PORT:                       %s", config.Port)
	logging.Info("  METRICS_PORT:               %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:            %v", config.MetricsEnabled)
	logging.Info("  INTAKE_DIR:                 %s", config.IntakeDir)
	logging.Info("  OUTPUT_DIR:                 %s", config.OutputDir)
	logging.Info("  FFMPEG_PATH:                %s", config.FFmpegPath)
	logging.Info("  SOFFICE_PATH:               %s", config.SofficePath)
	logging.Info("  MAX_UPLOAD_SIZE:            %s", formatBytes(config.MaxUploadSize))
	if config.MaxConcurrentConversions > 0 {
		logging.Info("  MAX_CONCURRENT_CONVERSIONS: %d", config.MaxConcurrentConversions)
	} else {
		logging.Info("  MAX_CONCURRENT_CONVERSIONS: auto")
	}
	if config.ConversionTimeout > 0 {
		logging.Info("  CONVERSION_TIMEOUT:         %v", config.ConversionTimeout)
	} else {
		logging.Info("  CONVERSION_TIMEOUT:         none")
	}
	logging.Info("  STALE_ARTIFACT_AGE:         %v", config.StaleArtifactAge)
	logging.Info("  LOG_HEALTH_CHECKS:          %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:                  %s", logging.GetLevel())
}

// LogWorkspaceInit logs the startup sweep of orphaned artifacts.
func LogWorkspaceInit(swept int, maxAge time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("WORKSPACE")
	logging.Info("------------------------------------------------------------")
	if swept > 0 {
		logging.Info("  Removed %d stale artifact(s) older than %v", swept, maxAge)
	} else {
		logging.Info("  [OK] No stale artifacts")
	}
}

// LogTranscoderInit logs transcoder settings and checks that ffmpeg runs.
func LogTranscoderInit(ffmpegPath string, slots int, timeout time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("TRANSCODER INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Conversion slots: %d", slots)
	if timeout > 0 {
		logging.Info("  Timeout:          %v", timeout)
	}

	if err := checkFFmpeg(ffmpegPath); err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Conversions will fail until ffmpeg is installed")
	} else {
		logging.Info("  [OK] FFmpeg is available")
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	sort.SliceStable(routes, func(i, j int) bool {
		return routes[i].Path < routes[j].Path
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}

	logging.Info("  Registered routes (%d total):", len(routes))
	for _, route := range routes {
		logging.Info("    %-6s %s", route.Method, route.Path)
	}

	logging.Info("")
	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Conversion:    http://0.0.0.0:%s/convert", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	banner := `
------------------------------------------------------------
   ___                              _
  / __|___ _ ___ _____ _ _ _____ __(_)___ _ _
 | (__/ _ \ ' \ V / -_) '_(_-<  / _| / _ \ ' \
  \___\___/_||_\_/\___|_| /__/ \__|_\___/_||_|
          G  A  T  E  W  A  Y
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}
	return nil
}

func testWriteAccess(dir string) error {
	f, err := os.CreateTemp(dir, ".write-test-*")
	if err != nil {
		return err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		logging.Warn("failed to close write test file %s: %v", name, err)
	}
	if err := os.Remove(name); err != nil {
		logging.Warn("failed to remove write test file %s: %v", name, err)
	}
	return nil
}

func checkFFmpeg(ffmpegPath string) error {
	path, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return fmt.Errorf("%s not found: %w", ffmpegPath, err)
	}
	logging.Debug("  FFmpeg path: %s", path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get ffmpeg version: %w", err)
	}

	if first, _, _ := strings.Cut(string(output), "\n"); first != "" {
		logging.Info("  FFmpeg version: %s", strings.TrimSpace(first))
	}
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// parseSize accepts a byte count with an optional binary unit suffix:
// "1048576", "512KB", "100MB", "2GB" or "2GiB".
func parseSize(s string) (int64, error) {
	value := strings.ToUpper(strings.TrimSpace(s))
	value = strings.TrimSuffix(value, "IB")
	value = strings.TrimSuffix(value, "B")

	multiplier := int64(1)
	if n := len(value); n > 0 {
		switch value[n-1] {
		case 'K':
			multiplier = 1 << 10
		case 'M':
			multiplier = 1 << 20
		case 'G':
			multiplier = 1 << 30
		}
		if multiplier > 1 {
			value = value[:n-1]
		}
	}

	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * multiplier, nil
}

// formatBytes formats bytes as a human-readable string
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
