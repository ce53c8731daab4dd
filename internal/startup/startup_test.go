package startup

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

// configEnv lists every variable ResolveConfig reads.
var configEnv = []string{
	"CONFIG_FILE", "PORT", "METRICS_PORT", "METRICS_ENABLED", "INTAKE_DIR", "OUTPUT_DIR",
	"FFMPEG_PATH", "SOFFICE_PATH", "MAX_UPLOAD_SIZE", "MAX_CONCURRENT_CONVERSIONS",
	"CONVERSION_TIMEOUT", "STALE_ARTIFACT_AGE", "LOG_LEVEL", "LOG_HEALTH_CHECKS",
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnv {
		t.Setenv(key, "")
	}
}

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
	if info.OS == "" || info.Arch == "" {
		t.Error("Expected OS and Arch to be set")
	}
}

func TestResolveConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	config, err := ResolveConfig()
	if err != nil {
		t.Fatalf("ResolveConfig() error: %v", err)
	}

	if config.Port != "3000" {
		t.Errorf("Port = %q, want 3000", config.Port)
	}
	if config.MetricsPort != "9090" || !config.MetricsEnabled {
		t.Errorf("metrics = %q/%v, want 9090/true", config.MetricsPort, config.MetricsEnabled)
	}
	if !filepath.IsAbs(config.IntakeDir) || filepath.Base(config.IntakeDir) != "uploads" {
		t.Errorf("IntakeDir = %q", config.IntakeDir)
	}
	if !filepath.IsAbs(config.OutputDir) || filepath.Base(config.OutputDir) != "converted" {
		t.Errorf("OutputDir = %q", config.OutputDir)
	}
	if config.FFmpegPath != "ffmpeg" {
		t.Errorf("FFmpegPath = %q", config.FFmpegPath)
	}
	if config.MaxUploadSize != 512<<20 {
		t.Errorf("MaxUploadSize = %d", config.MaxUploadSize)
	}
	if config.ConversionTimeout != 10*time.Minute {
		t.Errorf("ConversionTimeout = %v", config.ConversionTimeout)
	}
	if config.MaxConcurrentConversions != 0 {
		t.Errorf("MaxConcurrentConversions = %d, want 0 (auto)", config.MaxConcurrentConversions)
	}
	if config.ConfigFile != "" {
		t.Errorf("ConfigFile = %q, want empty", config.ConfigFile)
	}
}

func TestResolveConfigEnvironment(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()

	t.Setenv("PORT", "8088")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("INTAKE_DIR", filepath.Join(dir, "in"))
	t.Setenv("OUTPUT_DIR", filepath.Join(dir, "out"))
	t.Setenv("FFMPEG_PATH", "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv("MAX_UPLOAD_SIZE", "64MB")
	t.Setenv("MAX_CONCURRENT_CONVERSIONS", "3")
	t.Setenv("CONVERSION_TIMEOUT", "90s")
	t.Setenv("STALE_ARTIFACT_AGE", "15m")
	t.Setenv("LOG_HEALTH_CHECKS", "true")

	config, err := ResolveConfig()
	if err != nil {
		t.Fatalf("ResolveConfig() error: %v", err)
	}

	if config.Port != "8088" {
		t.Errorf("Port = %q", config.Port)
	}
	if config.MetricsEnabled {
		t.Error("MetricsEnabled should be false")
	}
	if config.IntakeDir != filepath.Join(dir, "in") || config.OutputDir != filepath.Join(dir, "out") {
		t.Errorf("dirs = %q, %q", config.IntakeDir, config.OutputDir)
	}
	if config.FFmpegPath != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("FFmpegPath = %q", config.FFmpegPath)
	}
	if config.MaxUploadSize != 64<<20 {
		t.Errorf("MaxUploadSize = %d", config.MaxUploadSize)
	}
	if config.MaxConcurrentConversions != 3 {
		t.Errorf("MaxConcurrentConversions = %d", config.MaxConcurrentConversions)
	}
	if config.ConversionTimeout != 90*time.Second {
		t.Errorf("ConversionTimeout = %v", config.ConversionTimeout)
	}
	if config.StaleArtifactAge != 15*time.Minute {
		t.Errorf("StaleArtifactAge = %v", config.StaleArtifactAge)
	}
	if !config.LogHealthChecks {
		t.Error("LogHealthChecks should be true")
	}
}

func TestResolveConfigInvalidEnvFallsBack(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("MAX_UPLOAD_SIZE", "lots")
	t.Setenv("MAX_CONCURRENT_CONVERSIONS", "-2")
	t.Setenv("CONVERSION_TIMEOUT", "soon")
	t.Setenv("METRICS_ENABLED", "maybe")

	config, err := ResolveConfig()
	if err != nil {
		t.Fatalf("ResolveConfig() error: %v", err)
	}

	defaults := DefaultConfig()
	if config.MaxUploadSize != defaults.MaxUploadSize {
		t.Errorf("MaxUploadSize = %d, want default", config.MaxUploadSize)
	}
	if config.MaxConcurrentConversions != 0 {
		t.Errorf("MaxConcurrentConversions = %d, want 0", config.MaxConcurrentConversions)
	}
	if config.ConversionTimeout != defaults.ConversionTimeout {
		t.Errorf("ConversionTimeout = %v, want default", config.ConversionTimeout)
	}
	if !config.MetricsEnabled {
		t.Error("MetricsEnabled should keep its default")
	}
}

func TestResolveConfigFile(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.toml")
	content := `
port = "4000"
metrics_enabled = false
intake_dir = "` + filepath.ToSlash(filepath.Join(dir, "in")) + `"
max_upload_size = "1GB"
max_concurrent_conversions = 2
conversion_timeout = "2m"
log_health_checks = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	// Environment wins over the file.
	t.Setenv("PORT", "5000")

	config, err := ResolveConfig()
	if err != nil {
		t.Fatalf("ResolveConfig() error: %v", err)
	}

	if config.Port != "5000" {
		t.Errorf("Port = %q, want env value 5000", config.Port)
	}
	if config.MetricsEnabled {
		t.Error("MetricsEnabled should be false from file")
	}
	if config.IntakeDir != filepath.Join(dir, "in") {
		t.Errorf("IntakeDir = %q", config.IntakeDir)
	}
	if config.MaxUploadSize != 1<<30 {
		t.Errorf("MaxUploadSize = %d", config.MaxUploadSize)
	}
	if config.MaxConcurrentConversions != 2 {
		t.Errorf("MaxConcurrentConversions = %d", config.MaxConcurrentConversions)
	}
	if config.ConversionTimeout != 2*time.Minute {
		t.Errorf("ConversionTimeout = %v", config.ConversionTimeout)
	}
	if !config.LogHealthChecks {
		t.Error("LogHealthChecks should be true from file")
	}
	if config.ConfigFile != path {
		t.Errorf("ConfigFile = %q", config.ConfigFile)
	}
	// Unset keys keep their defaults.
	if config.MetricsPort != "9090" {
		t.Errorf("MetricsPort = %q", config.MetricsPort)
	}
}

func TestResolveConfigFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		missing bool
	}{
		{name: "missing file", missing: true},
		{name: "malformed toml", content: "port = \n"},
		{name: "unknown key", content: "prot = \"4000\"\n"},
		{name: "bad duration", content: "conversion_timeout = \"forever\"\n"},
		{name: "bad size", content: "max_upload_size = \"huge\"\n"},
		{name: "negative slots", content: "max_concurrent_conversions = -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			path := filepath.Join(t.TempDir(), "gateway.toml")
			if !tt.missing {
				if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			t.Setenv("CONFIG_FILE", path)

			if _, err := ResolveConfig(); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestLoadConfigCreatesDirectories(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()
	t.Setenv("INTAKE_DIR", filepath.Join(dir, "a", "uploads"))
	t.Setenv("OUTPUT_DIR", filepath.Join(dir, "b", "converted"))

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	for _, d := range []string{config.IntakeDir, config.OutputDir} {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			t.Errorf("expected directory %s to exist: %v", d, err)
		}
		entries, _ := os.ReadDir(d)
		if len(entries) != 0 {
			t.Errorf("write test left files behind in %s", d)
		}
	}
}

func TestLoadConfigRejectsFileAsDirectory(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("INTAKE_DIR", blocker)
	t.Setenv("OUTPUT_DIR", filepath.Join(dir, "out"))

	if _, err := LoadConfig(); err == nil {
		t.Fatal("Expected an error when the intake path is a file")
	}
}

func TestGetRoutes(t *testing.T) {
	router := mux.NewRouter()
	noop := func(http.ResponseWriter, *http.Request) {}
	router.HandleFunc("/convert", noop).Methods(http.MethodPost)
	router.HandleFunc("/diag", noop).Methods(http.MethodGet)
	router.HandleFunc("/livez", noop).Methods(http.MethodGet, http.MethodHead)

	routes, err := GetRoutes(router)
	if err != nil {
		t.Fatalf("GetRoutes() error: %v", err)
	}
	if len(routes) != 4 {
		t.Fatalf("expected 4 routes, got %d: %v", len(routes), routes)
	}
	if routes[0].Path != "/convert" || routes[0].Method != http.MethodPost {
		t.Errorf("first route = %+v", routes[0])
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("GATEWAY_TEST_SET", "custom")
	t.Setenv("GATEWAY_TEST_EMPTY", "")

	if got := getEnv("GATEWAY_TEST_SET", "default"); got != "custom" {
		t.Errorf("getEnv() = %q, want custom", got)
	}
	if got := getEnv("GATEWAY_TEST_EMPTY", "default"); got != "default" {
		t.Errorf("getEnv() = %q, want default", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value        string
		defaultValue bool
		want         bool
	}{
		{"", true, true},
		{"", false, false},
		{"true", false, true},
		{"1", false, true},
		{"T", false, true},
		{"false", true, false},
		{"0", true, false},
		{"invalid", true, true},
		{"yes", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("GATEWAY_TEST_BOOL", tt.value)
			if got := getEnvBool("GATEWAY_TEST_BOOL", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvBool(%q, %v) = %v, want %v", tt.value, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"1048576", 1048576, false},
		{"512KB", 512 << 10, false},
		{"100MB", 100 << 20, false},
		{"100mb", 100 << 20, false},
		{"2GiB", 2 << 30, false},
		{" 8M ", 8 << 20, false},
		{"", 0, true},
		{"MB", 0, true},
		{"-1", 0, true},
		{"0", 0, true},
		{"ten", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseSize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSize(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input int64
		want  string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{512 << 20, "512.0 MiB"},
		{3 << 30, "3.0 GiB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.input); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLogHelpersDoNotPanic(_ *testing.T) {
	LogWorkspaceInit(0, time.Hour)
	LogWorkspaceInit(3, time.Hour)
	LogTranscoderInit(filepath.Join(os.TempDir(), "definitely-missing-ffmpeg"), 2, time.Minute)
	LogServerStarted(ServerConfig{Port: "3000", MetricsPort: "9090", MetricsEnabled: true})
	LogServerStarted(ServerConfig{Port: "3000"})
	LogShutdownInitiated("interrupt")
	LogShutdownStep("Stopping HTTP server")
	LogShutdownStepComplete("HTTP server stopped")
	LogShutdownComplete()
	LogHTTPRoutes(mux.NewRouter(), false)
}

func TestCapitalize(t *testing.T) {
	if got := capitalize("intake"); got != "Intake" {
		t.Errorf("capitalize() = %q", got)
	}
	if got := capitalize(""); got != "" {
		t.Errorf("capitalize(\"\") = %q", got)
	}
	if !strings.HasPrefix(capitalize("output"), "O") {
		t.Error("capitalize(output) should start with O")
	}
}
