package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"conversion-gateway/internal/converter"
	"conversion-gateway/internal/filesystem"
	"conversion-gateway/internal/handlers"
	"conversion-gateway/internal/logging"
	"conversion-gateway/internal/memory"
	"conversion-gateway/internal/metrics"
	"conversion-gateway/internal/middleware"
	"conversion-gateway/internal/startup"
	"conversion-gateway/internal/transcoder"
	"conversion-gateway/internal/workers"
	"conversion-gateway/internal/workspace"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout          = 30 * time.Second
	metricsCollectInterval   = time.Minute
	readHeaderTimeout        = 15 * time.Second
	idleTimeout              = 60 * time.Second
	metricsServerTimeout     = 10 * time.Second
	metricsServerIdleTimeout = 30 * time.Second
)

// errFFmpegUnavailable makes the diag command exit non-zero.
var errFFmpegUnavailable = errors.New("ffmpeg is not available")

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	serveCmd := newServeCommand()

	rootCmd := &cobra.Command{
		Use:           "conversion-gateway",
		Short:         "HTTP gateway that converts uploaded media with ffmpeg",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveCmd.RunE,
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newDiagCommand(os.Stdout))
	rootCmd.AddCommand(newVersionCommand(os.Stdout))

	return rootCmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the conversion HTTP server (default)",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return serve()
		},
	}
}

func newDiagCommand(out io.Writer) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "diag",
		Short: "Report ffmpeg and LibreOffice availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := startup.ResolveConfig()
			if err != nil {
				return err
			}
			return runDiag(cmd.Context(), out, config, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON (same shape as GET /diag)")

	return cmd
}

func newVersionCommand(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			info := startup.GetBuildInfo()
			_, err := fmt.Fprintf(out, "conversion-gateway %s (commit %s, built %s, %s %s/%s)\n",
				info.Version, info.Commit, info.BuildTime, info.GoVersion, info.OS, info.Arch)
			return err
		},
	}
}

// diagReport mirrors the GET /diag response, with ffmpeg reported as a
// probe result rather than a bare banner.
type diagReport struct {
	FFmpeg      transcoder.ToolStatus `json:"ffmpeg"`
	LibreOffice transcoder.ToolStatus `json:"libreoffice"`
}

// runDiag probes the configured tools and prints the result. It returns
// errFFmpegUnavailable after printing when ffmpeg cannot run.
func runDiag(ctx context.Context, out io.Writer, config *startup.Config, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	report := diagReport{
		FFmpeg:      transcoder.ProbeTool(ctx, config.FFmpegPath, "-version"),
		LibreOffice: transcoder.ProbeTool(ctx, config.SofficePath, "--version"),
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		rows := [][]string{
			{"ffmpeg", config.FFmpegPath, toolState(report.FFmpeg), report.FFmpeg.Out},
			{"libreoffice", config.SofficePath, toolState(report.LibreOffice), report.LibreOffice.Out},
		}
		if _, err := fmt.Fprintln(out, renderTable([]string{"Tool", "Path", "Status", "Output"}, rows)); err != nil {
			return err
		}
	}

	if !report.FFmpeg.OK {
		return errFFmpegUnavailable
	}
	return nil
}

func toolState(s transcoder.ToolStatus) string {
	if s.OK {
		return "ok"
	}
	return "unavailable"
}

func serve() error {
	startTime := time.Now()

	// Configure GOMEMLIMIT before significant allocations
	memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Initialize workspace and clear anything a previous run left behind
	ws, err := workspace.New(config.IntakeDir, config.OutputDir)
	if err != nil {
		startup.LogFatal("Failed to initialize workspace: %v", err)
	}
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"intake": ws.IntakeDir(),
		"output": ws.OutputDir(),
	}))
	startup.LogWorkspaceInit(ws.Sweep(config.StaleArtifactAge), config.StaleArtifactAge)

	// Initialize transcoder
	slots := workers.ForConversions(config.MaxConcurrentConversions)
	startup.LogTranscoderInit(config.FFmpegPath, slots, config.ConversionTimeout)
	trans := transcoder.New(transcoder.Config{
		FFmpegPath:    config.FFmpegPath,
		MaxConcurrent: slots,
		Timeout:       config.ConversionTimeout,
	})

	// Shed conversions when the heap nears its limit
	memMonitor := memory.NewMonitor(memory.DefaultConfig())
	memMonitor.Start()

	conv := converter.New(ws, trans)
	h := handlers.New(conv, ws, trans, config)
	h.SetPressureSignal(memMonitor)

	// Sweep orphans periodically
	stopSweeper := make(chan struct{})
	if config.StaleArtifactAge > 0 {
		go func() {
			ticker := time.NewTicker(config.StaleArtifactAge)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if n := ws.Sweep(config.StaleArtifactAge); n > 0 {
						logging.Info("Swept %d stale artifact(s)", n)
					}
				case <-stopSweeper:
					return
				}
			}
		}()
	}

	// Setup router
	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(router)

	// Create server. Uploads and downloads can be large, so only the header
	// read is bounded; delivery enforces its own per-write deadline.
	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}

	// Metrics server and collector
	var metricsSrv *http.Server
	var collector *metrics.Collector
	if config.MetricsEnabled {
		metrics.InitializeMetrics()
		metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

		collector = metrics.NewCollector(ws, metricsCollectInterval)
		collector.Start()

		metricsSrv = newMetricsServer(config.MetricsPort)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Start graceful shutdown handler
	done := make(chan struct{})
	go func() {
		defer close(done)
		handleShutdown(srv, metricsSrv, trans, func() {
			close(stopSweeper)
			memMonitor.Stop()
			if collector != nil {
				collector.Stop()
			}
		})
	}()

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}

	<-done
	return nil
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	// Conversion routes
	r.HandleFunc("/convert", h.Convert).Methods(http.MethodPost)
	r.HandleFunc("/diag", h.Diag).Methods(http.MethodGet)

	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	return r
}

func newMetricsServer(port string) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:         ":" + port,
		Handler:      metricsMux,
		ReadTimeout:  metricsServerTimeout,
		WriteTimeout: metricsServerTimeout,
		IdleTimeout:  metricsServerIdleTimeout,
	}
}

func handleShutdown(srv, metricsSrv *http.Server, trans *transcoder.Transcoder, stopBackground func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Stopping background workers")
	stopBackground()
	startup.LogShutdownStepComplete("Background workers stopped")

	// Killing the children first makes in-flight requests fail fast so the
	// HTTP server can drain.
	startup.LogShutdownStep("Cleaning up transcoder")
	trans.Cleanup()
	startup.LogShutdownStepComplete("Transcoder cleanup complete")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownComplete()
}
