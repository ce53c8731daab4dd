package middleware

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"conversion-gateway/internal/metrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// captureLog redirects the standard logger for the duration of the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	flags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})
	return &buf
}

func TestNewResponseWriter(t *testing.T) {
	rw := newResponseWriter(httptest.NewRecorder())

	if rw.statusCode != http.StatusOK {
		t.Errorf("Expected default status code 200, got %d", rw.statusCode)
	}
	if rw.bytesWritten != 0 {
		t.Errorf("Expected bytesWritten to be 0, got %d", rw.bytesWritten)
	}
	if rw.wroteHeader {
		t.Error("Expected wroteHeader to be false initially")
	}
}

func TestResponseWriterWriteHeader(t *testing.T) {
	rw := newResponseWriter(httptest.NewRecorder())

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)

	if rw.statusCode != http.StatusNotFound {
		t.Errorf("Expected status code 404 to stick, got %d", rw.statusCode)
	}
}

func TestResponseWriterWrite(t *testing.T) {
	rw := newResponseWriter(httptest.NewRecorder())

	data := []byte("test data")
	n, err := rw.Write(data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if n != len(data) || rw.bytesWritten != int64(len(data)) {
		t.Errorf("Expected %d bytes, got n=%d bytesWritten=%d", len(data), n, rw.bytesWritten)
	}
	if !rw.wroteHeader {
		t.Error("Expected wroteHeader to be true after Write")
	}
}

func TestResponseWritersUnwrap(t *testing.T) {
	rec := httptest.NewRecorder()

	if newResponseWriter(rec).Unwrap() != rec {
		t.Error("logging writer should unwrap to the recorder")
	}
	if newMetricsResponseWriter(rec).Unwrap() != rec {
		t.Error("metrics writer should unwrap to the recorder")
	}

	// Flush must reach the recorder through both wrappers.
	wrapped := newMetricsResponseWriter(newResponseWriter(rec))
	if err := http.NewResponseController(wrapped).Flush(); err != nil {
		t.Fatalf("Flush through wrappers failed: %v", err)
	}
	if !rec.Flushed {
		t.Error("Expected recorder to be flushed")
	}
}

func TestDefaultLoggingConfig(t *testing.T) {
	config := DefaultLoggingConfig()

	if len(config.SkipPaths) != 0 {
		t.Errorf("Expected empty SkipPaths, got %d items", len(config.SkipPaths))
	}
	if config.LogHealthChecks {
		t.Error("Expected LogHealthChecks to be false by default")
	}
}

func TestLoggerMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		config        LoggingConfig
		expectLogging bool
	}{
		{"Logs conversions", "/convert", DefaultLoggingConfig(), true},
		{"Logs health checks when enabled", "/health", LoggingConfig{LogHealthChecks: true}, true},
		{"Skips health checks when disabled", "/livez", LoggingConfig{LogHealthChecks: false}, false},
		{"Skips configured paths", "/diag", LoggingConfig{SkipPaths: []string{"/diag"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)

			handler := Logger(tt.config)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusAccepted)
				_, _ = w.Write([]byte("ok"))
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, http.NoBody))

			if w.Code != http.StatusAccepted {
				t.Errorf("Expected status 202, got %d", w.Code)
			}
			logged := strings.Contains(buf.String(), tt.path)
			if logged != tt.expectLogging {
				t.Errorf("logged=%v, want %v (output %q)", logged, tt.expectLogging, buf.String())
			}
		})
	}
}

func TestLoggerLineFormat(t *testing.T) {
	buf := captureLog(t)

	handler := Logger(DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"target is required"}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/convert?x=1", strings.NewReader("body"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=abc123")
	req.Header.Set("User-Agent", "curl/8.5.0")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	fields := strings.Fields(strings.TrimSpace(buf.String()))
	if len(fields) != 12 {
		t.Fatalf("expected 12 fields, got %d: %q", len(fields), buf.String())
	}
	checks := map[int]string{
		2:  "203.0.113.9",
		3:  "POST",
		4:  "/convert",
		5:  "x=1",
		6:  "400",
		7:  "30",
		9:  "multipart/form-data",
		10: "curl/8.5.0",
		11: ServiceName,
	}
	for i, want := range checks {
		if fields[i] != want {
			t.Errorf("field %d = %q, want %q", i, fields[i], want)
		}
	}
	if strings.Contains(buf.String(), "abc123") {
		t.Error("multipart boundary must not be logged")
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"line1\nline2", "line1 line2"},
		{"a\r\nb", "a  b"},
		{"nul\x00byte", "nulbyte"},
		{"\x1b[31mred\x1b[0m", "[31mred[0m"},
		{"tab\there", "tab\there"},
		{"del\x7f", "del"},
	}

	for _, tt := range tests {
		if got := sanitizeLogField(tt.input); got != tt.want {
			t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLogInjectionIsNeutralized(t *testing.T) {
	buf := captureLog(t)

	handler := Logger(DefaultLoggingConfig())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/convert", http.NoBody)
	req.Header.Set("User-Agent", "evil\n2024-01-01 00:00:00 forged entry")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if lines := strings.Count(strings.TrimSpace(buf.String()), "\n"); lines != 0 {
		t.Errorf("expected a single log line, got %d extra: %q", lines, buf.String())
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded for", map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"}, "9.9.9.9:1234", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": "4.3.2.1"}, "9.9.9.9:1234", "4.3.2.1"},
		{"remote addr", nil, "9.9.9.9:1234", "9.9.9.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEscapeW3CField(t *testing.T) {
	if got := escapeW3CField("simple"); got != "simple" {
		t.Errorf("got %q", got)
	}
	if got := escapeW3CField(`Mozilla/5.0 "x"`); got != `"Mozilla/5.0 ""x"""` {
		t.Errorf("got %q", got)
	}
}

func TestDefaultMetricsConfig(t *testing.T) {
	config := DefaultMetricsConfig()

	for _, path := range []string{"/metrics", "/health", "/healthz", "/livez", "/readyz"} {
		found := false
		for _, skip := range config.SkipPaths {
			if skip == path {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected %s in SkipPaths", path)
		}
	}
}

func newMetricsRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(Metrics(DefaultMetricsConfig()))
	router.HandleFunc("/convert", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}).Methods(http.MethodPost)
	router.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {}).Methods(http.MethodGet)
	router.HandleFunc("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {}).Methods(http.MethodGet)
	return router
}

func TestMetricsMiddlewareRecordsRouteTemplate(t *testing.T) {
	router := newMetricsRouter()

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/convert", "400")
	before := testutil.ToFloat64(counter)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/convert", http.NoBody))

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("Expected counter to increase by 1, got %v", got)
	}

	templated := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/items/{id}", "200")
	before = testutil.ToFloat64(templated)
	for _, id := range []string{"a", "b", "c"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/"+id, http.NoBody))
	}
	if got := testutil.ToFloat64(templated) - before; got != 3 {
		t.Errorf("Expected 3 requests under the route template, got %v", got)
	}
}

func TestMetricsMiddlewareSkipPaths(t *testing.T) {
	router := newMetricsRouter()

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/livez", "200")
	before := testutil.ToFloat64(counter)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", http.NoBody))

	if got := testutil.ToFloat64(counter) - before; got != 0 {
		t.Errorf("Expected skipped path not to be counted, got %v", got)
	}
}

func TestMetricsMiddlewareInFlight(t *testing.T) {
	observed := make(chan float64, 1)
	handler := Metrics(DefaultMetricsConfig())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		observed <- testutil.ToFloat64(metrics.HTTPRequestsInFlight)
	}))

	before := testutil.ToFloat64(metrics.HTTPRequestsInFlight)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/convert", http.NoBody))

	select {
	case during := <-observed:
		if during != before+1 {
			t.Errorf("in-flight during request = %v, want %v", during, before+1)
		}
	case <-time.After(time.Second):
		t.Fatal("handler did not run")
	}
	if after := testutil.ToFloat64(metrics.HTTPRequestsInFlight); after != before {
		t.Errorf("in-flight after request = %v, want %v", after, before)
	}
}

func TestRouteLabelUnmatched(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/wp-login.php", http.NoBody)
	if got := routeLabel(req); got != unmatchedPath {
		t.Errorf("routeLabel() = %q, want %q", got, unmatchedPath)
	}
}

func BenchmarkLoggingMiddleware(b *testing.B) {
	log.SetOutput(&bytes.Buffer{})
	defer log.SetOutput(os.Stderr)

	handler := Logger(DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/convert", http.NoBody)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}
