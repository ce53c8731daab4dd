package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"conversion-gateway/internal/converter"
	"conversion-gateway/internal/transcoder"
)

func TestDiag(t *testing.T) {
	ffmpeg := writeStub(t, "ffmpeg", `echo "ffmpeg version 6.1.1 Copyright (c) 2000-2023 the FFmpeg developers"; echo "built with gcc"`)
	soffice := writeStub(t, "soffice", `echo "LibreOffice 7.6.4.1 60(Build:1)"`)

	env := newTestEnv(t, nil)
	env.config.SofficePath = soffice
	env.trans = transcoder.New(transcoder.Config{FFmpegPath: ffmpeg})
	env.handlers = New(converter.New(env.ws, env.trans), env.ws, env.trans, env.config)

	w := httptest.NewRecorder()
	env.handlers.Diag(w, httptest.NewRequest(http.MethodGet, "/diag", http.NoBody))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp DiagResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.FFmpeg != "ffmpeg version 6.1.1 Copyright (c) 2000-2023 the FFmpeg developers" {
		t.Errorf("ffmpeg = %q", resp.FFmpeg)
	}
	if !resp.LibreOffice.OK || !strings.HasPrefix(resp.LibreOffice.Out, "LibreOffice 7.6") {
		t.Errorf("libreoffice = %+v", resp.LibreOffice)
	}
}

func TestDiagWithoutLibreOffice(t *testing.T) {
	ffmpeg := writeStub(t, "ffmpeg", `echo "ffmpeg version n7.0"`)

	env := newTestEnv(t, nil)
	env.trans = transcoder.New(transcoder.Config{FFmpegPath: ffmpeg})
	env.handlers = New(converter.New(env.ws, env.trans), env.ws, env.trans, env.config)

	w := httptest.NewRecorder()
	env.handlers.Diag(w, httptest.NewRequest(http.MethodGet, "/diag", http.NoBody))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	var lo transcoder.ToolStatus
	if err := json.Unmarshal(raw["libreoffice"], &lo); err != nil {
		t.Fatalf("decode libreoffice: %v", err)
	}
	if lo.OK {
		t.Error("Expected libreoffice.ok=false")
	}
	if lo.Out == "" {
		t.Error("Expected libreoffice.out to explain the failure")
	}
}

func TestDiagWithoutFFmpeg(t *testing.T) {
	env := newTestEnv(t, nil)

	w := httptest.NewRecorder()
	env.handlers.Diag(w, httptest.NewRequest(http.MethodGet, "/diag", http.NoBody))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}
	if resp := decodeError(t, w); resp.Error == "" {
		t.Error("Expected an error message")
	}
}
