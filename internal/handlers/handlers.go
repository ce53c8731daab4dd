package handlers

import (
	"time"

	"conversion-gateway/internal/converter"
	"conversion-gateway/internal/startup"
	"conversion-gateway/internal/streaming"
	"conversion-gateway/internal/transcoder"
	"conversion-gateway/internal/workspace"
)

// PressureSignal reports when the process is too close to its memory limit
// to accept new conversions.
type PressureSignal interface {
	Overloaded() bool
}

// Handlers holds the dependencies shared by the HTTP handlers.
type Handlers struct {
	converter  *converter.Converter
	workspace  *workspace.Manager
	transcoder *transcoder.Transcoder
	config     *startup.Config
	delivery   streaming.Config
	pressure   PressureSignal
	startTime  time.Time
}

// New creates the handler set. The converter must have been built on ws and
// trans.
func New(conv *converter.Converter, ws *workspace.Manager, trans *transcoder.Transcoder, config *startup.Config) *Handlers {
	return &Handlers{
		converter:  conv,
		workspace:  ws,
		transcoder: trans,
		config:     config,
		delivery:   streaming.DefaultConfig(),
		startTime:  time.Now(),
	}
}

// SetPressureSignal makes Convert refuse work while p reports overload.
func (h *Handlers) SetPressureSignal(p PressureSignal) {
	h.pressure = p
}

func (h *Handlers) overloaded() bool {
	return h.pressure != nil && h.pressure.Overloaded()
}
