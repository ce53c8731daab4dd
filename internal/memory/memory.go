package memory

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"conversion-gateway/internal/logging"
	"conversion-gateway/internal/metrics"
)

// Config holds memory pressure thresholds.
type Config struct {
	// MemoryLimitBytes is the soft limit (0 = use GOMEMLIMIT, if any).
	MemoryLimitBytes int64

	// CriticalWaterMark is the share of the limit at which new conversions
	// are refused (0.0-1.0).
	CriticalWaterMark float64

	// RecoverWaterMark is the share below which conversions are accepted
	// again. It must be lower than CriticalWaterMark.
	RecoverWaterMark float64

	// CheckInterval is how often heap usage is sampled.
	CheckInterval time.Duration
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		CriticalWaterMark: 0.9,
		RecoverWaterMark:  0.75,
		CheckInterval:     5 * time.Second,
	}
}

// Monitor samples heap usage against the memory limit and reports when the
// gateway should stop accepting conversions.
type Monitor struct {
	config Config
	limit  int64

	stopOnce sync.Once
	stopChan chan struct{}

	mu         sync.RWMutex
	current    uint64
	overloaded bool
}

// NewMonitor creates a monitor. Without any limit it never reports overload.
func NewMonitor(config Config) *Monitor {
	limit := config.MemoryLimitBytes
	if limit == 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < 1<<62 {
			limit = goMemLimit
		}
	}

	if limit == 0 {
		logging.Debug("Memory monitor: no memory limit configured, load shedding disabled")
	} else {
		logging.Info("Memory monitor: shedding conversions above %.0f%% of %s", config.CriticalWaterMark*100, formatBytes(limit))
	}

	return &Monitor{
		config:   config,
		limit:    limit,
		stopChan: make(chan struct{}),
	}
}

// Start begins sampling in the background.
func (m *Monitor) Start() {
	if m.limit == 0 {
		return
	}
	go m.monitorLoop()
}

// Stop ends sampling. It is safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

func (m *Monitor) monitorLoop() {
	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)
			m.sample(stats.Alloc)
		case <-m.stopChan:
			return
		}
	}
}

// sample records a heap reading and updates the overload state with
// hysteresis between the recover and critical marks.
func (m *Monitor) sample(alloc uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = alloc
	if m.limit <= 0 {
		return
	}

	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	switch {
	case !m.overloaded && usage >= m.config.CriticalWaterMark:
		logging.Warn("Memory critical (%.1f%% of limit), refusing new conversions", usage*100)
		m.overloaded = true
		metrics.MemoryOverloaded.Set(1)
		go runtime.GC()
	case m.overloaded && usage < m.config.RecoverWaterMark:
		logging.Info("Memory recovered (%.1f%% of limit), accepting conversions", usage*100)
		m.overloaded = false
		metrics.MemoryOverloaded.Set(0)
	}
}

// Overloaded reports whether new conversions should be refused.
func (m *Monitor) Overloaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.overloaded
}

// GetUsage returns the last sampled usage as a share of the limit, or 0
// without a limit.
func (m *Monitor) GetUsage() float64 {
	if m.limit <= 0 {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.current) / float64(m.limit)
}
