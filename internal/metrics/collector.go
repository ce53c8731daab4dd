package metrics

import (
	"runtime"
	"time"

	"conversion-gateway/internal/logging"
)

// StatsProvider reports the current contents of the workspace roots.
type StatsProvider interface {
	GetStats() Stats
}

// RootStats describes a single workspace root.
type RootStats struct {
	Files int
	Bytes int64
}

// Stats holds the current workspace statistics
type Stats struct {
	Intake RootStats
	Output RootStats
}

// Collector periodically collects and updates gauge metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	doneChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection and waits for the loop to exit.
func (c *Collector) Stop() {
	close(c.stopChan)
	<-c.doneChan
}

func (c *Collector) collectLoop() {
	defer close(c.doneChan)

	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	GoMemAllocBytes.Set(float64(mem.Alloc))
	GoGoroutines.Set(float64(runtime.NumGoroutine()))

	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	WorkspaceFiles.WithLabelValues("input").Set(float64(stats.Intake.Files))
	WorkspaceBytes.WithLabelValues("input").Set(float64(stats.Intake.Bytes))
	WorkspaceFiles.WithLabelValues("output").Set(float64(stats.Output.Files))
	WorkspaceBytes.WithLabelValues("output").Set(float64(stats.Output.Bytes))

	logging.Debug("Metrics collected: intake=%d files (%d bytes), output=%d files (%d bytes)",
		stats.Intake.Files, stats.Intake.Bytes, stats.Output.Files, stats.Output.Bytes)
}
