// Package monitor reports process health while the bot runs.
package monitor

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// SystemMonitor samples runtime health and exposes it as gauges, with a
// periodic log line for operators tailing the process.
type SystemMonitor struct {
	logger   *zap.Logger
	interval time.Duration
	started  time.Time

	goroutines prometheus.Gauge
	heapAlloc  prometheus.Gauge
	gcPause    prometheus.Gauge
	uptime     prometheus.Gauge

	wg sync.WaitGroup
}

// NewSystemMonitor creates a monitor, registering its gauges when reg is
// non-nil.
func NewSystemMonitor(logger *zap.Logger, reg prometheus.Registerer, interval time.Duration) *SystemMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	m := &SystemMonitor{
		logger:   logger,
		interval: interval,
		started:  time.Now(),
		goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_goroutines",
			Help: "Current number of goroutines",
		}),
		heapAlloc: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_heap_alloc_bytes",
			Help: "Current heap allocation in bytes",
		}),
		gcPause: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_last_gc_pause_seconds",
			Help: "Most recent GC pause duration",
		}),
		uptime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_uptime_seconds",
			Help: "Process uptime",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.goroutines, m.heapAlloc, m.gcPause, m.uptime)
	}
	return m
}

// Start samples until the context is cancelled.
func (m *SystemMonitor) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sample()
			}
		}
	}()
}

func (m *SystemMonitor) sample() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	goroutines := runtime.NumGoroutine()
	lastPause := time.Duration(memStats.PauseNs[(memStats.NumGC+255)%256])

	m.goroutines.Set(float64(goroutines))
	m.heapAlloc.Set(float64(memStats.HeapAlloc))
	m.gcPause.Set(lastPause.Seconds())
	m.uptime.Set(time.Since(m.started).Seconds())

	m.logger.Debug("Process health",
		zap.Int("goroutines", goroutines),
		zap.Uint64("heap_alloc", memStats.HeapAlloc),
		zap.Duration("last_gc_pause", lastPause),
	)
}

// Snapshot returns the current health readings.
func (m *SystemMonitor) Snapshot() map[string]interface{} {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return map[string]interface{}{
		"goroutines":   runtime.NumGoroutine(),
		"heap_alloc":   memStats.HeapAlloc,
		"heap_objects": memStats.HeapObjects,
		"num_gc":       memStats.NumGC,
		"uptime":       time.Since(m.started).String(),
	}
}

// Stop waits for the sampling loop to finish.
func (m *SystemMonitor) Stop() {
	m.wg.Wait()
}
