// Package metrics exposes pipeline state as Prometheus metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pinghud/pinghud/internal/latency"
	"github.com/pinghud/pinghud/internal/monitor"
	"github.com/pinghud/pinghud/internal/probe"
	"github.com/pinghud/pinghud/pkg/version"
)

// StatsFunc supplies probe scheduler counters at scrape time.
type StatsFunc func() probe.Stats

// Collector implements prometheus.Collector over the last observed reading
// and the probe scheduler counters. It also implements monitor.Recorder.
type Collector struct {
	stats StatsFunc

	info        *prometheus.Desc
	currentMs   *prometheus.Desc
	lowMs       *prometheus.Desc
	peakMs      *prometheus.Desc
	proxyActive *prometheus.Desc
	connections *prometheus.Desc
	readings    *prometheus.Desc

	probesScheduled *prometheus.Desc
	probesCompleted *prometheus.Desc
	probesFailed    *prometheus.Desc
	probesInFlight  *prometheus.Desc

	mu         sync.RWMutex
	last       monitor.Reading
	hasReading bool
	bySource   map[latency.Source]float64
}

// NewCollector creates a collector. stats may be nil when no scheduler
// counters should be exported.
func NewCollector(stats StatsFunc) *Collector {
	return &Collector{
		stats: stats,
		info: prometheus.NewDesc(
			"pinghud_info",
			"Build information (value is always 1)",
			[]string{"version"}, nil,
		),
		currentMs: prometheus.NewDesc(
			"pinghud_latency_current_ms",
			"Most recently selected game latency",
			nil, nil,
		),
		lowMs: prometheus.NewDesc(
			"pinghud_latency_low_ms",
			"Minimum latency in the retained window",
			nil, nil,
		),
		peakMs: prometheus.NewDesc(
			"pinghud_latency_peak_ms",
			"Maximum latency in the retained window",
			nil, nil,
		),
		proxyActive: prometheus.NewDesc(
			"pinghud_proxy_active",
			"Whether the network booster process is running",
			nil, nil,
		),
		connections: prometheus.NewDesc(
			"pinghud_game_connections",
			"Established TCP connections observed on the game process",
			nil, nil,
		),
		readings: prometheus.NewDesc(
			"pinghud_readings_total",
			"Published readings by selection source",
			[]string{"source"}, nil,
		),
		probesScheduled: prometheus.NewDesc(
			"pinghud_probes_scheduled_total",
			"Probe tasks accepted by the scheduler",
			nil, nil,
		),
		probesCompleted: prometheus.NewDesc(
			"pinghud_probes_completed_total",
			"Probe tasks finished, successfully or not",
			nil, nil,
		),
		probesFailed: prometheus.NewDesc(
			"pinghud_probes_failed_total",
			"Probe tasks that timed out or were refused",
			nil, nil,
		),
		probesInFlight: prometheus.NewDesc(
			"pinghud_probes_in_flight",
			"Endpoints currently queued or being probed",
			nil, nil,
		),
		bySource: make(map[latency.Source]float64),
	}
}

// Observe implements monitor.Recorder.
func (c *Collector) Observe(r monitor.Reading) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = r
	c.hasReading = true
	c.bySource[r.Source]++
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.info
	ch <- c.currentMs
	ch <- c.lowMs
	ch <- c.peakMs
	ch <- c.proxyActive
	ch <- c.connections
	ch <- c.readings
	ch <- c.probesScheduled
	ch <- c.probesCompleted
	ch <- c.probesFailed
	ch <- c.probesInFlight
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.info, prometheus.GaugeValue, 1, version.Version)

	c.mu.RLock()
	if c.hasReading {
		r := c.last
		if r.CurrentMs != nil {
			ch <- prometheus.MustNewConstMetric(c.currentMs, prometheus.GaugeValue, *r.CurrentMs)
		}
		if r.LowMs != nil {
			ch <- prometheus.MustNewConstMetric(c.lowMs, prometheus.GaugeValue, *r.LowMs)
		}
		if r.PeakMs != nil {
			ch <- prometheus.MustNewConstMetric(c.peakMs, prometheus.GaugeValue, *r.PeakMs)
		}
		ch <- prometheus.MustNewConstMetric(c.proxyActive, prometheus.GaugeValue, boolValue(r.ProxyActive))
		ch <- prometheus.MustNewConstMetric(c.connections, prometheus.GaugeValue, float64(len(r.Connections)))
	}
	for source, count := range c.bySource {
		ch <- prometheus.MustNewConstMetric(c.readings, prometheus.CounterValue, count, string(source))
	}
	c.mu.RUnlock()

	if c.stats != nil {
		st := c.stats()
		ch <- prometheus.MustNewConstMetric(c.probesScheduled, prometheus.CounterValue, float64(st.Scheduled))
		ch <- prometheus.MustNewConstMetric(c.probesCompleted, prometheus.CounterValue, float64(st.Completed))
		ch <- prometheus.MustNewConstMetric(c.probesFailed, prometheus.CounterValue, float64(st.Failed))
		ch <- prometheus.MustNewConstMetric(c.probesInFlight, prometheus.GaugeValue, float64(st.InFlight))
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
