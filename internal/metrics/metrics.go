// Package metrics exposes the monitor's state as Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hamed0406/healthwatch/internal/monitor"
)

type Collector struct {
	// Down is 1 while the backend is believed unreachable.
	Down prometheus.Gauge
	// ConsecutiveFailures mirrors the monitor's retry count.
	ConsecutiveFailures prometheus.Gauge
	// ChecksTotal counts applied outcomes. Labels: result (success, failure), kind.
	ChecksTotal *prometheus.CounterVec
	// CheckDuration observes probe latency in seconds.
	CheckDuration prometheus.Histogram
}

// NewCollector registers the collectors on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		Down: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "healthwatch",
			Subsystem: "monitor",
			Name:      "down",
			Help:      "Whether the backend is believed down (1) or up (0)",
		}),
		ConsecutiveFailures: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "healthwatch",
			Subsystem: "monitor",
			Name:      "consecutive_failures",
			Help:      "Failed checks since the last success",
		}),
		ChecksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthwatch",
			Subsystem: "monitor",
			Name:      "checks_total",
			Help:      "Total number of applied health outcomes",
		}, []string{"result", "kind"}),
		CheckDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "healthwatch",
			Subsystem: "monitor",
			Name:      "check_duration_seconds",
			Help:      "Duration of liveness probes in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// Observe is a monitor subscriber.
func (c *Collector) Observe(ev monitor.Event) {
	if ev.State.IsDown {
		c.Down.Set(1)
	} else {
		c.Down.Set(0)
	}
	c.ConsecutiveFailures.Set(float64(ev.State.ConsecutiveFailures))

	result, kind := "success", "none"
	if !ev.Outcome.IsHealthy() {
		result, kind = "failure", string(ev.Outcome.Kind)
	}
	c.ChecksTotal.WithLabelValues(result, kind).Inc()

	if ev.Cause == monitor.CauseProbe && ev.Outcome.LatencyMS > 0 {
		c.CheckDuration.Observe(ev.Outcome.LatencyMS / 1000)
	}
}
