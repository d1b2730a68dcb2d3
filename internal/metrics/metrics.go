// Package metrics registers the daemon's Prometheus instrumentation:
// probe outcomes, per-service failure/restart gauges, and emitted
// watchdog events.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/svcwatchd/internal/event"
	"github.com/loykin/svcwatchd/internal/probe"
)

// Metrics holds every counter/gauge/histogram the daemon exposes.
type Metrics struct {
	ProbeTotal          *prometheus.CounterVec
	ProbeDuration       *prometheus.HistogramVec
	ConsecutiveFailures *prometheus.GaugeVec
	RestartCount        *prometheus.GaugeVec
	EventsTotal         *prometheus.CounterVec
	TickDuration        prometheus.Histogram
}

// New builds a fresh Metrics set, unregistered.
func New() *Metrics {
	return &Metrics{
		ProbeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "svcwatchd_probe_total",
			Help: "Total number of liveness probes run, labeled by service and method.",
		}, []string{"service", "method", "result"}),
		ProbeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "svcwatchd_probe_duration_seconds",
			Help: "Duration of a single liveness probe.",
		}, []string{"service", "method"}),
		ConsecutiveFailures: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "svcwatchd_consecutive_failures",
			Help: "Current consecutive failure count per service.",
		}, []string{"service"}),
		RestartCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "svcwatchd_restart_count",
			Help: "Restart attempts within the current restart window, per service.",
		}, []string{"service"}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "svcwatchd_events_total",
			Help: "Total events emitted, labeled by service and event kind.",
		}, []string{"service", "kind"}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "svcwatchd_tick_duration_seconds",
			Help: "Duration of one scheduler tick across all services.",
		}),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg *prometheus.Registry) {
	reg.MustRegister(m.ProbeTotal, m.ProbeDuration, m.ConsecutiveFailures, m.RestartCount, m.EventsTotal, m.TickDuration)
}

// ObserveProbe records one probe result.
func (m *Metrics) ObserveProbe(service string, obs probe.Observation, seconds float64) {
	result := "down"
	if obs.Healthy() {
		result = "up"
	}
	m.ProbeTotal.WithLabelValues(service, string(obs.Method), result).Inc()
	m.ProbeDuration.WithLabelValues(service, string(obs.Method)).Observe(seconds)
}

// Handle implements scheduler.EventSink so Metrics can be registered
// directly as a sink: every emitted event increments EventsTotal.
func (m *Metrics) Handle(_ context.Context, ev event.Event) {
	m.EventsTotal.WithLabelValues(ev.Service, string(ev.Kind)).Inc()
}

// SetServiceGauges updates the per-service gauges after a tick.
func (m *Metrics) SetServiceGauges(service string, consecutiveFailures, restartCount int) {
	m.ConsecutiveFailures.WithLabelValues(service).Set(float64(consecutiveFailures))
	m.RestartCount.WithLabelValues(service).Set(float64(restartCount))
}
