package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/loykin/svcwatchd/internal/event"
	"github.com/loykin/svcwatchd/internal/probe"
)

func TestObserveProbe_IncrementsCounter(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	m.Register(reg)

	m.ObserveProbe("web", probe.Observation{Running: true, Method: probe.MethodHealthURL}, 0.01)

	metric := &dto.Metric{}
	if err := m.ProbeTotal.WithLabelValues("web", "health_url", "up").Write(metric); err != nil {
		t.Fatalf("write: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Fatalf("expected counter 1, got %v", metric.Counter.GetValue())
	}
}

func TestHandle_IncrementsEventsTotal(t *testing.T) {
	m := New()
	ev := event.New(event.Restart, "web", "restarted", time.Now(), nil)
	m.Handle(context.Background(), ev)

	metric := &dto.Metric{}
	if err := m.EventsTotal.WithLabelValues("web", "RESTART").Write(metric); err != nil {
		t.Fatalf("write: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Fatalf("expected counter 1, got %v", metric.Counter.GetValue())
	}
}
