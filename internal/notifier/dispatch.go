package notifier

import (
	"context"
	"log/slog"

	"github.com/loykin/svcwatchd/internal/event"
)

// Dispatcher fans one event out to every configured sink, logging (not
// returning) delivery failures — a notifier outage must never block
// the scheduler tick.
type Dispatcher struct {
	Sinks []Sink
	Log   *slog.Logger
}

// NewDispatcher returns a Dispatcher over sinks.
func NewDispatcher(sinks []Sink, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{Sinks: sinks, Log: log}
}

// Handle implements scheduler.EventSink.
func (d *Dispatcher) Handle(_ context.Context, ev event.Event) {
	for _, sink := range d.Sinks {
		if !sink.ShouldDeliver(ev) {
			continue
		}
		d.deliver(sink, ev)
	}
}

// deliver calls sink.Deliver with a recover boundary: a panicking sink
// (e.g. a nil-map access in a misconfigured webhook) is logged and
// skipped, never crashing the tick that's dispatching events.
func (d *Dispatcher) deliver(sink Sink, ev event.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.Log.Error("notifier panicked", "service", ev.Service, "event", ev.Kind, "panic", r)
		}
	}()

	ok, msg := sink.Deliver(ev)
	if !ok {
		d.Log.Warn("notification delivery failed", "service", ev.Service, "event", ev.Kind, "detail", msg)
		return
	}
	d.Log.Debug("notification delivered", "service", ev.Service, "event", ev.Kind, "detail", msg)
}
