// Package history defines the durable event-history sink interface.
// It appends every emitted FAILURE/RECOVERY/RESTART/RESTART_FAILED
// event to an external store for later querying, independent of the
// state counters in internal/watchstate that the supervisor needs to
// make decisions.
package history

import (
	"context"

	"github.com/loykin/svcwatchd/internal/event"
)

// Sink is a destination for watchdog events. Implementations must be
// safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, ev event.Event) error
	Close() error
}

// NopSink discards every event; NewEventSink substitutes it for a nil sink.
type NopSink struct{}

func (NopSink) Send(context.Context, event.Event) error { return nil }
func (NopSink) Close() error                             { return nil }

// EventSink adapts a Sink to scheduler.EventSink, logging (not
// returning) send errors so a history-store outage never blocks a
// scheduler tick.
type EventSink struct {
	Sink Sink
	Log  logFunc
}

// logFunc matches slog.Logger.Warn's signature without importing
// log/slog here, keeping this adapter trivially testable.
type logFunc func(msg string, args ...any)

// NewEventSink returns an EventSink wrapping sink. logWarn is called
// on delivery failure; pass nil to silently ignore errors.
func NewEventSink(sink Sink, logWarn func(msg string, args ...any)) *EventSink {
	if sink == nil {
		sink = NopSink{}
	}
	if logWarn == nil {
		logWarn = func(string, ...any) {}
	}
	return &EventSink{Sink: sink, Log: logWarn}
}

func (e *EventSink) Handle(ctx context.Context, ev event.Event) {
	if err := e.Sink.Send(ctx, ev); err != nil {
		e.Log("failed to persist event history", "service", ev.Service, "event", ev.Kind, "err", err)
	}
}
