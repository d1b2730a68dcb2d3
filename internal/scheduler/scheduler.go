// Package scheduler drives the fixed one-second tick loop, walking
// every enabled service each tick, probing it when its
// check_interval has elapsed, folding the result through the
// supervisor state machine, running due restarts, dispatching emitted
// events to notifiers and history, and persisting state at the end of
// the tick.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/loykin/svcwatchd/internal/clock"
	"github.com/loykin/svcwatchd/internal/event"
	"github.com/loykin/svcwatchd/internal/probe"
	"github.com/loykin/svcwatchd/internal/spec"
	"github.com/loykin/svcwatchd/internal/statestore"
	"github.com/loykin/svcwatchd/internal/supervisor"
	"github.com/loykin/svcwatchd/internal/watchstate"
)

// TickInterval is the fixed scheduler cadence.
const TickInterval = time.Second

// EventSink receives every event emitted during a tick. Both the
// notifier dispatch and the history store implement this so the
// scheduler does not need to know about either concretely.
type EventSink interface {
	Handle(ctx context.Context, ev event.Event)
}

// Scheduler owns the tick loop for a fixed set of services.
type Scheduler struct {
	Services   []spec.ServiceSpec
	Prober     *probe.Prober
	Supervisor *supervisor.Supervisor
	Store      *statestore.Store
	Sinks      []EventSink
	Clock      clock.Clock
	Log        *slog.Logger

	// DryRun skips persisting state to disk; in-memory counters still
	// update so restart-rate-limiting logic behaves identically during
	// a dry run, only the on-disk snapshot is suppressed.
	DryRun bool

	mu    sync.Mutex
	state *watchstate.WatchdogState
}

// New constructs a Scheduler. clk defaults to clock.Real{} when nil.
func New(services []spec.ServiceSpec, prober *probe.Prober, sup *supervisor.Supervisor, store *statestore.Store, sinks []EventSink, clk clock.Clock, log *slog.Logger) *Scheduler {
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		Services:   services,
		Prober:     prober,
		Supervisor: sup,
		Store:      store,
		Sinks:      sinks,
		Clock:      clk,
		Log:        log,
	}
}

// Run blocks, ticking every TickInterval until ctx is canceled. State
// is loaded once at startup and saved at the end of every tick.
func (s *Scheduler) Run(ctx context.Context) {
	s.state = s.Store.Load(func() watchstate.WatchdogState {
		return *watchstate.New(s.Clock.Now())
	})

	s.Log.Info("scheduler started", "services", len(s.Services))

	for {
		select {
		case <-ctx.Done():
			s.Log.Info("scheduler stopping")
			return
		default:
		}

		s.Tick(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(TickInterval):
		}
	}
}

// Tick runs one pass over every enabled service. Exported so callers
// (and tests) can drive individual ticks without the sleep loop.
func (s *Scheduler) Tick(ctx context.Context) {
	s.mu.Lock()
	if s.state == nil {
		s.state = watchstate.New(s.Clock.Now())
	}
	state := s.state
	s.mu.Unlock()

	for _, svc := range s.Services {
		if !svc.Enabled {
			continue
		}
		s.tickOne(ctx, svc, state)
	}

	if s.DryRun {
		return
	}
	if err := s.Store.Save(state); err != nil {
		s.Log.Error("failed to persist state", "err", err)
	}
}

func (s *Scheduler) tickOne(ctx context.Context, svc spec.ServiceSpec, state *watchstate.WatchdogState) {
	st := state.For(svc.Name)

	if st.PendingRestartAt != nil && s.Supervisor.RestartDue(st) {
		events := s.Supervisor.AttemptRestart(ctx, svc, st)
		s.dispatch(ctx, events)
		return
	}

	if st.LastCheck != nil {
		if s.Clock.Now().Sub(*st.LastCheck) < svc.CheckInterval {
			return
		}
	}

	obs := s.Prober.Probe(ctx, svc, s.Clock.Now())
	events := s.Supervisor.OnObservation(svc, st, obs)
	s.dispatch(ctx, events)
}

func (s *Scheduler) dispatch(ctx context.Context, events []event.Event) {
	for _, ev := range events {
		for _, sink := range s.Sinks {
			sink.Handle(ctx, ev)
		}
	}
}

// Snapshot returns a copy of the current watchdog state, for the
// status CLI command and the introspection HTTP server.
func (s *Scheduler) Snapshot() watchstate.WatchdogState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return *watchstate.New(s.Clock.Now())
	}
	cp := *s.state
	services := make(map[string]*watchstate.ServiceState, len(s.state.Services))
	for name, st := range s.state.Services {
		stCopy := *st
		services[name] = &stCopy
	}
	cp.Services = services
	return cp
}
