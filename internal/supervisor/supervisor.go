// Package supervisor implements the per-service state machine:
// edge-triggered FAILURE/RECOVERY events, debounced alerting, restart
// scheduling, and the sliding-window restart rate limiter. Built around
// clock.Clock so tests can drive time deterministically instead of
// sleeping.
package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/loykin/svcwatchd/internal/clock"
	"github.com/loykin/svcwatchd/internal/controller"
	"github.com/loykin/svcwatchd/internal/event"
	"github.com/loykin/svcwatchd/internal/probe"
	"github.com/loykin/svcwatchd/internal/spec"
	"github.com/loykin/svcwatchd/internal/watchstate"
)

// Supervisor evaluates probe observations against one service's state
// and decides what should happen next: nothing, an alert, or a
// restart attempt. It holds no per-service state itself — all of it
// lives in the watchstate.ServiceState the caller passes in, so one
// Supervisor instance is safe to reuse across every configured service.
type Supervisor struct {
	Controller *controller.Controller
	Clock      clock.Clock
}

// New returns a Supervisor using ctrl for restart actions and clk as
// its time source.
func New(ctrl *controller.Controller, clk clock.Clock) *Supervisor {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Supervisor{Controller: ctrl, Clock: clk}
}

// OnObservation folds one probe result into svc's state and returns
// the events that resulted. Events are edge-triggered: a FAILURE fires
// once per episode (on crossing failure_threshold, gated by the
// alerted flag), and a RECOVERY fires only when the service had
// previously failed or alerted.
func (s *Supervisor) OnObservation(svcCfg spec.ServiceSpec, st *watchstate.ServiceState, obs probe.Observation) []event.Event {
	now := s.Clock.Now()
	st.LastCheck = &now

	if obs.Healthy() {
		return s.onHealthy(svcCfg, st, obs, now)
	}
	return s.onUnhealthy(svcCfg, st, obs, now)
}

func (s *Supervisor) onHealthy(svcCfg spec.ServiceSpec, st *watchstate.ServiceState, obs probe.Observation, now time.Time) []event.Event {
	var events []event.Event
	if st.ConsecutiveFailures > 0 || st.Alerted {
		events = append(events, event.New(event.Recovery, svcCfg.Name, "service is now running normally", now, obsSnapshot(obs)))
	}
	st.ResetFailure()
	return events
}

func (s *Supervisor) onUnhealthy(svcCfg spec.ServiceSpec, st *watchstate.ServiceState, obs probe.Observation, now time.Time) []event.Event {
	st.ConsecutiveFailures++

	var events []event.Event
	if st.ConsecutiveFailures < svcCfg.FailureThreshold {
		return events
	}

	if !st.Alerted {
		msg := fmt.Sprintf("service has failed %d consecutive checks. Will attempt restart in %s.",
			st.ConsecutiveFailures, svcCfg.RestartDelay)
		events = append(events, event.New(event.Failure, svcCfg.Name, msg, now, obsSnapshot(obs)))
		st.Alerted = true
	}

	if st.PendingRestartAt == nil {
		restartAt := now.Add(svcCfg.RestartDelay)
		st.PendingRestartAt = &restartAt
	}
	return events
}

// RestartDue reports whether svc's pending restart timer has elapsed.
func (s *Supervisor) RestartDue(st *watchstate.ServiceState) bool {
	if st.PendingRestartAt == nil {
		return false
	}
	return !s.Clock.Now().Before(*st.PendingRestartAt)
}

// AttemptRestart runs the configured restart command, applying a
// sliding-window rate limit: restart_window_start anchors the window
// on the first attempt (or rolls forward once the
// window has elapsed), and restart_count within that window is capped
// at max_restarts. Exceeding the cap emits RESTART_FAILED and clears
// pending_restart_at; no restart command runs again until the window
// has elapsed. A recovery does not reset restart_count.
func (s *Supervisor) AttemptRestart(ctx context.Context, svcCfg spec.ServiceSpec, st *watchstate.ServiceState) []event.Event {
	now := s.Clock.Now()

	if st.RestartWindowStart == nil {
		st.RestartWindowStart = &now
		st.RestartCount = 0
	} else if now.Sub(*st.RestartWindowStart) > svcCfg.RestartWindow {
		st.RestartWindowStart = &now
		st.RestartCount = 0
	}

	if st.RestartCount >= svcCfg.MaxRestarts {
		st.PendingRestartAt = nil
		msg := fmt.Sprintf("exceeded maximum restart attempts (%d) within window. Manual intervention required.", svcCfg.MaxRestarts)
		return []event.Event{event.New(event.RestartFailed, svcCfg.Name, msg, now, nil)}
	}

	res := s.Controller.Restart(ctx, svcCfg)
	st.RestartCount++
	st.PendingRestartAt = nil

	if res.Err == nil {
		msg := fmt.Sprintf("service restarted successfully.\nRestart #%d within current window.", st.RestartCount)
		return []event.Event{event.New(event.Restart, svcCfg.Name, msg, now, nil)}
	}

	msg := fmt.Sprintf("restart attempt failed: %v.\nAttempt #%d of %d.", res.Err, st.RestartCount, svcCfg.MaxRestarts)
	restartAt := now.Add(svcCfg.RestartDelay)
	st.PendingRestartAt = &restartAt
	return []event.Event{event.New(event.RestartFailed, svcCfg.Name, msg, now, nil)}
}

func obsSnapshot(obs probe.Observation) *event.Observation {
	return &event.Observation{Running: obs.Running, PID: obs.PID, ErrorText: obs.ErrorText}
}
