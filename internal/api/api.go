// Package api exposes a read-only introspection HTTP server backed by
// gin: /status, /metrics, and /healthz. There is no mutating endpoint
// (no remote start/stop/restart) — restarting a service is a local CLI
// operation, not a network-reachable one.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loykin/svcwatchd/internal/scheduler"
	"github.com/loykin/svcwatchd/internal/watchstate"
)

// ServiceStatus is the public JSON shape for one service's status.
type ServiceStatus struct {
	Name                string `json:"name"`
	Enabled             bool   `json:"enabled"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	Alerted             bool   `json:"alerted"`
	RestartCount        int    `json:"restart_count"`
	PendingRestart      bool   `json:"pending_restart"`
	LastCheck           *int64 `json:"last_check,omitempty"`
}

// Snapshotter is the subset of *scheduler.Scheduler the API needs.
type Snapshotter interface {
	Snapshot() watchstate.WatchdogState
}

// Server builds the read-only introspection HTTP server.
type Server struct {
	engine *gin.Engine
}

// New builds a Server over sched (service status) and enabled (the
// enabled flag of every configured service, since WatchdogState alone
// does not carry configuration).
func New(sched Snapshotter, enabled map[string]bool) *Server {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())

	g.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	g.GET("/status", func(c *gin.Context) {
		snap := sched.Snapshot()
		out := make([]ServiceStatus, 0, len(snap.Services))
		for name, st := range snap.Services {
			s := ServiceStatus{
				Name:                name,
				Enabled:             enabled[name],
				ConsecutiveFailures: st.ConsecutiveFailures,
				Alerted:             st.Alerted,
				RestartCount:        st.RestartCount,
				PendingRestart:      st.PendingRestartAt != nil,
			}
			if st.LastCheck != nil {
				u := st.LastCheck.Unix()
				s.LastCheck = &u
			}
			out = append(out, s)
		}
		for name, on := range enabled {
			if _, ok := snap.Services[name]; !ok {
				out = append(out, ServiceStatus{Name: name, Enabled: on})
			}
		}
		c.JSON(http.StatusOK, gin.H{"started_at": snap.StartedAt, "services": out})
	})

	g.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &Server{engine: g}
}

// Handler returns the http.Handler to mount or listen with.
func (s *Server) Handler() http.Handler { return s.engine }

var _ Snapshotter = (*scheduler.Scheduler)(nil)
