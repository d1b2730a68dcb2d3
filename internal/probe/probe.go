// Package probe implements the fixed-preference-order liveness check:
// health_url, then tcp_port, then pid_file, then process_name, falling
// through to the next configured method until one reports running.
package probe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	gopsnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/loykin/svcwatchd/internal/spec"
)

// Method identifies which detection method produced an Observation.
type Method string

const (
	MethodHealthURL    Method = "health_url"
	MethodTCPPort      Method = "tcp_port"
	MethodPIDFile      Method = "pid_file"
	MethodProcessName  Method = "process_name"
	MethodNone         Method = "none"
)

// Observation is the result of probing one service once.
type Observation struct {
	Running        bool
	Method         Method
	PID            int
	CPUPercent     float64
	MemoryBytes    uint64
	UptimeSeconds  float64
	ErrorText      string
	CheckedAt      time.Time
}

// Healthy reports whether the observation represents a live service.
func (o Observation) Healthy() bool { return o.Running && o.ErrorText == "" }

// Prober checks service liveness using the method preference order
// health_url -> tcp_port -> pid_file -> process_name, falling through
// to the next configured method whenever the current one is not
// running, and stopping at the first one that is.
type Prober struct {
	httpClient *http.Client
}

// New returns a Prober. Health checks use http.DefaultClient, bounded
// by the service's own health_timeout through the request context.
func New() *Prober {
	return &Prober{}
}

// Probe runs every configured detection method in preference order,
// falling through to the next one whenever the current method reports
// not-running, and stops at the first that reports running. If every
// configured method fails, the last method's observation (error_text
// included) is returned.
func (p *Prober) Probe(ctx context.Context, svc spec.ServiceSpec, now time.Time) Observation {
	var last Observation
	tried := false

	if svc.HealthURL != "" {
		tried = true
		last = p.probeHealthURL(ctx, svc, now)
		if last.Running {
			return last
		}
	}
	if svc.TCPPort != 0 {
		tried = true
		last = p.probeTCPPort(ctx, svc, now)
		if last.Running {
			return last
		}
	}
	if svc.PIDFilePath != "" {
		tried = true
		last = p.probePIDFile(svc, now)
		if last.Running {
			return last
		}
	}
	if svc.ProcessName != "" {
		tried = true
		last = p.probeProcessName(svc, now)
		if last.Running {
			return last
		}
	}

	if !tried {
		return Observation{Running: false, Method: MethodNone, ErrorText: "no detection method configured", CheckedAt: now}
	}
	return last
}

func (p *Prober) probeHealthURL(ctx context.Context, svc spec.ServiceSpec, now time.Time) Observation {
	timeout := svc.HealthTimeout
	if timeout <= 0 {
		timeout = spec.DefaultHealthTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	obs := Observation{Method: MethodHealthURL, CheckedAt: now}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, svc.HealthURL, nil)
	if err != nil {
		obs.ErrorText = err.Error()
		return obs
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		obs.ErrorText = err.Error()
		return obs
	}
	defer resp.Body.Close()

	if resp.StatusCode < 500 {
		obs.Running = true
	} else {
		obs.ErrorText = fmt.Sprintf("health_url returned status %d", resp.StatusCode)
	}
	p.enrichFromPort(svc.TCPPort, &obs)
	return obs
}

// tcpDialTimeout is fixed, independent of the per-service configurable
// health_timeout (which governs only the HTTP probe).
const tcpDialTimeout = 5 * time.Second

func (p *Prober) probeTCPPort(ctx context.Context, svc spec.ServiceSpec, now time.Time) Observation {
	obs := Observation{Method: MethodTCPPort, CheckedAt: now}
	d := net.Dialer{Timeout: tcpDialTimeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(svc.TCPPort)))
	if err != nil {
		obs.ErrorText = err.Error()
		return obs
	}
	_ = conn.Close()
	obs.Running = true
	p.enrichFromPort(svc.TCPPort, &obs)
	return obs
}

func (p *Prober) probePIDFile(svc spec.ServiceSpec, now time.Time) Observation {
	obs := Observation{Method: MethodPIDFile, CheckedAt: now}
	raw, err := os.ReadFile(svc.PIDFilePath)
	if err != nil {
		obs.ErrorText = err.Error()
		return obs
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		obs.ErrorText = fmt.Sprintf("malformed pid file: %v", err)
		return obs
	}
	alive, err := pidAlive(pid)
	if err != nil {
		obs.ErrorText = err.Error()
		return obs
	}
	obs.Running = alive
	if alive {
		obs.PID = pid
		p.enrichFromPID(int32(pid), &obs)
	} else {
		obs.ErrorText = "process not running for pid in pid file"
	}
	return obs
}

func (p *Prober) probeProcessName(svc spec.ServiceSpec, now time.Time) Observation {
	obs := Observation{Method: MethodProcessName, CheckedAt: now}
	procs, err := process.Processes()
	if err != nil {
		obs.ErrorText = err.Error()
		return obs
	}
	for _, proc := range procs {
		name, err := proc.Name()
		if err != nil || name != svc.ProcessName {
			continue
		}
		obs.Running = true
		obs.PID = int(proc.Pid)
		p.enrichFromPID(proc.Pid, &obs)
		return obs
	}
	obs.ErrorText = fmt.Sprintf("no process named %q found", svc.ProcessName)
	return obs
}

// enrichFromPID fills CPU/memory/uptime from a known pid. Failure to
// enrich does not change Running; it is best-effort telemetry.
func (p *Prober) enrichFromPID(pid int32, obs *Observation) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		obs.CPUPercent = cpu
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		obs.MemoryBytes = mem.RSS
	}
	if createdMs, err := proc.CreateTime(); err == nil {
		created := time.UnixMilli(createdMs)
		obs.UptimeSeconds = time.Since(created).Seconds()
	}
}

// enrichFromPort resolves the pid listening on port and enriches from
// it, using gopsutil's connection table. Best effort: a failure to
// resolve the owning pid leaves PID/CPU/memory unset.
func (p *Prober) enrichFromPort(port int, obs *Observation) {
	if port == 0 {
		return
	}
	conns, err := gopsnet.Connections("inet")
	if err != nil {
		return
	}
	for _, c := range conns {
		if int(c.Laddr.Port) == port && c.Pid != 0 {
			obs.PID = int(c.Pid)
			p.enrichFromPID(c.Pid, obs)
			return
		}
	}
}
