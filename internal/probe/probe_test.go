package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/loykin/svcwatchd/internal/spec"
)

func TestProbe_HealthURL_Up(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := spec.ServiceSpec{Name: "web", HealthURL: srv.URL, HealthTimeout: time.Second}
	p := New()
	obs := p.Probe(context.Background(), svc, time.Now())
	if !obs.Running {
		t.Fatalf("expected running, got %+v", obs)
	}
	if obs.Method != MethodHealthURL {
		t.Fatalf("expected method health_url, got %s", obs.Method)
	}
}

func TestProbe_HealthURL_Down(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc := spec.ServiceSpec{Name: "web", HealthURL: srv.URL, HealthTimeout: time.Second}
	obs := New().Probe(context.Background(), svc, time.Now())
	if obs.Running {
		t.Fatalf("expected not running, got %+v", obs)
	}
	if obs.ErrorText == "" {
		t.Fatalf("expected error text")
	}
}

func TestProbe_PIDFile_SelfPID(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "svc.pid")
	self := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(self)), 0o644); err != nil {
		t.Fatal(err)
	}
	svc := spec.ServiceSpec{Name: "selfie", PIDFilePath: pidPath}
	obs := New().Probe(context.Background(), svc, time.Now())
	if !obs.Running {
		t.Fatalf("expected running, got %+v", obs)
	}
	if obs.PID != self {
		t.Fatalf("expected pid %d, got %d", self, obs.PID)
	}
}

func TestProbe_PIDFile_Missing(t *testing.T) {
	svc := spec.ServiceSpec{Name: "ghost", PIDFilePath: filepath.Join(t.TempDir(), "nope.pid")}
	obs := New().Probe(context.Background(), svc, time.Now())
	if obs.Running {
		t.Fatalf("expected not running")
	}
}

func TestProbe_PreferenceOrder_HealthURLWinsOverPort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := spec.ServiceSpec{Name: "both", HealthURL: srv.URL, TCPPort: 1, HealthTimeout: time.Second}
	obs := New().Probe(context.Background(), svc, time.Now())
	if obs.Method != MethodHealthURL {
		t.Fatalf("expected health_url to take precedence, got %s", obs.Method)
	}
}

func TestProbe_FallsThroughToNextMethodOnFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	svc := spec.ServiceSpec{Name: "both", HealthURL: down.URL, TCPPort: port, HealthTimeout: time.Second}
	obs := New().Probe(context.Background(), svc, time.Now())
	if !obs.Running {
		t.Fatalf("expected running via tcp_port fallthrough, got %+v", obs)
	}
	if obs.Method != MethodTCPPort {
		t.Fatalf("expected method tcp_port, got %s", obs.Method)
	}
}

func TestProbe_NoMethodConfigured(t *testing.T) {
	obs := New().Probe(context.Background(), spec.ServiceSpec{Name: "none"}, time.Now())
	if obs.Running {
		t.Fatalf("expected not running")
	}
	if obs.Method != MethodNone {
		t.Fatalf("expected method none, got %s", obs.Method)
	}
}
