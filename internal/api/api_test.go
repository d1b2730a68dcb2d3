package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/loykin/svcwatchd/internal/watchstate"
)

type fakeSnapshotter struct {
	state watchstate.WatchdogState
}

func (f fakeSnapshotter) Snapshot() watchstate.WatchdogState { return f.state }

func TestHealthz(t *testing.T) {
	srv := New(fakeSnapshotter{state: *watchstate.New(time.Now())}, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestStatus_ReportsServices(t *testing.T) {
	st := watchstate.New(time.Now())
	svcState := st.For("web")
	svcState.ConsecutiveFailures = 1
	srv := New(fakeSnapshotter{state: *st}, map[string]bool{"web": true})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	services, ok := body["services"].([]any)
	if !ok || len(services) != 1 {
		t.Fatalf("expected 1 service in response, got %v", body["services"])
	}
}
