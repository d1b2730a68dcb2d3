package statestore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/svcwatchd/internal/watchstate"
)

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	s := New(path, nil)

	now := time.Now().Truncate(time.Second)
	st := watchstate.New(now)
	svcState := st.For("web")
	svcState.ConsecutiveFailures = 2
	svcState.RestartCount = 1

	if err := s.Save(st); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := s.Load(func() watchstate.WatchdogState { return *watchstate.New(now) })
	got := loaded.For("web")
	if got.ConsecutiveFailures != 2 || got.RestartCount != 1 {
		t.Fatalf("unexpected roundtrip: %+v", got)
	}
}

func TestLoad_MissingFile_StartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "state.yaml")
	s := New(path, nil)
	now := time.Now()
	loaded := s.Load(func() watchstate.WatchdogState { return *watchstate.New(now) })
	if len(loaded.Services) != 0 {
		t.Fatalf("expected empty state, got %+v", loaded)
	}
}

func TestLoad_CorruptFile_StartsFresh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.yaml")
	s := New(path, nil)
	if err := s.Save(watchstate.New(time.Now())); err != nil {
		t.Fatal(err)
	}
	// Corrupt it.
	if err := os.WriteFile(path, []byte("not: [valid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	loaded := s.Load(func() watchstate.WatchdogState { return *watchstate.New(time.Now()) })
	if loaded == nil {
		t.Fatalf("expected fresh state, got nil")
	}
}
