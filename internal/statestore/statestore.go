// Package statestore persists a watchstate.WatchdogState snapshot to
// disk with atomic replace semantics, so a crash mid-write never leaves
// a truncated file behind.
package statestore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/loykin/svcwatchd/internal/watchstate"
)

// Store persists one WatchdogState snapshot at a fixed path.
type Store struct {
	path string
	mu   sync.Mutex
	log  *slog.Logger
}

// New returns a Store writing to path. log is used only to warn about
// a missing or unparseable file on Load; it is never fatal.
func New(path string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{path: path, log: log}
}

// Load reads the snapshot from disk. A missing or corrupt file is
// logged and treated as "start fresh" rather than returned as an error,
// since losing in-memory counters on an unreadable state file should
// never block the daemon from starting.
func (s *Store) Load(startedAt func() watchstate.WatchdogState) *watchstate.WatchdogState {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("state file unreadable, starting fresh", "path", s.path, "err", err)
		}
		fresh := startedAt()
		return &fresh
	}

	var st watchstate.WatchdogState
	if err := yaml.Unmarshal(data, &st); err != nil {
		s.log.Warn("state file unparseable, starting fresh", "path", s.path, "err", err)
		fresh := startedAt()
		return &fresh
	}
	if st.Services == nil {
		st.Services = make(map[string]*watchstate.ServiceState)
	}
	return &st
}

// Save atomically replaces the snapshot file with st's contents.
func (s *Store) Save(st *watchstate.WatchdogState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("statestore: creating directory: %w", err)
	}

	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("statestore: marshaling state: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("statestore: writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("statestore: renaming temp file: %w", err)
	}
	return nil
}
