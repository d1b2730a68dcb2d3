// Package pidfile writes and removes the daemon's own PID file: a
// single line containing os.Getpid(), written at startup and removed
// on clean shutdown. A stale file from a previous run is simply
// overwritten, not validated against a live process.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// Write creates (or overwrites) path with the current process id.
func Write(path string) error {
	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("pidfile: mkdir %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644)
}

// Remove deletes path, ignoring a missing file.
func Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("pidfile: remove %s: %w", path, err)
	}
	return nil
}
