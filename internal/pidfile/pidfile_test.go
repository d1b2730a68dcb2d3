package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteThenRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svcwatchd.pid")
	if err := Write(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := fmt.Sprintf("%d\n", os.Getpid())
	if string(b) != want {
		t.Fatalf("expected %q, got %q", want, string(b))
	}
	if err := Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err = %v", err)
	}
}

func TestWrite_OverwritesStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svcwatchd.pid")
	if err := os.WriteFile(path, []byte("999999\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := Write(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, _ := os.ReadFile(path)
	want := fmt.Sprintf("%d\n", os.Getpid())
	if string(b) != want {
		t.Fatalf("expected overwrite to %q, got %q", want, string(b))
	}
}

func TestRemove_MissingFileIsNotError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.pid")
	if err := Remove(path); err != nil {
		t.Fatalf("expected nil error for missing file, got %v", err)
	}
}
