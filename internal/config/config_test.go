package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "svcwatchd.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
state_file: /tmp/svcwatchd-state.yaml
services:
  - name: web
    health_url: http://127.0.0.1:8080/health
    restart_cmd: systemctl restart web
notifiers:
  - type: webhook
    enabled: true
    url: http://localhost:9000/hook
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Services) != 1 {
		t.Fatalf("expected 1 service, got %d", len(cfg.Services))
	}
	svc := cfg.Services[0]
	if svc.CheckInterval == 0 || svc.FailureThreshold == 0 {
		t.Fatalf("expected defaults applied, got %+v", svc)
	}
}

func TestLoad_MissingDetectionMethod_IsError(t *testing.T) {
	path := writeConfig(t, `
services:
  - name: broken
    restart_cmd: echo hi
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoad_MissingActionCommand_IsError(t *testing.T) {
	path := writeConfig(t, `
services:
  - name: broken
    process_name: broken
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoad_DuplicateServiceName_IsError(t *testing.T) {
	path := writeConfig(t, `
services:
  - name: dup
    process_name: dup
    restart_cmd: echo hi
  - name: dup
    process_name: dup
    restart_cmd: echo hi
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected duplicate name error")
	}
}

func TestLoad_GlobalEnvSubstitutesIntoServiceFields(t *testing.T) {
	path := writeConfig(t, `
use_os_env: false
env:
  HOST: 127.0.0.1
  PORT: "8080"
services:
  - name: web
    health_url: http://${HOST}:${PORT}/health
    working_dir: /srv/${HOST}
    restart_cmd: echo hi
    env:
      HOST: override-host
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc := cfg.Services[0]
	if svc.HealthURL != "http://override-host:8080/health" {
		t.Fatalf("expected per-service env to win and ${VAR} expansion to apply, got %q", svc.HealthURL)
	}
	if svc.WorkingDir != "/srv/override-host" {
		t.Fatalf("expected working_dir expansion, got %q", svc.WorkingDir)
	}
	if svc.Env["PORT"] != "8080" {
		t.Fatalf("expected global env key to be folded into service env, got %+v", svc.Env)
	}
}

func TestRedacted_HidesSecrets(t *testing.T) {
	path := writeConfig(t, `
services:
  - name: web
    process_name: web
    restart_cmd: echo hi
notifiers:
  - type: telegram
    bot_token: super-secret-token
    chat_id: "123"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	redacted := cfg.Redacted()
	if redacted.Notifiers[0].BotToken == "super-secret-token" {
		t.Fatalf("expected bot token to be redacted")
	}
}
