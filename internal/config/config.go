// Package config loads the daemon's YAML configuration file via viper,
// decoding it into the service/notifier/history/metrics/api schema and
// validating it before the daemon starts.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/loykin/svcwatchd/internal/envmerge"
	"github.com/loykin/svcwatchd/internal/logger"
	"github.com/loykin/svcwatchd/internal/notifier"
	"github.com/loykin/svcwatchd/internal/spec"
)

// Config is the root decoded configuration file.
type Config struct {
	DryRun    bool     `mapstructure:"dry_run"`
	StateFile string   `mapstructure:"state_file"`
	PidFile   string   `mapstructure:"pid_file"`
	Daemon    bool     `mapstructure:"daemon"`
	UseOSEnv  bool     `mapstructure:"use_os_env"`
	Env       map[string]string `mapstructure:"env"`

	Services  []spec.ServiceSpec  `mapstructure:"services"`
	Notifiers []notifier.Config   `mapstructure:"notifiers"`

	History *HistoryConfig `mapstructure:"history"`
	Metrics *MetricsConfig `mapstructure:"metrics"`
	API     *APIConfig     `mapstructure:"api"`
	Log     *logger.Config `mapstructure:"log"`

	// GlobalEnv is computed after decoding: the daemon's own
	// environment (when use_os_env is true) overlaid by Env. Load
	// folds it into every service's Env and expands ${VAR} references
	// in HealthURL/RestartCmd/StartCmd/StopCmd/WorkingDir against the
	// merged map, so services never see GlobalEnv directly — this
	// field exists mainly so Redacted/tests can inspect what was
	// folded in.
	GlobalEnv []string `mapstructure:"-"`
}

// HistoryConfig configures the optional durable event-history sink.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// MetricsConfig configures Prometheus metric exposition. Listen is
// decoded but not used: metrics are served only on the API server's
// /metrics route.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// APIConfig configures the read-only introspection HTTP server.
type APIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

const DefaultStateFile = "/var/lib/svcwatchd/state.yaml"

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := parseConfigFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.StateFile == "" {
		cfg.StateFile = DefaultStateFile
	}

	for i := range cfg.Services {
		cfg.Services[i].ApplyDefaults()
	}
	for i := range cfg.Notifiers {
		cfg.Notifiers[i].ApplyDefaults()
	}

	cfg.GlobalEnv = computeGlobalEnv(cfg.UseOSEnv, cfg.Env)
	cfg.applyGlobalEnv()

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

func parseConfigFile(path string, out *Config) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := v.UnmarshalExact(out); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// A service entry that omits `enabled` is enabled; an explicit
	// `enabled: false` is kept.
	if raw, ok := v.Get("services").([]any); ok {
		for i, item := range raw {
			m, ok := item.(map[string]any)
			if !ok || i >= len(out.Services) {
				continue
			}
			set := false
			for k := range m {
				set = set || strings.EqualFold(k, "enabled")
			}
			if !set {
				out.Services[i].Enabled = true
			}
		}
	}

	// Viper lowercases map keys; read the env maps again so variable
	// names keep their case for ${VAR} expansion and the subprocess env.
	if data, err := os.ReadFile(path); err == nil {
		var envs struct {
			Env      map[string]string `yaml:"env"`
			Services []struct {
				Env map[string]string `yaml:"env"`
			} `yaml:"services"`
		}
		if yaml.Unmarshal(data, &envs) == nil {
			out.Env = envs.Env
			for i := range envs.Services {
				if i < len(out.Services) {
					out.Services[i].Env = envs.Services[i].Env
				}
			}
		}
	}
	return nil
}

// applyGlobalEnv folds GlobalEnv into every service's Env (service keys
// win on collision) and expands ${VAR} references in each service's Env
// values and in HealthURL/RestartCmd/StartCmd/StopCmd/WorkingDir against
// the merged map. Applied once at load time so the rest of the daemon
// (controller, prober) never needs to know about the global layer.
func (c *Config) applyGlobalEnv() {
	global := make(map[string]string, len(c.GlobalEnv))
	for _, kv := range c.GlobalEnv {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			global[kv[:i]] = kv[i+1:]
		}
	}

	for i := range c.Services {
		svc := &c.Services[i]
		merged := make(map[string]string, len(global)+len(svc.Env))
		for k, v := range global {
			merged[k] = v
		}
		for k, v := range svc.Env {
			merged[k] = v
		}
		for k, v := range merged {
			merged[k] = envmerge.Expand(v, merged)
		}

		svc.Env = merged
		svc.HealthURL = envmerge.Expand(svc.HealthURL, merged)
		svc.RestartCmd = envmerge.Expand(svc.RestartCmd, merged)
		svc.StartCmd = envmerge.Expand(svc.StartCmd, merged)
		svc.StopCmd = envmerge.Expand(svc.StopCmd, merged)
		svc.WorkingDir = envmerge.Expand(svc.WorkingDir, merged)
	}
}

func computeGlobalEnv(useOSEnv bool, overlay map[string]string) []string {
	var base []string
	if useOSEnv {
		base = os.Environ()
	}
	return envmerge.Merge(base, overlay)
}

// Validate returns every configuration error found across the whole
// file: each service's at-least-one detection-method/action-command
// requirement, plus duplicate service names.
func (c *Config) Validate() []string {
	var errs []string
	seen := make(map[string]bool, len(c.Services))
	for _, svc := range c.Services {
		if seen[svc.Name] {
			errs = append(errs, fmt.Sprintf("duplicate service name %q", svc.Name))
		}
		seen[svc.Name] = true
		errs = append(errs, svc.Validate()...)
	}
	for i, n := range c.Notifiers {
		if strings.TrimSpace(n.Type) == "" {
			errs = append(errs, fmt.Sprintf("notifier #%d: type required", i))
		}
	}
	return errs
}

// Redacted returns a copy of the config safe to print or log: notifier
// secrets (bot tokens, SMTP passwords) are replaced with a fixed
// placeholder.
func (c *Config) Redacted() Config {
	cp := *c
	cp.Notifiers = make([]notifier.Config, len(c.Notifiers))
	for i, n := range c.Notifiers {
		n.BotToken = redact(n.BotToken)
		n.SMTPPassword = redact(n.SMTPPassword)
		cp.Notifiers[i] = n
	}
	return cp
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***redacted***"
}

// ServiceCheckInterval is exposed for callers that want to print the
// effective default without importing spec.
func ServiceCheckInterval() time.Duration { return spec.DefaultCheckInterval }
