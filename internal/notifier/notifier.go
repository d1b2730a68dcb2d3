// Package notifier delivers watchdog events to external channels:
// telegram, slack, email, and generic webhook, each behind a shared
// Sink interface with its own delivery gating.
package notifier

import (
	"fmt"
	"strings"
	"sync"

	"github.com/loykin/svcwatchd/internal/event"
)

// Config is the decoded configuration for one notifier instance,
// shaped to hold every transport's fields. Fields unused by a given
// Type are simply left zero.
type Config struct {
	Type    string `mapstructure:"type"`
	Enabled bool   `mapstructure:"enabled"`

	OnFailure bool `mapstructure:"on_failure"`
	OnRecovery bool `mapstructure:"on_recovery"`
	OnRestart bool `mapstructure:"on_restart"`

	// Telegram
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`

	// Slack
	WebhookURL string `mapstructure:"webhook_url"`

	// Email
	SMTPHost     string   `mapstructure:"smtp_host"`
	SMTPPort     int      `mapstructure:"smtp_port"`
	SMTPUser     string   `mapstructure:"smtp_user"`
	SMTPPassword string   `mapstructure:"smtp_password"`
	FromAddr     string   `mapstructure:"from_addr"`
	ToAddrs      []string `mapstructure:"to_addrs"`

	// Generic webhook
	URL     string            `mapstructure:"url"`
	Method  string            `mapstructure:"method"`
	Headers map[string]string `mapstructure:"headers"`
}

// ApplyDefaults fills zero-valued fields onto a freshly-decoded Config.
func (c *Config) ApplyDefaults() {
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
	}
	if c.Method == "" {
		c.Method = "POST"
	}
}

// Sink delivers a single event to one transport.
type Sink interface {
	// ShouldDeliver reports whether this sink wants ev, checking the
	// enabled flag first and then the per-kind on_failure/on_recovery/
	// on_restart switches.
	ShouldDeliver(ev event.Event) bool
	// Deliver attempts delivery and reports success plus a
	// human-readable status message.
	Deliver(ev event.Event) (bool, string)
}

type baseConfig struct {
	cfg Config
}

// ShouldDeliver implements the shared enabled + per-kind gating every
// transport shares.
func (b baseConfig) ShouldDeliver(ev event.Event) bool {
	if !b.cfg.Enabled {
		return false
	}
	switch ev.Kind {
	case event.Failure:
		return b.cfg.OnFailure
	case event.Recovery:
		return b.cfg.OnRecovery
	case event.Restart, event.RestartFailed:
		return b.cfg.OnRestart
	default:
		return true
	}
}

// Factory builds a Sink from a Config.
type Factory func(Config) Sink

// Registry maps a notifier type name to its Factory.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a Registry pre-populated with the four built-in
// transports.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("telegram", func(c Config) Sink { return NewTelegram(c) })
	r.Register("slack", func(c Config) Sink { return NewSlack(c) })
	r.Register("email", func(c Config) Sink { return NewEmail(c) })
	r.Register("webhook", func(c Config) Sink { return NewWebhook(c) })
	return r
}

// Register adds or replaces the factory for a notifier type name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(name)] = f
}

// Build constructs a Sink for cfg.Type, applying defaults first.
func (r *Registry) Build(cfg Config) (Sink, error) {
	cfg.ApplyDefaults()
	r.mu.RLock()
	f, ok := r.factories[strings.ToLower(cfg.Type)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("notifier: unknown type %q", cfg.Type)
	}
	return f(cfg), nil
}
