package notifier

import (
	"testing"
	"time"

	"github.com/loykin/svcwatchd/internal/event"
)

func TestShouldDeliver_DisabledSinkNeverFires(t *testing.T) {
	b := baseConfig{cfg: Config{Enabled: false, OnFailure: true}}
	ev := event.New(event.Failure, "web", "down", time.Now(), nil)
	if b.ShouldDeliver(ev) {
		t.Fatalf("expected disabled sink to skip delivery")
	}
}

func TestShouldDeliver_GatesPerKind(t *testing.T) {
	b := baseConfig{cfg: Config{Enabled: true, OnFailure: true, OnRecovery: false, OnRestart: true}}
	now := time.Now()
	cases := []struct {
		kind event.Kind
		want bool
	}{
		{event.Failure, true},
		{event.Recovery, false},
		{event.Restart, true},
		{event.RestartFailed, true},
	}
	for _, c := range cases {
		ev := event.New(c.kind, "web", "msg", now, nil)
		if got := b.ShouldDeliver(ev); got != c.want {
			t.Fatalf("kind %s: got %v want %v", c.kind, got, c.want)
		}
	}
}

func TestRegistry_BuildUnknownType(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Build(Config{Type: "carrier-pigeon"}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestRegistry_BuildKnownTypes(t *testing.T) {
	r := NewRegistry()
	for _, typ := range []string{"telegram", "slack", "email", "webhook"} {
		sink, err := r.Build(Config{Type: typ, Enabled: true})
		if err != nil {
			t.Fatalf("type %s: %v", typ, err)
		}
		if sink == nil {
			t.Fatalf("type %s: nil sink", typ)
		}
	}
}

func TestTelegram_MissingCredentials(t *testing.T) {
	tg := NewTelegram(Config{Enabled: true})
	ok, msg := tg.Deliver(event.New(event.Failure, "web", "down", time.Now(), nil))
	if ok {
		t.Fatalf("expected failure without credentials")
	}
	if msg == "" {
		t.Fatalf("expected explanatory message")
	}
}

func TestWebhook_MissingURL(t *testing.T) {
	wh := NewWebhook(Config{Enabled: true})
	ok, _ := wh.Deliver(event.New(event.Recovery, "web", "up", time.Now(), nil))
	if ok {
		t.Fatalf("expected failure without url")
	}
}
