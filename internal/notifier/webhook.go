package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/loykin/svcwatchd/internal/event"
)

// Webhook delivers the raw event as JSON to an arbitrary HTTP endpoint.
type Webhook struct {
	baseConfig
	client *http.Client
}

// NewWebhook returns a Webhook sink for cfg.
func NewWebhook(cfg Config) *Webhook {
	return &Webhook{baseConfig: baseConfig{cfg: cfg}, client: &http.Client{Timeout: 30 * time.Second}}
}

func (w *Webhook) Deliver(ev event.Event) (bool, string) {
	if w.cfg.URL == "" {
		return false, "webhook url required"
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return false, fmt.Sprintf("webhook error: %v", err)
	}

	method := w.cfg.Method
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequest(method, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Sprintf("webhook error: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return false, fmt.Sprintf("webhook error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return false, fmt.Sprintf("webhook error: status %d", resp.StatusCode)
	}
	return true, fmt.Sprintf("webhook notification sent (%d)", resp.StatusCode)
}
