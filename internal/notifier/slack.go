package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/loykin/svcwatchd/internal/event"
)

var slackColor = map[event.Kind]string{
	event.Failure:       "danger",
	event.Recovery:      "good",
	event.Restart:       "warning",
	event.RestartFailed: "danger",
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
}

type slackPayload struct {
	Attachments []slackAttachment `json:"attachments"`
}

// Slack delivers events as color-coded webhook attachments.
type Slack struct {
	baseConfig
	client *http.Client
}

// NewSlack returns a Slack sink for cfg.
func NewSlack(cfg Config) *Slack {
	return &Slack{baseConfig: baseConfig{cfg: cfg}, client: &http.Client{Timeout: 30 * time.Second}}
}

func (s *Slack) Deliver(ev event.Event) (bool, string) {
	if s.cfg.WebhookURL == "" {
		return false, "slack webhook_url required"
	}

	color, ok := slackColor[ev.Kind]
	if !ok {
		color = "#808080"
	}

	att := slackAttachment{
		Color:  color,
		Title:  fmt.Sprintf("Service Watchdog: %s", ev.Service),
		Text:   ev.Message,
		Footer: "Service Watchdog",
		Fields: []slackField{
			{Title: "Event", Value: strings.ToUpper(string(ev.Kind)), Short: true},
			{Title: "Time", Value: ev.Timestamp.Format("2006-01-02 15:04:05"), Short: true},
		},
	}
	if ev.Observation != nil && ev.Observation.ErrorText != "" {
		att.Fields = append(att.Fields, slackField{Title: "Error", Value: ev.Observation.ErrorText})
	}

	body, err := json.Marshal(slackPayload{Attachments: []slackAttachment{att}})
	if err != nil {
		return false, fmt.Sprintf("slack error: %v", err)
	}

	resp, err := s.client.Post(s.cfg.WebhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Sprintf("slack error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return false, fmt.Sprintf("slack error: status %d", resp.StatusCode)
	}
	return true, "slack notification sent"
}
