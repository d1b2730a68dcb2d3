package notifier

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/loykin/svcwatchd/internal/event"
)

var telegramEmoji = map[event.Kind]string{
	event.Failure:       "\U0001F534",
	event.Recovery:      "✅",
	event.Restart:       "\U0001F504",
	event.RestartFailed: "❌",
}

// Telegram delivers events via the Telegram Bot API sendMessage call.
type Telegram struct {
	baseConfig
	client *http.Client
}

// NewTelegram returns a Telegram sink for cfg.
func NewTelegram(cfg Config) *Telegram {
	return &Telegram{baseConfig: baseConfig{cfg: cfg}, client: &http.Client{Timeout: 30 * time.Second}}
}

func (t *Telegram) Deliver(ev event.Event) (bool, string) {
	if t.cfg.BotToken == "" || t.cfg.ChatID == "" {
		return false, "telegram bot_token and chat_id required"
	}

	emoji, ok := telegramEmoji[ev.Kind]
	if !ok {
		emoji = "\U0001F4E2"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *Service Watchdog*\n\n", emoji)
	fmt.Fprintf(&b, "*Service:* `%s`\n", ev.Service)
	fmt.Fprintf(&b, "*Event:* %s\n", strings.ToUpper(string(ev.Kind)))
	fmt.Fprintf(&b, "*Time:* %s\n\n", ev.Timestamp.Format("2006-01-02 15:04:05"))
	b.WriteString(ev.Message)
	if ev.Observation != nil && ev.Observation.ErrorText != "" {
		fmt.Fprintf(&b, "\n\n*Error:* %s", ev.Observation.ErrorText)
	}

	form := url.Values{
		"chat_id":    {t.cfg.ChatID},
		"text":       {b.String()},
		"parse_mode": {"Markdown"},
	}
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.cfg.BotToken)
	resp, err := t.client.PostForm(endpoint, form)
	if err != nil {
		return false, fmt.Sprintf("telegram error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return false, fmt.Sprintf("telegram error: status %d", resp.StatusCode)
	}
	return true, "telegram notification sent"
}
