package notifier

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/loykin/svcwatchd/internal/event"
)

// Email delivers events over SMTP with STARTTLS.
type Email struct {
	baseConfig
}

// NewEmail returns an Email sink for cfg.
func NewEmail(cfg Config) *Email {
	return &Email{baseConfig: baseConfig{cfg: cfg}}
}

func (e *Email) Deliver(ev event.Event) (bool, string) {
	if e.cfg.SMTPHost == "" || e.cfg.FromAddr == "" || len(e.cfg.ToAddrs) == 0 {
		return false, "email smtp_host, from_addr, and to_addrs required"
	}

	subject := fmt.Sprintf("[Service Watchdog] %s: %s", ev.Service, strings.ToUpper(string(ev.Kind)))
	body := e.buildBody(ev)
	msg := e.buildMessage(subject, body)

	addr := fmt.Sprintf("%s:%d", e.cfg.SMTPHost, e.cfg.SMTPPort)
	if err := e.send(addr, msg); err != nil {
		return false, fmt.Sprintf("email error: %v", err)
	}
	return true, "email notification sent"
}

func (e *Email) buildBody(ev event.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Service Watchdog Alert\n\n")
	fmt.Fprintf(&b, "Service: %s\n", ev.Service)
	fmt.Fprintf(&b, "Event: %s\n", strings.ToUpper(string(ev.Kind)))
	fmt.Fprintf(&b, "Time: %s\n\n", ev.Timestamp.Format("2006-01-02 15:04:05"))
	b.WriteString(ev.Message)
	if ev.Observation != nil && ev.Observation.ErrorText != "" {
		fmt.Fprintf(&b, "\n\nError: %s", ev.Observation.ErrorText)
	}
	return b.String()
}

func (e *Email) buildMessage(subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "From: %s\r\n", e.cfg.FromAddr)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(e.cfg.ToAddrs, ", "))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// send implements SMTP STARTTLS delivery by hand rather than
// net/smtp.SendMail, since SendMail offers no hook to upgrade a plain
// connection to TLS before AUTH.
func (e *Email) send(addr string, msg []byte) error {
	conn, err := net.DialTimeout("tcp", addr, 30*time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, e.cfg.SMTPHost)
	if err != nil {
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: e.cfg.SMTPHost}); err != nil {
			return err
		}
	}

	if e.cfg.SMTPUser != "" && e.cfg.SMTPPassword != "" {
		auth := smtp.PlainAuth("", e.cfg.SMTPUser, e.cfg.SMTPPassword, e.cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(e.cfg.FromAddr); err != nil {
		return err
	}
	for _, to := range e.cfg.ToAddrs {
		if err := client.Rcpt(to); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
