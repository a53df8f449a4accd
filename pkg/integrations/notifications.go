package integrations

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/smtp"

	"github.com/clustersweep-io/clustersweep/pkg/types"
)

// Notifier defines the interface for sending alerts
type Notifier interface {
	SendAlert(title, message string, severity types.Severity) error
}

// SlackNotifier sends alerts to Slack webhooks
type SlackNotifier struct {
	WebhookURL string
}

func (s *SlackNotifier) SendAlert(title, message string, severity types.Severity) error {
	slog.Info("Sending Slack Alert", "title", title, "severity", severity)

	payload := map[string]interface{}{
		"text": fmt.Sprintf("*%s*\n%s", title, message),
	}
	body, _ := json.Marshal(payload)

	resp, err := http.Post(s.WebhookURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("slack notification failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned non-200 status: %d", resp.StatusCode)
	}

	return nil
}

// EmailNotifier sends alerts via SMTP
type EmailNotifier struct {
	SMTPServer string
	SMTPPort   string
	Username   string
	Password   string
	From       string
	To         string
}

func (e *EmailNotifier) SendAlert(title, message string, severity types.Severity) error {
	slog.Info("Sending Email Alert", "title", title, "to", e.To, "severity", severity)

	auth := smtp.PlainAuth("", e.Username, e.Password, e.SMTPServer)
	subject := title
	if severity == types.SeverityCritical {
		subject = "[CRITICAL] " + title
	}
	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\n\r\n%s\r\n", e.To, subject, message))

	addr := fmt.Sprintf("%s:%s", e.SMTPServer, e.SMTPPort)
	err := smtp.SendMail(addr, auth, e.From, []string{e.To}, msg)
	if err != nil {
		return fmt.Errorf("email notification failed: %w", err)
	}

	return nil
}

// MultiNotifier sends alerts to multiple destinations
type MultiNotifier struct {
	Notifiers []Notifier
}

func (m *MultiNotifier) SendAlert(title, message string, severity types.Severity) error {
	for _, n := range m.Notifiers {
		if err := n.SendAlert(title, message, severity); err != nil {
			slog.Error("failed to send notification", "error", err)
		}
	}
	return nil
}

// BuildNotifier assembles the configured notification destinations. Returns
// nil when no destination is configured, which makes runs report-only.
func BuildNotifier(cfg *types.Config) Notifier {
	var notifiers []Notifier

	if cfg.Slack.WebhookURL != "" {
		notifiers = append(notifiers, &SlackNotifier{WebhookURL: cfg.Slack.WebhookURL})
	}
	if cfg.Email.SMTPServer != "" && cfg.Email.To != "" {
		notifiers = append(notifiers, &EmailNotifier{
			SMTPServer: cfg.Email.SMTPServer,
			SMTPPort:   cfg.Email.SMTPPort,
			Username:   cfg.Email.Username,
			Password:   cfg.Email.Password,
			From:       cfg.Email.From,
			To:         cfg.Email.To,
		})
	}

	switch len(notifiers) {
	case 0:
		return nil
	case 1:
		return notifiers[0]
	default:
		return &MultiNotifier{Notifiers: notifiers}
	}
}
