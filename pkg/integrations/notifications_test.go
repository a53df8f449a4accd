package integrations

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/clustersweep-io/clustersweep/pkg/types"
)

func TestSlackNotifierSendAlert(t *testing.T) {
	var received map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := &SlackNotifier{WebhookURL: server.URL}
	err := notifier.SendAlert("Test Alert", "cluster dev-1 expires soon", types.SeverityWarning)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text, ok := received["text"].(string)
	if !ok {
		t.Fatalf("payload missing text field: %v", received)
	}
	if !strings.Contains(text, "*Test Alert*") {
		t.Errorf("expected bold title in payload, got %q", text)
	}
	if !strings.Contains(text, "dev-1 expires soon") {
		t.Errorf("expected message in payload, got %q", text)
	}
}

func TestSlackNotifierNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := &SlackNotifier{WebhookURL: server.URL}
	err := notifier.SendAlert("Test Alert", "body", types.SeverityCritical)
	if err == nil {
		t.Fatal("expected an error on non-200 response")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("expected status code in error, got %v", err)
	}
}

func TestMultiNotifierContinuesPastFailures(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()

	hits := 0
	working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer working.Close()

	multi := &MultiNotifier{Notifiers: []Notifier{
		&SlackNotifier{WebhookURL: failing.URL},
		&SlackNotifier{WebhookURL: working.URL},
	}}

	if err := multi.SendAlert("Test", "body", types.SeverityWarning); err != nil {
		t.Fatalf("multi notifier must not propagate per-destination errors: %v", err)
	}
	if hits != 1 {
		t.Errorf("expected the second destination to be reached, hits=%d", hits)
	}
}

func TestBuildNotifier(t *testing.T) {
	cfg := types.DefaultConfig()
	if n := BuildNotifier(cfg); n != nil {
		t.Errorf("expected nil notifier with empty config, got %T", n)
	}

	cfg.Slack.WebhookURL = "https://hooks.example.com/services/x"
	if _, ok := BuildNotifier(cfg).(*SlackNotifier); !ok {
		t.Error("expected a SlackNotifier")
	}

	cfg.Email.SMTPServer = "smtp.example.com"
	cfg.Email.To = "team@example.com"
	if _, ok := BuildNotifier(cfg).(*MultiNotifier); !ok {
		t.Error("expected a MultiNotifier with two destinations")
	}

	cfg.Slack.WebhookURL = ""
	if _, ok := BuildNotifier(cfg).(*EmailNotifier); !ok {
		t.Error("expected an EmailNotifier")
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WarningThreshold != 80 || cfg.CriticalThreshold != 95 {
		t.Errorf("unexpected default thresholds: %d/%d", cfg.WarningThreshold, cfg.CriticalThreshold)
	}
	if cfg.HistoryBackend != "none" {
		t.Errorf("unexpected default history backend: %s", cfg.HistoryBackend)
	}

	if _, err := LoadConfig("/does/not/exist.yaml"); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestLoadConfigOverlay(t *testing.T) {
	path := t.TempDir() + "/config.yaml"
	doc := `
warning_threshold: 70
history_backend: redis
redis:
  addr: localhost:6380
slack:
  webhook_url: https://hooks.example.com/services/y
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.WarningThreshold != 70 {
		t.Errorf("expected overridden warning threshold, got %d", cfg.WarningThreshold)
	}
	// Unset fields keep their defaults.
	if cfg.CriticalThreshold != 95 {
		t.Errorf("expected default critical threshold, got %d", cfg.CriticalThreshold)
	}
	if cfg.HistoryBackend != "redis" || cfg.Redis.Addr != "localhost:6380" {
		t.Errorf("unexpected history settings: %s %s", cfg.HistoryBackend, cfg.Redis.Addr)
	}
	if cfg.Slack.WebhookURL != "https://hooks.example.com/services/y" {
		t.Errorf("unexpected slack settings: %s", cfg.Slack.WebhookURL)
	}
}
