package types

import (
	"time"
)

// Config represents the clustersweep application configuration. Policy
// rules live in a separate document loaded by pkg/policy.
type Config struct {
	KubeConfig string `yaml:"kubeconfig" json:"kubeconfig"`
	PolicyFile string `yaml:"policy_file" json:"policy_file"`
	Namespace  string `yaml:"namespace" json:"namespace"`

	// Grace is an optional <number><unit> window (same grammar as the
	// expires label) protecting freshly created clusters.
	Grace string `yaml:"grace" json:"grace"`

	WarningThreshold  int `yaml:"warning_threshold" json:"warning_threshold"`
	CriticalThreshold int `yaml:"critical_threshold" json:"critical_threshold"`

	// HistoryBackend selects the notification history store: "redis",
	// "postgres" or "none".
	HistoryBackend string        `yaml:"history_backend" json:"history_backend"`
	HistoryTTL     time.Duration `yaml:"history_ttl" json:"history_ttl"`
	Redis          RedisConfig   `yaml:"redis" json:"redis"`
	Postgres       PostgresConfig `yaml:"postgres" json:"postgres"`

	Slack SlackConfig `yaml:"slack" json:"slack"`
	Email EmailConfig `yaml:"email" json:"email"`
}

// RedisConfig holds connection settings for the Redis history backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
}

// PostgresConfig holds connection settings for the Postgres history backend.
type PostgresConfig struct {
	Conn string `yaml:"conn" json:"conn"`
}

// SlackConfig configures the Slack webhook notifier.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" json:"webhook_url"`
}

// EmailConfig configures the SMTP notifier.
type EmailConfig struct {
	SMTPServer string `yaml:"smtp_server" json:"smtp_server"`
	SMTPPort   string `yaml:"smtp_port" json:"smtp_port"`
	Username   string `yaml:"username" json:"username"`
	Password   string `yaml:"password" json:"password"`
	From       string `yaml:"from" json:"from"`
	To         string `yaml:"to" json:"to"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		WarningThreshold:  80,
		CriticalThreshold: 95,
		HistoryBackend:    "none",
		HistoryTTL:        30 * 24 * time.Hour,
		Redis: RedisConfig{
			Addr: "redis:6379",
		},
	}
}
