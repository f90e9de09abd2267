package infra

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tickwatch/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
app:
  name: "TickWatch"
feed:
  enabled: true
  ws_url: "wss://feed.example.com/streaming/v1"
  api_key: "file-key"
  max_subscriptions: 3
  reconnect_delay_ms: 1500
monitor:
  big_trade_lots: 50
  daily_clear_time: "08:30"
logging:
  level: "debug"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Feed.MaxSubscriptions != 3 {
		t.Errorf("expected quota 3, got %d", cfg.Feed.MaxSubscriptions)
	}
	if cfg.ReconnectDelay() != 1500*time.Millisecond {
		t.Errorf("unexpected reconnect delay: %v", cfg.ReconnectDelay())
	}
	if cfg.ConnectTimeout() != 10*time.Second {
		t.Errorf("expected default connect timeout, got %v", cfg.ConnectTimeout())
	}
	if cfg.Monitor.BigTradeLots != 50 {
		t.Errorf("expected 50 lots, got %d", cfg.Monitor.BigTradeLots)
	}

	hour, minute, err := cfg.ClearClock()
	if err != nil || hour != 8 || minute != 30 {
		t.Errorf("unexpected clear clock: %d:%d (%v)", hour, minute, err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
feed:
  ws_url: "wss://feed.example.com/streaming/v1"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Feed.MaxSubscriptions != 5 {
		t.Errorf("expected default quota 5, got %d", cfg.Feed.MaxSubscriptions)
	}
	if cfg.Monitor.BigTradeLots != 100 {
		t.Errorf("expected default 100 lots, got %d", cfg.Monitor.BigTradeLots)
	}
	if cfg.Monitor.DailyClearTime != "08:30" {
		t.Errorf("expected default clear time, got %s", cfg.Monitor.DailyClearTime)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("TICKWATCH_API_KEY", "env-key")

	path := writeConfig(t, `
feed:
  ws_url: "wss://feed.example.com/streaming/v1"
  api_key: "file-key"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Feed.APIKey != "env-key" {
		t.Errorf("env var must override file key, got %s", cfg.Feed.APIKey)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad url scheme", "feed:\n  ws_url: \"http://not-websocket\"\n"},
		{"missing url", "feed:\n  enabled: true\n"},
		{"bad clear time", "feed:\n  ws_url: \"wss://x\"\nmonitor:\n  daily_clear_time: \"25:99\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.body)
			if _, err := LoadConfig(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, domain.ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}
}
