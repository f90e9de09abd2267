package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"tickwatch/internal/domain"

	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
// Sensitive values may be overridden through environment variables after load.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Feed struct {
		Enabled           bool   `yaml:"enabled"`
		WSURL             string `yaml:"ws_url"`
		APIKey            string `yaml:"api_key"`
		MaxSubscriptions  int    `yaml:"max_subscriptions"`
		ReconnectDelayMS  int    `yaml:"reconnect_delay_ms"`
		ConnectTimeoutSec int    `yaml:"connect_timeout_sec"`
	} `yaml:"feed"`

	Monitor struct {
		BigTradeLots   int64  `yaml:"big_trade_lots"`
		DailyClearTime string `yaml:"daily_clear_time"` // "HH:MM", weekdays only
	} `yaml:"monitor"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file, applies environment
// overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrConfigNotFound
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Feed.MaxSubscriptions == 0 {
		cfg.Feed.MaxSubscriptions = 5
	}
	if cfg.Feed.ReconnectDelayMS == 0 {
		cfg.Feed.ReconnectDelayMS = 3000
	}
	if cfg.Feed.ConnectTimeoutSec == 0 {
		cfg.Feed.ConnectTimeoutSec = 10
	}
	if cfg.Monitor.BigTradeLots == 0 {
		cfg.Monitor.BigTradeLots = 100
	}
	if cfg.Monitor.DailyClearTime == "" {
		cfg.Monitor.DailyClearTime = "08:30"
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Feed.WSURL == "" || (!strings.HasPrefix(c.Feed.WSURL, "ws://") && !strings.HasPrefix(c.Feed.WSURL, "wss://")) {
		return &domain.ConfigError{Field: "feed.ws_url", Err: fmt.Errorf("invalid websocket URL: %q", c.Feed.WSURL)}
	}
	if c.Feed.MaxSubscriptions <= 0 {
		return &domain.ConfigError{Field: "feed.max_subscriptions", Err: fmt.Errorf("must be positive")}
	}
	if c.Feed.ReconnectDelayMS <= 0 {
		return &domain.ConfigError{Field: "feed.reconnect_delay_ms", Err: fmt.Errorf("must be positive")}
	}
	if c.Monitor.BigTradeLots <= 0 {
		return &domain.ConfigError{Field: "monitor.big_trade_lots", Err: fmt.Errorf("must be positive")}
	}
	if _, _, err := c.ClearClock(); err != nil {
		return &domain.ConfigError{Field: "monitor.daily_clear_time", Err: err}
	}
	return nil
}

// overrideWithEnv overrides sensitive settings from the environment when present.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("TICKWATCH_API_KEY"); key != "" {
		cfg.Feed.APIKey = key
	}
	if url := os.Getenv("TICKWATCH_WS_URL"); url != "" {
		cfg.Feed.WSURL = url
	}
	if max := os.Getenv("TICKWATCH_MAX_SUBSCRIPTIONS"); max != "" {
		if n, err := strconv.Atoi(max); err == nil && n > 0 {
			cfg.Feed.MaxSubscriptions = n
		}
	}
}

// ReconnectDelay returns the fixed delay between reconnect attempts.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Feed.ReconnectDelayMS) * time.Millisecond
}

// ConnectTimeout returns the websocket handshake timeout.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Feed.ConnectTimeoutSec) * time.Second
}

// ClearClock parses the daily clear time into wall-clock hour and minute.
func (c *Config) ClearClock() (hour, minute int, err error) {
	t, err := time.Parse("15:04", c.Monitor.DailyClearTime)
	if err != nil {
		return 0, 0, fmt.Errorf("bad clock %q: %w", c.Monitor.DailyClearTime, err)
	}
	return t.Hour(), t.Minute(), nil
}
