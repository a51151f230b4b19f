// Copyright 2024-2026 Aiku AI

package bridge

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the bridge configuration as loaded from YAML.
type Config struct {
	SignalPhoneNumber string `yaml:"signal_phone_number"`
	// Timezone is the IANA zone notification timestamps are rendered in.
	Timezone    string `yaml:"timezone"`
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`

	KeepaliveIntervalStr  string `yaml:"keepalive_interval"`
	IdleTimeoutStr        string `yaml:"idle_timeout"`
	ReconnectBackoffStr   string `yaml:"reconnect_backoff"`
	TokenCheckIntervalStr string `yaml:"token_check_interval"`

	Servers []ServerConfig `yaml:"servers"`

	location           *time.Location `yaml:"-"`
	keepaliveInterval  time.Duration  `yaml:"-"`
	idleTimeout        time.Duration  `yaml:"-"`
	reconnectBackoff   time.Duration  `yaml:"-"`
	tokenCheckInterval time.Duration  `yaml:"-"`
}

// ServerConfig describes one Mattermost server to bridge.
type ServerConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
	// TokenEnv names an environment variable holding the token; when set it
	// takes precedence over Token so credentials can stay out of the file.
	TokenEnv   string `yaml:"token_env"`
	ServerName string `yaml:"servername"`
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type rawConfig Config
	return node.Decode((*rawConfig)(c))
}

// PostProcess applies defaults, resolves environment tokens, and validates.
// It must be called once after unmarshalling and before use.
func (c *Config) PostProcess() error {
	if c.SignalPhoneNumber == "" {
		return fmt.Errorf("signal_phone_number is required")
	}
	if len(c.Servers) == 0 {
		return fmt.Errorf("at least one server is required")
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Berlin"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	var err error
	c.location, err = time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}

	durations := []struct {
		name     string
		raw      *string
		fallback string
		out      *time.Duration
	}{
		{"keepalive_interval", &c.KeepaliveIntervalStr, "10s", &c.keepaliveInterval},
		{"idle_timeout", &c.IdleTimeoutStr, "60s", &c.idleTimeout},
		{"reconnect_backoff", &c.ReconnectBackoffStr, "10s", &c.reconnectBackoff},
		{"token_check_interval", &c.TokenCheckIntervalStr, "6h", &c.tokenCheckInterval},
	}
	for _, d := range durations {
		if *d.raw == "" {
			*d.raw = d.fallback
		}
		*d.out, err = time.ParseDuration(*d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		if *d.out <= 0 {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}
	if c.idleTimeout <= c.keepaliveInterval {
		return fmt.Errorf("idle_timeout must be longer than keepalive_interval")
	}

	for i := range c.Servers {
		server := &c.Servers[i]
		if server.ServerName == "" {
			return fmt.Errorf("server %d: servername is required", i)
		}
		if server.TokenEnv != "" {
			token := os.Getenv(server.TokenEnv)
			if token == "" {
				return fmt.Errorf("server %s: environment variable %s is empty", server.ServerName, server.TokenEnv)
			}
			server.Token = token
		}
		if server.Token == "" {
			return fmt.Errorf("server %s: token or token_env is required", server.ServerName)
		}
		if _, err := server.WebSocketURL(); err != nil {
			return fmt.Errorf("server %s: %w", server.ServerName, err)
		}
	}
	return nil
}

// Location returns the zone for rendering notification timestamps.
func (c *Config) Location() *time.Location { return c.location }

// KeepaliveInterval is the period between liveness probes.
func (c *Config) KeepaliveInterval() time.Duration { return c.keepaliveInterval }

// IdleTimeout is how long a connection may go without a liveness signal.
func (c *Config) IdleTimeout() time.Duration { return c.idleTimeout }

// ReconnectBackoff is the fixed wait between connection attempts.
func (c *Config) ReconnectBackoff() time.Duration { return c.reconnectBackoff }

// TokenCheckInterval is the period between credential re-validations.
func (c *Config) TokenCheckInterval() time.Duration { return c.tokenCheckInterval }

// WebSocketURL derives the event-stream endpoint from the REST base URL.
func (s *ServerConfig) WebSocketURL() (string, error) {
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return "", fmt.Errorf("base_url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("base_url: unsupported scheme %q", u.Scheme)
	}
	return u.JoinPath("api", "v4", "websocket").String(), nil
}

// LoadConfig reads, unmarshals, and post-processes the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.PostProcess(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}
