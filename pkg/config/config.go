package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Uplink describes a single upstream registry
type Uplink struct {
	URL          string            `mapstructure:"url" json:"url"`
	CA           string            `mapstructure:"ca" json:"ca,omitempty"`
	Timeout      string            `mapstructure:"timeout" json:"timeout"`
	MaxAge       string            `mapstructure:"maxage" json:"maxage"`
	MaxFails     int               `mapstructure:"max_fails" json:"max_fails"`
	FailTimeout  string            `mapstructure:"fail_timeout" json:"fail_timeout"`
	StrictSSL    *bool             `mapstructure:"strict_ssl" json:"strict_ssl,omitempty"`
	Auth         *Auth             `mapstructure:"auth" json:"auth,omitempty"`
	Headers      map[string]string `mapstructure:"headers" json:"headers,omitempty"`
	HTTPProxy    string            `mapstructure:"http_proxy" json:"http_proxy,omitempty"`
	HTTPSProxy   string            `mapstructure:"https_proxy" json:"https_proxy,omitempty"`
	NoProxy      interface{}       `mapstructure:"no_proxy" json:"no_proxy,omitempty"` // string or []string
	AgentOptions AgentOptions      `mapstructure:"agent_options" json:"agent_options"`
	MaxRate      float64           `mapstructure:"max_rate" json:"max_rate,omitempty"`
	MaxBurst     int               `mapstructure:"max_burst" json:"max_burst,omitempty"`
}

// Auth describes uplink credentials as they appear in the config file.
// TokenEnv is polymorphic: an env var name, or true for the NPM_TOKEN default.
type Auth struct {
	Type     string      `mapstructure:"type" json:"type"`
	Token    string      `mapstructure:"token" json:"-"` // Don't serialize secrets
	TokenEnv interface{} `mapstructure:"token_env" json:"token_env,omitempty"`
}

// AgentOptions tunes the keep-alive connection pool per uplink
type AgentOptions struct {
	KeepAlive      *bool `mapstructure:"keep_alive" json:"keep_alive,omitempty"`
	MaxSockets     int   `mapstructure:"max_sockets" json:"max_sockets"`
	MaxFreeSockets int   `mapstructure:"max_free_sockets" json:"max_free_sockets"`
}

// Main carries the server-wide settings the uplink clients consume
type Main struct {
	UserAgent  string      `mapstructure:"user_agent" json:"user_agent"`
	ServerID   string      `mapstructure:"server_id" json:"server_id"`
	HTTPProxy  string      `mapstructure:"http_proxy" json:"http_proxy,omitempty"`
	HTTPSProxy string      `mapstructure:"https_proxy" json:"https_proxy,omitempty"`
	NoProxy    interface{} `mapstructure:"no_proxy" json:"no_proxy,omitempty"`
	Logging    Logging     `mapstructure:"logging" json:"logging"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `mapstructure:"level" json:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" json:"format"` // json, pretty
}

// Config is the root configuration struct
type Config struct {
	Main    Main              `mapstructure:",squash" json:"main"`
	Uplinks map[string]Uplink `mapstructure:"uplinks" json:"uplinks"`
}

// DefaultUplink returns an uplink configuration with sensible defaults
func DefaultUplink() Uplink {
	return Uplink{
		Timeout:     "30s",
		MaxAge:      "2m",
		MaxFails:    2,
		FailTimeout: "5m",
		AgentOptions: AgentOptions{
			MaxSockets:     40,
			MaxFreeSockets: 10,
		},
	}
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Main: Main{
			UserAgent: "uplink/1.0",
			ServerID:  "uplink",
			Logging: Logging{
				Level:  "info",
				Format: "json",
			},
		},
		Uplinks: map[string]Uplink{},
	}
}

// Validate validates a single uplink configuration
func (u *Uplink) Validate() error {
	if u.URL == "" {
		return fmt.Errorf("uplink url is required")
	}
	parsed, err := url.Parse(u.URL)
	if err != nil {
		return fmt.Errorf("uplink url is invalid: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("uplink url scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("uplink url must be absolute")
	}

	if u.MaxFails < 1 {
		return fmt.Errorf("max_fails must be at least 1, got %d", u.MaxFails)
	}
	if u.AgentOptions.MaxSockets < 0 || u.AgentOptions.MaxFreeSockets < 0 {
		return fmt.Errorf("agent_options socket limits cannot be negative")
	}
	if u.MaxRate < 0 {
		return fmt.Errorf("max_rate cannot be negative")
	}

	return nil
}

// Validate validates the root configuration
func (c *Config) Validate() error {
	if c.Main.ServerID == "" {
		return fmt.Errorf("server_id is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Main.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error; got %s", c.Main.Logging.Level)
	}

	validFormats := map[string]bool{"json": true, "pretty": true}
	if !validFormats[c.Main.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, pretty; got %s", c.Main.Logging.Format)
	}

	for name, up := range c.Uplinks {
		if err := up.Validate(); err != nil {
			return fmt.Errorf("uplink %s: %w", name, err)
		}
	}

	return nil
}

// NoProxyList normalises a no_proxy value (comma-separated string or list)
// into a slice of entries with whitespace trimmed
func NoProxyList(raw interface{}) []string {
	var entries []string
	switch v := raw.(type) {
	case string:
		entries = strings.Split(v, ",")
	case []string:
		entries = v
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				entries = append(entries, s)
			}
		}
	default:
		return nil
	}

	out := entries[:0]
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}
