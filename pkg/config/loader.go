package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config.yaml in current directory and /etc/uplink
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/uplink")
		v.AddConfigPath("$HOME/.uplink")
	}

	// Set environment variable prefix
	v.SetEnvPrefix("UPLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// If no config file found, use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Start with defaults
	cfg := Default()

	// Unmarshal into config struct
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply per-uplink defaults before validation
	for name, up := range cfg.Uplinks {
		cfg.Uplinks[name] = ApplyUplinkDefaults(up)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// ApplyUplinkDefaults fills zero-valued uplink fields from DefaultUplink
func ApplyUplinkDefaults(up Uplink) Uplink {
	def := DefaultUplink()

	if up.Timeout == "" {
		up.Timeout = def.Timeout
	}
	if up.MaxAge == "" {
		up.MaxAge = def.MaxAge
	}
	if up.MaxFails == 0 {
		up.MaxFails = def.MaxFails
	}
	if up.FailTimeout == "" {
		up.FailTimeout = def.FailTimeout
	}
	if up.AgentOptions.MaxSockets == 0 {
		up.AgentOptions.MaxSockets = def.AgentOptions.MaxSockets
	}
	if up.AgentOptions.MaxFreeSockets == 0 {
		up.AgentOptions.MaxFreeSockets = def.AgentOptions.MaxFreeSockets
	}

	return up
}
