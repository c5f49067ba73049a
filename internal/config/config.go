// Package config loads madbridge's ambient configuration (network
// addresses, logging, plugin/modifier load lists) via viper, and its
// rules document via a separate yaml.v3-based loader in rules.go.
//
// Precedence follows this codebase's own viper wiring
// (internal/core/config/viper.go): environment overrides file, file
// overrides the built-in defaults below. Section and field names mirror
// original_source/src/config.rs's Config/NetworkConfig/LoggingConfig/
// PluginsConfig/ModifiersConfig so a rules document or env override
// written against the original tool's documentation still applies here.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// NetworkConfig names the two endpoints madbridge sits between. Actually
// opening the listener and the outbound connection is the transport
// adapter's job, not this package's.
type NetworkConfig struct {
	GCSListenAddress string `mapstructure:"gcs_listen_address"`
	GCSListenPort    int    `mapstructure:"gcs_listen_port"`
	RouterAddress    string `mapstructure:"router_address"`
	RouterPort       int    `mapstructure:"router_port"`
}

// LoggingConfig configures the structured logger handed to the driver
// and every package that logs through it.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// PluginsConfig names the on-disk directory plugin files live under and
// the name -> filename load list. Actually loading and compiling plugin
// source is scripting-runtime territory and out of scope here; this
// config section only records intent for whatever runtime a caller
// wires in ahead of internal/plugin.Host.Register calls.
type PluginsConfig struct {
	Directory string            `mapstructure:"directory"`
	Load      map[string]string `mapstructure:"load"`
}

// ModifiersConfig is the modifier-side counterpart to PluginsConfig.
type ModifiersConfig struct {
	Directory string            `mapstructure:"directory"`
	Load      map[string]string `mapstructure:"load"`
}

// AppConfig is every ambient section madbridge loads at startup, aside
// from the rules document itself (loaded separately by LoadRules so a
// caller can reload rules without restarting the whole process).
type AppConfig struct {
	Network   NetworkConfig   `mapstructure:"network"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Plugins   PluginsConfig   `mapstructure:"plugins"`
	Modifiers ModifiersConfig `mapstructure:"modifiers"`
}

// Load reads configPath (if non-empty) layered over built-in defaults,
// then applies MADBRIDGE_-prefixed environment overrides. An empty
// configPath yields pure defaults plus env, useful for tests and for
// the container deployments that configure entirely through env vars.
func Load(configPath string) (*AppConfig, error) {
	v := viper.New()

	v.SetDefault("network.gcs_listen_address", "0.0.0.0")
	v.SetDefault("network.gcs_listen_port", 14550)
	v.SetDefault("network.router_address", "127.0.0.1")
	v.SetDefault("network.router_port", 14551)
	v.SetDefault("logging.level", "info")
	v.SetDefault("plugins.directory", "plugins")
	v.SetDefault("modifiers.directory", "modifiers")

	v.SetEnvPrefix("MADBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %q: %w", configPath, err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := validateAppConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateAppConfig(cfg *AppConfig) error {
	if cfg.Network.GCSListenPort <= 0 || cfg.Network.GCSListenPort > 65535 {
		return fmt.Errorf("network.gcs_listen_port must be between 1 and 65535, got %d", cfg.Network.GCSListenPort)
	}
	if cfg.Network.RouterPort <= 0 || cfg.Network.RouterPort > 65535 {
		return fmt.Errorf("network.router_port must be between 1 and 65535, got %d", cfg.Network.RouterPort)
	}
	if cfg.Network.RouterAddress == "" {
		return fmt.Errorf("network.router_address must be set")
	}
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", cfg.Logging.Level)
	}
	return nil
}
