// Package config loads cashweb-relay tool settings.
//
// Settings come from, in increasing precedence: built-in defaults, a YAML
// file and RELAY_* environment variables (RELAY_LOG_LEVEL, RELAY_WORKERS, ...).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/suffix-labs/cashweb-relay/pkg/bitcoin"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "RELAY"

// DefaultFileName is looked up in the working directory when no path is given.
const DefaultFileName = "relay.yaml"

// Config holds the settings shared by every command.
type Config struct {
	Network     string `mapstructure:"network" yaml:"network"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
	Development bool   `mapstructure:"development" yaml:"development"`
	Workers     int    `mapstructure:"workers" yaml:"workers"`
	KeyFile     string `mapstructure:"key_file" yaml:"key_file,omitempty"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Network:  string(bitcoin.Mainnet),
		LogLevel: "info",
	}
}

// Load reads path, or DefaultFileName if path is empty and the file exists,
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("network", def.Network)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("development", def.Development)
	v.SetDefault("workers", def.Workers)
	v.SetDefault("key_file", def.KeyFile)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultFileName, filepath.Ext(DefaultFileName)))
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	if _, err := bitcoin.ParseNetwork(c.Network); err != nil {
		return fmt.Errorf("network: %w", err)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// BitcoinNetwork returns the configured network.
func (c *Config) BitcoinNetwork() bitcoin.Network {
	return bitcoin.Network(c.Network)
}

// Save writes c to path as YAML.
func (c *Config) Save(path string) error {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
