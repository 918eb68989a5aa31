package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/teranos/kalc/errors"
)

var globalConfig *Config
var viperInstance *viper.Viper

// Load reads the kalc configuration using Viper. The result is cached; use
// Reset to force a reload (tests).
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	v := initViper()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	globalConfig = &config
	return globalConfig, nil
}

// LoadFromFile loads configuration from a specific file path, bypassing the
// cache and the default search locations.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config from %s", configPath)
	}
	return &config, nil
}

// GetViper returns the Viper instance for advanced configuration access.
func GetViper() *viper.Viper {
	return initViper()
}

// Reset clears the cached configuration (useful for testing).
func Reset() {
	globalConfig = nil
	viperInstance = nil
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("resolver.timeout_ms", 5000)
	v.SetDefault("resolver.default_ttl_ms", 0) // no expiry unless configured
	v.SetDefault("resolver.rate_per_second", 0.0)
	v.SetDefault("resolver.burst", 1)

	v.SetDefault("eval.artificial_delay_ms", 0)

	v.SetDefault("log.json", false)
}

// initViper initializes Viper with configuration sources and defaults
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()
	v.SetConfigName("kalc")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "kalc"))
	}

	v.SetEnvPrefix("KALC")
	v.AutomaticEnv()

	SetDefaults(v)

	// A missing config file is fine; defaults cover everything.
	_ = v.ReadInConfig()

	viperInstance = v
	return v
}
