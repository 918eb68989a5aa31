// Package config loads engine configuration through Viper: a TOML file,
// environment overrides, and defaults for everything.
package config

// Config represents the kalc engine configuration
type Config struct {
	Resolver ResolverConfig `mapstructure:"resolver"`
	Eval     EvalConfig     `mapstructure:"eval"`
	Log      LogConfig      `mapstructure:"log"`
}

// ResolverConfig configures the provider batch resolution phase
type ResolverConfig struct {
	// TimeoutMS bounds one resolver batch; 0 disables the timeout wrapper.
	TimeoutMS int `mapstructure:"timeout_ms"`
	// DefaultTTLMS is stamped onto resolved values that carry no explicit
	// TTL; 0 records no expiry.
	DefaultTTLMS int `mapstructure:"default_ttl_ms"`
	// RatePerSecond throttles resolver batches; 0 disables rate limiting.
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	// Burst is the rate limiter burst size.
	Burst int `mapstructure:"burst"`
}

// EvalConfig configures the synchronous evaluator
type EvalConfig struct {
	// ArtificialDelayMS slows the static resolver, for demos and ordering
	// tests (default: 0).
	ArtificialDelayMS int `mapstructure:"artificial_delay_ms"`
}

// LogConfig configures logger initialization
type LogConfig struct {
	JSON bool `mapstructure:"json"`
}
