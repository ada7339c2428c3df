// Package config loads service settings from defaults, an optional config
// file and TRIPQUOTE_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "TRIPQUOTE"

// Config holds every setting of the server.
type Config struct {
	Addr            string        `mapstructure:"addr"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	Providers       []string      `mapstructure:"providers"`
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
	SearchTimeout   time.Duration `mapstructure:"search_timeout"`
	SearchCacheTTL  time.Duration `mapstructure:"search_cache_ttl"`

	RateLimit       int           `mapstructure:"rate_limit"`
	RateLimitWindow time.Duration `mapstructure:"rate_limit_window"`

	RateSourceURL     string        `mapstructure:"rate_source_url"`
	RateSourceTimeout time.Duration `mapstructure:"rate_source_timeout"`
	RateCacheTTL      time.Duration `mapstructure:"rate_cache_ttl"`
	RedisAddr         string        `mapstructure:"redis_addr"`
	FallbackRatesFile string        `mapstructure:"fallback_rates_file"`
	Spread            string        `mapstructure:"spread"`
	WarmCurrencies    []string      `mapstructure:"warm_currencies"`
	BaseCurrency      string        `mapstructure:"base_currency"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("shutdown_timeout", 10*time.Second)

	v.SetDefault("providers", []string{
		"provider1=http://localhost:9001",
		"provider2=http://localhost:9002",
		"provider3=http://localhost:9003",
	})
	v.SetDefault("provider_timeout", 2*time.Second)
	v.SetDefault("search_timeout", 2*time.Second)
	v.SetDefault("search_cache_ttl", 30*time.Second)

	v.SetDefault("rate_limit", 10)
	v.SetDefault("rate_limit_window", time.Minute)

	v.SetDefault("rate_source_url", "http://localhost:9001")
	v.SetDefault("rate_source_timeout", 2*time.Second)
	v.SetDefault("rate_cache_ttl", 5*time.Minute)
	v.SetDefault("redis_addr", "")
	v.SetDefault("fallback_rates_file", "")
	v.SetDefault("spread", "0.02")
	v.SetDefault("warm_currencies", []string{"USD", "GBP", "CHF"})
	v.SetDefault("base_currency", "EUR")
}

// Load reads the configuration. path may be empty, in which case a
// tripquote.{yaml,json,toml,env} in the working directory is used if present.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("tripquote")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values viper cannot type-check.
func (c Config) Validate() error {
	if _, err := c.SpreadDecimal(); err != nil {
		return err
	}
	if _, err := c.ProviderEndpoints(); err != nil {
		return err
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("rate_limit_window must be positive, got %s", c.RateLimitWindow)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// SpreadDecimal parses the configured spread.
func (c Config) SpreadDecimal() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.Spread)
	if err != nil {
		return decimal.Zero, fmt.Errorf("spread %q is not a decimal: %w", c.Spread, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("spread must not be negative, got %s", c.Spread)
	}
	return d, nil
}

// Endpoint is one offer provider.
type Endpoint struct {
	Name    string
	BaseURL string
}

// ProviderEndpoints parses the "name=url" provider list. Entries without a
// name are named after their position.
func (c Config) ProviderEndpoints() ([]Endpoint, error) {
	out := make([]Endpoint, 0, len(c.Providers))
	for i, raw := range c.Providers {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		name, url, ok := strings.Cut(raw, "=")
		if !ok {
			name, url = fmt.Sprintf("provider%d", i+1), raw
		}
		if url == "" {
			return nil, fmt.Errorf("provider %q has no url", name)
		}
		out = append(out, Endpoint{Name: strings.TrimSpace(name), BaseURL: strings.TrimSpace(url)})
	}
	return out, nil
}

// Level maps log_level to a slog level.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return l, nil
}
