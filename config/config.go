package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/s0up4200/go-replicate/fileinput"
	"github.com/s0up4200/go-replicate/pipeline"
	"github.com/s0up4200/go-replicate/replicate"
)

// Load loads the configuration from file and environment. Without an
// explicit path a missing config file is not an error, since the token
// can come from REPLICATE_API_TOKEN alone.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("REPLICATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("api_token", replicate.TokenEnv); err != nil {
		return nil, fmt.Errorf("error binding %s: %w", replicate.TokenEnv, err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "replicate"))
			v.AddConfigPath(filepath.Join(home, ".go-replicate"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("api_token", "")
	v.SetDefault("base_url", replicate.DefaultBaseURL)
	v.SetDefault("user_agent", "")

	v.SetDefault("retry.max_retries", pipeline.DefaultMaxRetries)
	v.SetDefault("retry.min_delay", pipeline.DefaultMinDelay)
	v.SetDefault("retry.max_delay", pipeline.DefaultMaxDelay)
	v.SetDefault("retry.base_multiplier", pipeline.DefaultBaseMultiplier)
	v.SetDefault("retry.retry_timeouts", false)

	v.SetDefault("timeout.connect", pipeline.DefaultConnectTimeout)
	v.SetDefault("timeout.request", pipeline.DefaultRequestTimeout)

	v.SetDefault("rate_limit.requests_per_second", 0)
	v.SetDefault("rate_limit.burst", 1)

	v.SetDefault("files.strategy", fileinput.Multipart.String())
	v.SetDefault("files.max_data_url_size", fileinput.DefaultMaxDataURLSize)
	v.SetDefault("files.upload_concurrency", replicate.DefaultUploadConcurrency)

	v.SetDefault("predictions.poll_interval", replicate.DefaultPollInterval)
	v.SetDefault("predictions.wait_timeout", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.APIToken) == "" {
		return fmt.Errorf("api_token is required (set it in the config file or %s)", replicate.TokenEnv)
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base_url: %q", cfg.BaseURL)
	}

	if err := cfg.HTTPConfig().Validate(); err != nil {
		return err
	}

	if cfg.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("rate_limit.requests_per_second must not be negative")
	}
	if cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit.burst must not be negative")
	}

	if _, err := fileinput.ParseStrategy(cfg.Files.Strategy); err != nil {
		return fmt.Errorf("invalid files.strategy: %w", err)
	}
	if cfg.Files.UploadConcurrency < 1 {
		return fmt.Errorf("files.upload_concurrency must be at least 1")
	}

	if cfg.Predictions.PollInterval <= 0 {
		return fmt.Errorf("predictions.poll_interval must be positive")
	}
	if cfg.Predictions.WaitTimeout < 0 {
		return fmt.Errorf("predictions.wait_timeout must not be negative")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}

// HTTPConfig converts the retry and timeout sections for the client.
func (c *Config) HTTPConfig() replicate.HTTPConfig {
	return replicate.HTTPConfig{
		Retry: replicate.RetryConfig{
			MaxRetries:      c.Retry.MaxRetries,
			MinDelay:        c.Retry.MinDelay,
			MaxDelay:        c.Retry.MaxDelay,
			BaseMultiplier:  c.Retry.BaseMultiplier,
			RetryableStatus: c.Retry.RetryableStatus,
			RetryTimeouts:   c.Retry.RetryTimeouts,
		},
		Timeout: replicate.TimeoutConfig{
			Connect: c.Timeout.Connect,
			Request: c.Timeout.Request,
		},
	}
}

// Strategy returns the configured default encoding for file inputs.
func (c *Config) Strategy() fileinput.Strategy {
	s, _ := fileinput.ParseStrategy(c.Files.Strategy)
	return s
}

// ClientOptions converts the remaining sections into client options.
func (c *Config) ClientOptions(logger zerolog.Logger) []replicate.Option {
	return []replicate.Option{
		replicate.WithBaseURL(c.BaseURL),
		replicate.WithLogger(logger),
		replicate.WithUserAgent(c.UserAgent),
		replicate.WithRateLimit(c.RateLimit.RequestsPerSecond, c.RateLimit.Burst),
		replicate.WithMaxDataURLSize(c.Files.MaxDataURLSize),
		replicate.WithUploadConcurrency(c.Files.UploadConcurrency),
		replicate.WithPollInterval(c.Predictions.PollInterval),
	}
}

// NewClient builds a client from the configuration.
func (c *Config) NewClient(logger zerolog.Logger) (*replicate.Client, error) {
	return replicate.NewWithHTTPConfig(c.APIToken, c.HTTPConfig(), c.ClientOptions(logger)...)
}
