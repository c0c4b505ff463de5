package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	APIToken    string            `mapstructure:"api_token"`
	BaseURL     string            `mapstructure:"base_url"`
	UserAgent   string            `mapstructure:"user_agent"`
	Retry       RetryConfig       `mapstructure:"retry"`
	Timeout     TimeoutConfig     `mapstructure:"timeout"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Files       FilesConfig       `mapstructure:"files"`
	Predictions PredictionsConfig `mapstructure:"predictions"`
	Filters     FilterConfig      `mapstructure:"filters"`
	Logging     LoggingConfig     `mapstructure:"logging"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// RetryConfig mirrors the client retry policy
type RetryConfig struct {
	MaxRetries      int           `mapstructure:"max_retries"`
	MinDelay        time.Duration `mapstructure:"min_delay"`
	MaxDelay        time.Duration `mapstructure:"max_delay"`
	BaseMultiplier  uint          `mapstructure:"base_multiplier"`
	RetryableStatus []int         `mapstructure:"retryable_status"`
	RetryTimeouts   bool          `mapstructure:"retry_timeouts"`
}

// TimeoutConfig holds per-phase timeouts. Zero disables a phase.
type TimeoutConfig struct {
	Connect time.Duration `mapstructure:"connect"`
	Request time.Duration `mapstructure:"request"`
}

// RateLimitConfig throttles outgoing requests. A zero rate disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// FilesConfig controls how local files are sent to models
type FilesConfig struct {
	Strategy          string `mapstructure:"strategy"`
	MaxDataURLSize    int64  `mapstructure:"max_data_url_size"`
	UploadConcurrency int    `mapstructure:"upload_concurrency"`
}

// PredictionsConfig controls waiting on predictions
type PredictionsConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	WaitTimeout  time.Duration `mapstructure:"wait_timeout"`
}

// FilterConfig maps filter names to expressions. Viper lowercases the names.
type FilterConfig map[string]string

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
